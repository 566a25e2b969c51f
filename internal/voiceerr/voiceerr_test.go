package voiceerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindsAreDistinguishableThroughWrapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{name: "security", err: Security("API key not configured", nil), kind: KindSecurity},
		{name: "rate limit", err: RateLimit("slow down"), kind: KindRateLimit},
		{name: "validation", err: Validation("empty"), kind: KindValidation},
		{name: "audio", err: Audio("mic gone", errors.New("EIO")), kind: KindAudio},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("stage: %w", tc.err)
			kind, ok := KindOf(wrapped)
			require.True(t, ok)
			require.Equal(t, tc.kind, kind)
		})
	}
}

func TestErrorsIsMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Validation("No audio data recorded"))
	require.ErrorIs(t, err, ErrValidation)
	require.NotErrorIs(t, err, ErrAudio)
	require.NotErrorIs(t, err, ErrSecurity)
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Security("Failed to transcribe audio", cause)
	require.Equal(t, "Failed to transcribe audio: connection refused", err.Error())
	require.ErrorIs(t, err, cause)
	require.Equal(t, "Failed to transcribe audio", UserMessage(err))
}

func TestClassifyWrapsUnknownErrors(t *testing.T) {
	require.NoError(t, Classify(nil, "x"))

	known := RateLimit("busy")
	require.Same(t, known, Classify(known, "ignored"))

	classified := Classify(errors.New("boom"), "Failed to analyze request")
	kind, ok := KindOf(classified)
	require.True(t, ok)
	require.Equal(t, KindSecurity, kind)
	require.Equal(t, "Failed to analyze request", UserMessage(classified))
}

func TestUserMessageFallback(t *testing.T) {
	require.Empty(t, UserMessage(nil))
	require.Equal(t, "Something went wrong. Please try again.", UserMessage(errors.New("raw")))
}
