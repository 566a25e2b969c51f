package session

import (
	"context"
	"errors"

	"github.com/rbright/askit/internal/capability"
	"github.com/rbright/askit/internal/recorder"
)

// ErrRecorderUnavailable indicates runtime microphone wiring is missing.
var ErrRecorderUnavailable = errors.New("recorder not configured")

// Recorder is the capture surface the session drives.
type Recorder interface {
	Start(context.Context) error
	Stop(context.Context) (recorder.Artifact, error)
	Cancel(context.Context) error
	Done() <-chan struct{}
}

// Capabilities is the AI client surface used per utterance. An unavailable
// client fails the utterance before the microphone opens.
type Capabilities interface {
	Available() bool
	SpeechToText(context.Context, recorder.Artifact) (string, error)
	AnalyzeIntent(context.Context, string) (capability.IntentAnalysis, error)
	SynthesizeSpeech(context.Context, string, string) (capability.SpeechAudio, error)
}

// Consumer receives the completed transcript and analysis once per utterance.
type Consumer interface {
	OnTranscription(context.Context, string, capability.IntentAnalysis) error
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(context.Context, string, capability.IntentAnalysis) error

func (f ConsumerFunc) OnTranscription(ctx context.Context, transcript string, analysis capability.IntentAnalysis) error {
	return f(ctx, transcript, analysis)
}

// Player renders a synthesized reply and blocks until done or ctx ends.
type Player interface {
	Play(context.Context, capability.SpeechAudio) error
}

// PlayerFunc adapts a function to the Player interface.
type PlayerFunc func(context.Context, capability.SpeechAudio) error

func (f PlayerFunc) Play(ctx context.Context, audio capability.SpeechAudio) error {
	return f(ctx, audio)
}

// unavailableRecorder fails every start so a miswired owner surfaces an audio error.
type unavailableRecorder struct{}

func (unavailableRecorder) Start(context.Context) error { return ErrRecorderUnavailable }
func (unavailableRecorder) Stop(context.Context) (recorder.Artifact, error) {
	return recorder.Artifact{}, nil
}
func (unavailableRecorder) Cancel(context.Context) error { return nil }
func (unavailableRecorder) Done() <-chan struct{}        { return nil }
