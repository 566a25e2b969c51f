package capability

import (
	"context"
	"fmt"
)

// Provider is the external AI backend behind the client.
type Provider interface {
	Transcribe(context.Context, TranscribeRequest) (string, error)
	Complete(context.Context, CompletionRequest) (string, error)
	Synthesize(context.Context, SpeechRequest) ([]byte, error)
}

// TranscribeRequest is one speech-to-text call.
type TranscribeRequest struct {
	Audio       []byte
	FileName    string
	MIMEType    string
	Model       string
	Temperature float64
}

// CompletionRequest is one single-turn chat call.
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// SpeechRequest is one text-to-speech call.
type SpeechRequest struct {
	Model  string
	Voice  string
	Input  string
	Format string
	Speed  float64
}

// ProviderError carries the HTTP status of a failed provider call.
type ProviderError struct {
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("provider status %d: %v", e.StatusCode, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
