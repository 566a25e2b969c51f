// Package recorder owns the microphone for one capture session at a time and
// turns the captured chunks into a size-checked audio artifact.
package recorder

import (
	"context"
	"errors"
	"time"
)

// State is the recorder lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateStarting  State = "starting"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
	StateError     State = "error"
)

const (
	DefaultMaxDuration = 30 * time.Second
	DefaultMaxBytes    = 25 * 1024 * 1024
	DefaultSampleRate  = 44100
)

// DefaultEncodings is the negotiation priority list.
var DefaultEncodings = []string{"audio/webm", "audio/mp4", "audio/wav"}

var (
	// ErrNoDevice is returned by a Microphone when no capture device exists.
	ErrNoDevice = errors.New("no capture device")
	// ErrPermissionDenied is returned by a Microphone when access is refused.
	ErrPermissionDenied = errors.New("capture permission denied")
)

const (
	msgAlreadyRecording = "Recording already in progress"
	msgUnsupported      = "Audio recording is not supported on this system"
	msgNoEncoding       = "No supported audio format is available for recording"
	msgPermission       = "Microphone access denied. Please allow microphone access and try again."
	msgNoDevice         = "No microphone found. Please connect a microphone and try again."
	msgAccessFailed     = "Failed to access microphone"
	msgDeviceFailed     = "Recording failed. Please try again."
	msgNoAudio          = "No audio data recorded. Please try speaking louder."
	msgTooLarge         = "Audio recording too large. Please try a shorter recording."
	msgEncodeFailed     = "Failed to process recording"
)

// Constraints are the capture settings requested from the microphone.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
	Channels         int
}

// Format describes the PCM delivered by an open stream.
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerSecond for signed 16-bit PCM.
func (f Format) BytesPerSecond() int {
	channels := f.Channels
	if channels <= 0 {
		channels = 1
	}
	return f.SampleRate * channels * 2
}

// Sink receives capture callbacks from a stream.
type Sink interface {
	Chunk([]byte)
	Fail(error)
}

// Stream is an open capture stream. Close releases the device and must not
// deliver further chunks once it returns.
type Stream interface {
	Format() Format
	Device() string
	Close() error
}

// Microphone opens capture streams.
type Microphone interface {
	Open(context.Context, Constraints, Sink) (Stream, error)
}

// Encoder packages captured PCM into one container format.
type Encoder interface {
	MIMEType() string
	Extension() string
	Encode(pcm []byte, format Format) ([]byte, error)
}

// Artifact is one finalized recording.
type Artifact struct {
	Data       []byte
	MIMEType   string
	Extension  string
	Duration   time.Duration
	StartedAt  time.Time
	SampleRate int
	Device     string
}

// Size returns the encoded length in bytes.
func (a Artifact) Size() int {
	return len(a.Data)
}
