package recorder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rbright/askit/internal/voiceerr"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	format Format
	closes atomic.Int32
	err    error
}

func (s *fakeStream) Format() Format { return s.format }
func (s *fakeStream) Device() string { return "fake-mic" }
func (s *fakeStream) Close() error {
	s.closes.Add(1)
	return s.err
}

type fakeMic struct {
	mu          sync.Mutex
	opens       atomic.Int32
	openErr     error
	sink        Sink
	stream      *fakeStream
	constraints Constraints
}

func (m *fakeMic) Open(_ context.Context, c Constraints, sink Sink) (Stream, error) {
	m.opens.Add(1)
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
	m.constraints = c
	m.stream = &fakeStream{format: Format{SampleRate: c.SampleRate, Channels: 1}}
	return m.stream, nil
}

func (m *fakeMic) emit(data []byte) {
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()
	sink.Chunk(data)
}

func (m *fakeMic) fail(err error) {
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()
	sink.Fail(err)
}

type rawEncoder struct{ mime string }

func (e rawEncoder) MIMEType() string  { return e.mime }
func (e rawEncoder) Extension() string { return "raw" }
func (e rawEncoder) Encode(pcm []byte, _ Format) ([]byte, error) {
	return append([]byte(nil), pcm...), nil
}

func newTestRecorder(mic Microphone, opts ...Option) *Recorder {
	opts = append([]Option{WithEncoders(rawEncoder{mime: "audio/wav"})}, opts...)
	return New(mic, opts...)
}

func requireKind(t *testing.T, err error, kind voiceerr.Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := voiceerr.KindOf(err)
	require.True(t, ok, "unclassified error: %v", err)
	require.Equal(t, kind, got)
}

func TestStartStopProducesArtifact(t *testing.T) {
	mic := &fakeMic{}
	rec := newTestRecorder(mic, WithSampleRate(16000))

	require.NoError(t, rec.Start(context.Background()))
	require.Equal(t, StateRecording, rec.State())
	require.True(t, mic.constraints.EchoCancellation)
	require.True(t, mic.constraints.NoiseSuppression)
	require.Equal(t, 16000, mic.constraints.SampleRate)

	mic.emit(make([]byte, 32000))
	mic.emit(make([]byte, 32000))

	artifact, err := rec.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, 64000, artifact.Size())
	require.Equal(t, "audio/wav", artifact.MIMEType)
	require.Equal(t, 2*time.Second, artifact.Duration)
	require.Equal(t, "fake-mic", artifact.Device)
	require.Equal(t, StateIdle, rec.State())
	require.Equal(t, int32(1), mic.stream.closes.Load())
}

func TestDefaultsMatchCaptureContract(t *testing.T) {
	rec := New(&fakeMic{})
	require.Equal(t, 30*time.Second, rec.maxDuration)
	require.Equal(t, 25*1024*1024, rec.maxBytes)
	require.Equal(t, 44100, rec.constraints.SampleRate)
	require.Equal(t, []string{"audio/webm", "audio/mp4", "audio/wav"}, rec.priority)
}

func TestStopWithoutSessionIsNoop(t *testing.T) {
	rec := newTestRecorder(&fakeMic{})

	artifact, err := rec.Stop(context.Background())
	require.NoError(t, err)
	require.Zero(t, artifact.Size())
	require.Equal(t, StateIdle, rec.State())
}

func TestSecondStartIsRejectedWithoutSecondStream(t *testing.T) {
	mic := &fakeMic{}
	rec := newTestRecorder(mic)

	require.NoError(t, rec.Start(context.Background()))
	err := rec.Start(context.Background())
	requireKind(t, err, voiceerr.KindAudio)
	require.Contains(t, err.Error(), "already in progress")
	require.Equal(t, int32(1), mic.opens.Load())
	require.Equal(t, StateRecording, rec.State())

	_, _ = rec.Stop(context.Background())
}

func TestStartWithoutMicrophone(t *testing.T) {
	rec := newTestRecorder(nil)
	requireKind(t, rec.Start(context.Background()), voiceerr.KindAudio)
	require.Equal(t, StateIdle, rec.State())
}

func TestStartWithoutSupportedEncoding(t *testing.T) {
	mic := &fakeMic{}
	rec := New(mic, WithEncoders(rawEncoder{mime: "audio/ogg"}))

	err := rec.Start(context.Background())
	requireKind(t, err, voiceerr.KindAudio)
	require.Equal(t, msgNoEncoding, voiceerr.UserMessage(err))
	require.Zero(t, mic.opens.Load())
}

func TestNegotiateHonoursPriority(t *testing.T) {
	rec := New(nil,
		WithEncoders(rawEncoder{mime: "audio/wav"}, rawEncoder{mime: "audio/mp4"}),
	)
	enc, ok := rec.Negotiate()
	require.True(t, ok)
	require.Equal(t, "audio/mp4", enc.MIMEType())

	rec = New(nil,
		WithEncoders(rawEncoder{mime: "audio/wav"}, rawEncoder{mime: "audio/mp4"}),
		WithEncodingPriority([]string{"audio/wav"}),
	)
	enc, ok = rec.Negotiate()
	require.True(t, ok)
	require.Equal(t, "audio/wav", enc.MIMEType())
}

func TestOpenErrorsMapToUserMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "permission", err: ErrPermissionDenied, want: msgPermission},
		{name: "no device", err: errors.Join(errors.New("pulse"), ErrNoDevice), want: msgNoDevice},
		{name: "other", err: errors.New("socket closed"), want: msgAccessFailed},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := newTestRecorder(&fakeMic{openErr: tc.err})
			err := rec.Start(context.Background())
			requireKind(t, err, voiceerr.KindAudio)
			require.Equal(t, tc.want, voiceerr.UserMessage(err))
			require.Equal(t, StateIdle, rec.State())
		})
	}
}

func TestEmptyRecordingFailsValidationAndReturnsIdle(t *testing.T) {
	mic := &fakeMic{}
	rec := newTestRecorder(mic)

	require.NoError(t, rec.Start(context.Background()))
	_, err := rec.Stop(context.Background())
	requireKind(t, err, voiceerr.KindValidation)
	require.Equal(t, msgNoAudio, voiceerr.UserMessage(err))
	require.Equal(t, StateIdle, rec.State())
	require.Equal(t, int32(1), mic.stream.closes.Load())

	require.NoError(t, rec.Start(context.Background()))
	_, _ = rec.Stop(context.Background())
}

func TestOversizedRecordingFailsValidationAndReturnsIdle(t *testing.T) {
	mic := &fakeMic{}
	rec := newTestRecorder(mic, WithMaxBytes(1024))

	require.NoError(t, rec.Start(context.Background()))
	mic.emit(make([]byte, 1000))
	mic.emit(make([]byte, 1000))

	_, err := rec.Stop(context.Background())
	requireKind(t, err, voiceerr.KindValidation)
	require.Equal(t, msgTooLarge, voiceerr.UserMessage(err))
	require.Equal(t, StateIdle, rec.State())
	require.Equal(t, int32(1), mic.stream.closes.Load())
}

func TestEncodedSizeIsCheckedAgainstCap(t *testing.T) {
	mic := &fakeMic{}
	rec := New(mic, WithEncoders(paddingEncoder{}), WithMaxBytes(1024))

	require.NoError(t, rec.Start(context.Background()))
	mic.emit(make([]byte, 1000))

	_, err := rec.Stop(context.Background())
	requireKind(t, err, voiceerr.KindValidation)
	require.Equal(t, StateIdle, rec.State())
}

type paddingEncoder struct{}

func (paddingEncoder) MIMEType() string  { return "audio/wav" }
func (paddingEncoder) Extension() string { return "wav" }
func (paddingEncoder) Encode(pcm []byte, _ Format) ([]byte, error) {
	return append(make([]byte, 100), pcm...), nil
}

func TestAutoStopParksResultForStop(t *testing.T) {
	mic := &fakeMic{}
	rec := newTestRecorder(mic, WithMaxDuration(20*time.Millisecond))

	require.NoError(t, rec.Start(context.Background()))
	done := rec.Done()
	mic.emit([]byte{1, 2, 3, 4})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("auto-stop did not fire")
	}

	artifact, err := rec.Stop(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, artifact.Size())
	require.Equal(t, StateIdle, rec.State())
	require.Equal(t, int32(1), mic.stream.closes.Load())

	artifact, err = rec.Stop(context.Background())
	require.NoError(t, err)
	require.Zero(t, artifact.Size())
}

func TestDeviceErrorSurfacesAudioErrorAndReleasesStream(t *testing.T) {
	mic := &fakeMic{}
	rec := newTestRecorder(mic)

	require.NoError(t, rec.Start(context.Background()))
	done := rec.Done()
	mic.emit([]byte{1, 2})
	mic.fail(errors.New("device unplugged"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("device error did not end session")
	}

	_, err := rec.Stop(context.Background())
	requireKind(t, err, voiceerr.KindAudio)
	require.Contains(t, err.Error(), "device unplugged")
	require.Equal(t, StateIdle, rec.State())
	require.Equal(t, int32(1), mic.stream.closes.Load())

	require.NoError(t, rec.Start(context.Background()))
	require.Equal(t, int32(2), mic.opens.Load())
	require.NoError(t, rec.Cancel(context.Background()))
}

func TestCancelDiscardsAudio(t *testing.T) {
	mic := &fakeMic{}
	rec := newTestRecorder(mic)

	require.NoError(t, rec.Start(context.Background()))
	mic.emit([]byte{1, 2, 3})
	require.NoError(t, rec.Cancel(context.Background()))
	require.Equal(t, StateIdle, rec.State())
	require.Equal(t, int32(1), mic.stream.closes.Load())

	artifact, err := rec.Stop(context.Background())
	require.NoError(t, err)
	require.Zero(t, artifact.Size())

	mic.emit([]byte{9})
	require.NoError(t, rec.Cancel(context.Background()))
}

func TestDoneIsClosedWithoutSession(t *testing.T) {
	rec := newTestRecorder(&fakeMic{})
	select {
	case <-rec.Done():
	default:
		t.Fatal("expected closed channel")
	}
}

func TestDebugDirReceivesArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	mic := &fakeMic{}
	rec := newTestRecorder(mic, WithDebugDir(dir))

	require.NoError(t, rec.Start(context.Background()))
	mic.emit([]byte{1, 2, 3})
	_, err := rec.Stop(context.Background())
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Contains(t, entries[0].Name(), "audio-")
}
