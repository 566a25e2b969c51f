package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/rbright/askit/internal/logging"
	"github.com/rbright/askit/internal/recorder"
)

const monitorInterval = 250 * time.Millisecond

// Microphone opens Pulse record streams for the recorder.
type Microphone struct {
	Input    string
	Fallback string
	Logger   *slog.Logger
}

// NewMicrophone builds a microphone bound to the configured source preferences.
func NewMicrophone(input, fallback string, logger *slog.Logger) *Microphone {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Microphone{Input: input, Fallback: fallback, Logger: logger}
}

// Open selects a source and starts a mono s16le record stream at the
// requested sample rate. Echo-cancel sources are preferred when the
// constraints ask for processing and no explicit input is configured.
func (m *Microphone) Open(_ context.Context, c recorder.Constraints, sink recorder.Sink) (recorder.Stream, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	devices, err := listSources(client)
	if err != nil {
		client.Close()
		return nil, err
	}
	selection, err := selectDeviceFromList(devices, m.Input, m.Fallback, c.EchoCancellation || c.NoiseSuppression)
	if err != nil {
		client.Close()
		return nil, err
	}
	if selection.Warning != "" {
		m.Logger.Warn(selection.Warning)
	}

	source, err := client.SourceByID(selection.Device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selection.Device.ID, err)
	}

	rate := c.SampleRate
	if rate <= 0 {
		rate = recorder.DefaultSampleRate
	}

	stream := &captureStream{
		device: selection.Device,
		format: recorder.Format{SampleRate: rate, Channels: 1},
		client: client,
		sink:   sink,
		stopCh: make(chan struct{}),
	}

	writer := pulse.NewWriter(writerFunc(stream.onPCM), pulseproto.FormatInt16LE)
	record, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(rate),
		pulse.RecordBufferFragmentSize(fragmentSize(rate)),
		pulse.RecordMediaName("askit voice command"),
	)
	if err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}

	stream.record = record
	record.Start()
	go stream.monitor()

	return stream, nil
}

// fragmentSize is 20ms of mono s16 audio.
func fragmentSize(rate int) uint32 {
	return uint32(rate / 50 * 2)
}

type captureStream struct {
	device Device
	format recorder.Format

	client *pulse.Client
	record *pulse.RecordStream
	sink   recorder.Sink

	stopCh chan struct{}

	mu       sync.Mutex
	stopped  bool
	inflight sync.WaitGroup
}

func (s *captureStream) Format() recorder.Format { return s.format }

func (s *captureStream) Device() string {
	if s.device.Description != "" {
		return s.device.Description
	}
	return s.device.ID
}

// Close halts the stream and waits for in-flight callbacks. Safe to call twice.
func (s *captureStream) Close() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	var err error
	if s.record != nil {
		s.record.Stop()
		err = s.record.Error()
		s.record.Close()
	}
	if s.client != nil {
		s.client.Close()
	}

	s.inflight.Wait()
	return err
}

// onPCM forwards raw Pulse frames to the recorder sink.
func (s *captureStream) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same mutex as stopped to avoid Add/Wait races.
	s.inflight.Add(1)
	s.mu.Unlock()
	defer s.inflight.Done()

	s.sink.Chunk(buffer)
	return len(buffer), nil
}

// monitor reports a stream that stopped without Close as a device failure.
func (s *captureStream) monitor() {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if s.record.Running() {
				continue
			}
			s.mu.Lock()
			stopped := s.stopped
			s.mu.Unlock()
			if stopped {
				return
			}
			err := s.record.Error()
			if err == nil {
				err = errors.New("capture stream stopped unexpectedly")
			}
			s.sink.Fail(err)
			return
		}
	}
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) {
	return f(b)
}
