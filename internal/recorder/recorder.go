package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rbright/askit/internal/logging"
	"github.com/rbright/askit/internal/metrics"
	"github.com/rbright/askit/internal/voiceerr"
)

// Recorder enforces a single active capture session.
type Recorder struct {
	mic         Microphone
	encoders    []Encoder
	priority    []string
	constraints Constraints
	maxDuration time.Duration
	maxBytes    int
	debugDir    string
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	// opMu serializes Start, Stop, Cancel, and self-termination.
	opMu sync.Mutex

	mu      sync.Mutex
	state   State
	current *capture
	pending *outcome
}

type capture struct {
	stream    Stream
	encoder   Encoder
	chunks    [][]byte
	size      int
	oversize  bool
	startedAt time.Time
	timer     *time.Timer
	failure   error
	done      chan struct{}
	closeDone sync.Once
}

type outcome struct {
	artifact Artifact
	err      error
}

// Option customizes a Recorder.
type Option func(*Recorder)

func WithEncoders(encoders ...Encoder) Option {
	return func(r *Recorder) { r.encoders = append(r.encoders, encoders...) }
}

func WithEncodingPriority(priority []string) Option {
	return func(r *Recorder) {
		if len(priority) > 0 {
			r.priority = append([]string(nil), priority...)
		}
	}
}

func WithMaxDuration(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.maxDuration = d
		}
	}
}

func WithMaxBytes(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxBytes = n
		}
	}
}

func WithSampleRate(rate int) Option {
	return func(r *Recorder) {
		if rate > 0 {
			r.constraints.SampleRate = rate
		}
	}
}

// WithDebugDir writes every finalized artifact into dir.
func WithDebugDir(dir string) Option {
	return func(r *Recorder) { r.debugDir = dir }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		if m != nil {
			r.metrics = m
		}
	}
}

// New constructs a recorder. A nil microphone makes every Start fail.
func New(mic Microphone, opts ...Option) *Recorder {
	r := &Recorder{
		mic:      mic,
		priority: append([]string(nil), DefaultEncodings...),
		constraints: Constraints{
			EchoCancellation: true,
			NoiseSuppression: true,
			SampleRate:       DefaultSampleRate,
			Channels:         1,
		},
		maxDuration: DefaultMaxDuration,
		maxBytes:    DefaultMaxBytes,
		logger:      logging.Discard(),
		metrics:     metrics.Default(),
		now:         time.Now,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Negotiate returns the first encoding in priority order that an encoder supports.
func (r *Recorder) Negotiate() (Encoder, bool) {
	for _, mimeType := range r.priority {
		for _, enc := range r.encoders {
			if enc.MIMEType() == mimeType {
				return enc, true
			}
		}
	}
	return nil, false
}

// Start opens the microphone and begins accumulating chunks.
func (r *Recorder) Start(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	if r.current != nil || r.state != StateIdle {
		r.mu.Unlock()
		return voiceerr.Audio(msgAlreadyRecording, nil)
	}
	if r.pending != nil {
		r.logger.Warn("discarding uncollected recording", "error", r.pending.err)
		r.pending = nil
	}
	r.mu.Unlock()

	if r.mic == nil {
		return voiceerr.Audio(msgUnsupported, nil)
	}
	encoder, ok := r.Negotiate()
	if !ok {
		return voiceerr.Audio(msgNoEncoding, nil)
	}

	c := &capture{encoder: encoder, done: make(chan struct{})}

	r.mu.Lock()
	r.state = StateStarting
	r.current = c
	r.mu.Unlock()

	stream, err := r.mic.Open(ctx, r.constraints, &sink{recorder: r, capture: c})
	if err != nil {
		r.mu.Lock()
		r.current = nil
		r.state = StateIdle
		r.mu.Unlock()
		c.finish()
		return mapOpenError(err)
	}

	r.mu.Lock()
	c.stream = stream
	c.startedAt = r.now()
	c.timer = time.AfterFunc(r.maxDuration, func() { r.selfTerminate(c, "max duration reached") })
	if c.failure == nil {
		r.state = StateRecording
	}
	r.mu.Unlock()

	r.metrics.ActiveRecordings.Add(ctx, 1)
	r.logger.Info("recording started",
		"device", stream.Device(),
		"mime_type", encoder.MIMEType(),
		"sample_rate", stream.Format().SampleRate,
	)
	return nil
}

// Done is closed when the current session ends. It is already closed when no
// session is active.
func (r *Recorder) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		return r.current.done
	}
	closed := make(chan struct{})
	close(closed)
	return closed
}

// Stop finalizes the active session. With no session it returns a zero
// Artifact and nil. When the session already ended on its own, Stop returns
// that result once.
func (r *Recorder) Stop(ctx context.Context) (Artifact, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	if p := r.pending; p != nil {
		r.pending = nil
		r.mu.Unlock()
		return p.artifact, p.err
	}
	c := r.current
	r.mu.Unlock()

	if c == nil {
		return Artifact{}, nil
	}
	return r.finish(ctx, c)
}

// Cancel releases the microphone and discards any captured audio.
func (r *Recorder) Cancel(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	r.pending = nil
	c := r.current
	if c == nil {
		r.mu.Unlock()
		return nil
	}
	r.state = StateStopping
	r.mu.Unlock()

	err := r.release(ctx, c)
	r.logger.Info("recording cancelled")
	if err != nil {
		return voiceerr.Audio(msgDeviceFailed, err)
	}
	return nil
}

// finish releases the stream and builds the artifact. Caller holds opMu.
func (r *Recorder) finish(ctx context.Context, c *capture) (Artifact, error) {
	r.mu.Lock()
	r.state = StateStopping
	r.mu.Unlock()

	closeErr := r.release(ctx, c)

	r.mu.Lock()
	chunks := c.chunks
	failure := c.failure
	oversize := c.oversize
	r.mu.Unlock()

	if failure != nil {
		return Artifact{}, failure
	}
	if closeErr != nil {
		r.logger.Warn("capture stream close failed", "error", closeErr)
	}
	if oversize {
		r.logger.Warn("recording exceeds size cap", "max_bytes", r.maxBytes)
		return Artifact{}, voiceerr.Validation(msgTooLarge)
	}

	return r.finalize(ctx, c, chunks)
}

// release closes the stream and returns the recorder to idle. Caller holds opMu.
func (r *Recorder) release(ctx context.Context, c *capture) error {
	if c.timer != nil {
		c.timer.Stop()
	}
	var err error
	if c.stream != nil {
		err = c.stream.Close()
	}

	r.mu.Lock()
	if r.current == c {
		r.current = nil
	}
	r.state = StateIdle
	r.mu.Unlock()

	r.metrics.ActiveRecordings.Add(ctx, -1)
	c.finish()
	return err
}

func (r *Recorder) finalize(ctx context.Context, c *capture, chunks [][]byte) (Artifact, error) {
	size := 0
	for _, chunk := range chunks {
		size += len(chunk)
	}
	if size == 0 {
		return Artifact{}, voiceerr.Validation(msgNoAudio)
	}
	pcm := make([]byte, 0, size)
	for _, chunk := range chunks {
		pcm = append(pcm, chunk...)
	}

	format := c.stream.Format()
	data, err := c.encoder.Encode(pcm, format)
	if err != nil {
		return Artifact{}, voiceerr.Audio(msgEncodeFailed, err)
	}
	if len(data) > r.maxBytes {
		r.logger.Warn("recording exceeds size cap", "bytes", len(data), "max_bytes", r.maxBytes)
		return Artifact{}, voiceerr.Validation(msgTooLarge)
	}

	duration := r.now().Sub(c.startedAt)
	if bps := format.BytesPerSecond(); bps > 0 {
		duration = time.Duration(len(pcm)) * time.Second / time.Duration(bps)
	}

	artifact := Artifact{
		Data:       data,
		MIMEType:   c.encoder.MIMEType(),
		Extension:  c.encoder.Extension(),
		Duration:   duration,
		StartedAt:  c.startedAt,
		SampleRate: format.SampleRate,
		Device:     c.stream.Device(),
	}
	r.metrics.RecordRecording(ctx, artifact.Duration, artifact.Size(), artifact.MIMEType)
	r.logger.Info("recording finalized",
		"bytes", artifact.Size(),
		"duration_ms", artifact.Duration.Milliseconds(),
		"mime_type", artifact.MIMEType,
	)
	r.writeDebugArtifact(artifact)
	return artifact, nil
}

// selfTerminate ends a session without a Stop call and parks the result.
func (r *Recorder) selfTerminate(c *capture, reason string) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	r.mu.Lock()
	active := r.current == c
	r.mu.Unlock()
	if !active {
		return
	}

	r.logger.Info("recording ended", "reason", reason)
	artifact, err := r.finish(context.Background(), c)

	r.mu.Lock()
	r.pending = &outcome{artifact: artifact, err: err}
	r.mu.Unlock()
}

func (r *Recorder) chunk(c *capture, data []byte) {
	if len(data) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != c || c.failure != nil || c.oversize {
		return
	}
	c.size += len(data)
	if c.size > r.maxBytes {
		c.chunks = nil
		c.oversize = true
		return
	}
	c.chunks = append(c.chunks, append([]byte(nil), data...))
}

func (r *Recorder) fail(c *capture, err error) {
	r.mu.Lock()
	if r.current != c || c.failure != nil {
		r.mu.Unlock()
		return
	}
	c.failure = voiceerr.Audio(msgDeviceFailed, err)
	r.state = StateError
	r.mu.Unlock()

	r.logger.Error("capture device failed", "error", err)
	go r.selfTerminate(c, "device error")
}

func (r *Recorder) writeDebugArtifact(artifact Artifact) {
	if r.debugDir == "" {
		return
	}
	if err := os.MkdirAll(r.debugDir, 0o700); err != nil {
		r.logger.Warn("unable to create debug dir", "error", err)
		return
	}
	name := fmt.Sprintf("audio-%s.%s", artifact.StartedAt.Format("20060102-150405.000"), artifact.Extension)
	path := filepath.Join(r.debugDir, name)
	if err := os.WriteFile(path, artifact.Data, 0o600); err != nil {
		r.logger.Warn("unable to write debug audio dump", "error", err)
		return
	}
	r.logger.Debug("debug audio written", "path", path)
}

func (c *capture) finish() {
	c.closeDone.Do(func() { close(c.done) })
}

func mapOpenError(err error) error {
	if _, ok := voiceerr.KindOf(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return voiceerr.Audio(msgPermission, err)
	case errors.Is(err, ErrNoDevice):
		return voiceerr.Audio(msgNoDevice, err)
	default:
		return voiceerr.Audio(msgAccessFailed, err)
	}
}

type sink struct {
	recorder *Recorder
	capture  *capture
}

func (s *sink) Chunk(data []byte) { s.recorder.chunk(s.capture, data) }
func (s *sink) Fail(err error)    { s.recorder.fail(s.capture, err) }
