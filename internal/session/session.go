// Package session coordinates one voice command: recording, transcription,
// intent analysis, delivery, and the optional spoken reply.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/askit/internal/capability"
	"github.com/rbright/askit/internal/fsm"
	"github.com/rbright/askit/internal/ipc"
	"github.com/rbright/askit/internal/logging"
	"github.com/rbright/askit/internal/metrics"
	"github.com/rbright/askit/internal/recorder"
	"github.com/rbright/askit/internal/voiceerr"
)

type action int

const (
	actionStop action = iota + 1
	actionCancel
)

const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeFailed    = "failed"
)

// Result is the complete lifecycle output returned by one Run invocation.
type Result struct {
	UtteranceID    string
	State          fsm.State
	Transcript     string
	Analysis       capability.IntentAnalysis
	Artifact       ArtifactInfo
	Cancelled      bool
	Spoken         bool
	Err            error
	SpeechErr      error
	RecordLatency  time.Duration
	STTLatency     time.Duration
	AnalyzeLatency time.Duration
	SpeechLatency  time.Duration
	StartedAt      time.Time
	FinishedAt     time.Time
	FocusedMonitor string
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowTranscribing(context.Context)
	ShowAnalyzing(context.Context)
	ShowSpeaking(context.Context)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
	FocusedMonitor() string
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)     {}
func (noopIndicator) ShowTranscribing(context.Context)  {}
func (noopIndicator) ShowAnalyzing(context.Context)     {}
func (noopIndicator) ShowSpeaking(context.Context)      {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueStop(context.Context)           {}
func (noopIndicator) CueComplete(context.Context)       {}
func (noopIndicator) CueCancel(context.Context)         {}
func (noopIndicator) Hide(context.Context)              {}
func (noopIndicator) FocusedMonitor() string            { return "" }

// Deps are the collaborators of one Controller. Recorder and Capabilities
// are required; a nil Player disables spoken replies.
type Deps struct {
	Recorder     Recorder
	Capabilities Capabilities
	Consumer     Consumer
	Player       Player
	Indicator    Indicator
	Metrics      *metrics.Metrics
	ErrorClear   time.Duration
}

// Controller orchestrates session state transitions and side effects.
type Controller struct {
	logger    *slog.Logger
	recorder  Recorder
	caps      Capabilities
	consumer  Consumer
	player    Player
	indicator Indicator
	metrics   *metrics.Metrics

	mu             sync.RWMutex
	state          fsm.State
	status         Status
	language       string
	stopPlayback   context.CancelFunc
	subscribers    map[int]chan Status
	nextSubscriber int
	errorClear     time.Duration
	errorTimer     *time.Timer
	errorSeq       int
	errorShown     bool

	actions chan action
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(logger *slog.Logger, deps Deps) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	if deps.Recorder == nil {
		deps.Recorder = unavailableRecorder{}
	}
	if deps.Capabilities == nil {
		deps.Capabilities = capability.New(nil)
	}
	if deps.Consumer == nil {
		deps.Consumer = ConsumerFunc(func(context.Context, string, capability.IntentAnalysis) error { return nil })
	}
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.ErrorClear <= 0 {
		deps.ErrorClear = DefaultErrorClear
	}

	return &Controller{
		logger:      logger,
		recorder:    deps.Recorder,
		caps:        deps.Capabilities,
		consumer:    deps.Consumer,
		player:      deps.Player,
		indicator:   deps.Indicator,
		metrics:     deps.Metrics,
		state:       fsm.StateIdle,
		language:    "en",
		subscribers: make(map[int]chan Status),
		errorClear:  deps.ErrorClear,
		actions:     make(chan action, 1),
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Language returns the language detected for the most recent utterance.
func (c *Controller) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.language
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	c.publishLocked()
	return nil
}

// Run executes one utterance from start to stop/cancel/failure completion.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now(), UtteranceID: uuid.NewString()}
	logger := c.logger.With("utterance_id", result.UtteranceID)

	if err := c.transition(fsm.EventStart); err != nil {
		result.State = c.State()
		result.Err = err
		result.FinishedAt = time.Now()
		return result
	}
	c.updateStatus(func(s *Status) {
		s.UtteranceID = result.UtteranceID
		s.Artifact = nil
	})
	c.mu.Lock()
	c.errorShown = false
	c.mu.Unlock()

	if !c.caps.Available() {
		return c.fail(ctx, logger, &result, voiceerr.Security(capability.MsgNotConfigured, nil))
	}

	c.indicator.ShowRecording(ctx)

	if err := c.recorder.Start(ctx); err != nil {
		if _, ok := voiceerr.KindOf(err); !ok {
			err = voiceerr.Audio("Failed to access microphone", err)
		}
		return c.fail(ctx, logger, &result, err)
	}

	// A shown error stays up until the notification's own timeout clears it.
	defer func() {
		c.mu.RLock()
		shown := c.errorShown
		c.mu.RUnlock()
		if shown {
			return
		}
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
		defer cancel()
		c.indicator.Hide(cleanupCtx)
	}()

	select {
	case <-ctx.Done():
		_ = c.recorder.Cancel(context.Background())
		c.indicator.CueCancel(context.Background())
		c.toFailedAndReset()
		result.Err = ctx.Err()
		return c.finish(ctx, &result, OutcomeCancelled)
	case a := <-c.actions:
		switch a {
		case actionCancel:
			_ = c.recorder.Cancel(context.Background())
			c.indicator.CueCancel(context.Background())
			_ = c.transition(fsm.EventCancel)
			result.Cancelled = true
			return c.finish(ctx, &result, OutcomeCancelled)
		case actionStop:
			return c.process(ctx, logger, &result)
		default:
			_ = c.recorder.Cancel(context.Background())
			return c.fail(ctx, logger, &result, fmt.Errorf("unknown action %d", a))
		}
	case <-c.recorder.Done():
		logger.Info("recording ended without stop request")
		return c.process(ctx, logger, &result)
	}
}

// process finalizes the recording and runs the sequential pipeline.
func (c *Controller) process(ctx context.Context, logger *slog.Logger, result *Result) Result {
	if err := c.transition(fsm.EventStop); err != nil {
		_ = c.recorder.Cancel(context.Background())
		return c.fail(ctx, logger, result, err)
	}
	c.indicator.ShowTranscribing(ctx)

	artifact, err := c.recorder.Stop(ctx)
	c.indicator.CueStop(context.Background())
	result.RecordLatency = time.Since(result.StartedAt)
	if err != nil {
		return c.fail(ctx, logger, result, err)
	}
	result.Artifact = ArtifactInfo{Size: artifact.Size(), MIMEType: artifact.MIMEType, Duration: artifact.Duration}
	c.updateStatus(func(s *Status) {
		info := result.Artifact
		s.Artifact = &info
	})
	logger.Info("recording finalized",
		"bytes", artifact.Size(),
		"mime_type", artifact.MIMEType,
		"duration_ms", artifact.Duration.Milliseconds(),
		"device", artifact.Device,
	)

	stageStart := time.Now()
	text, err := c.caps.SpeechToText(ctx, artifact)
	result.STTLatency = time.Since(stageStart)
	if err != nil {
		return c.fail(ctx, logger, result, err)
	}
	result.Transcript = text

	if err := c.transition(fsm.EventTranscribed); err != nil {
		return c.fail(ctx, logger, result, err)
	}
	c.indicator.ShowAnalyzing(ctx)

	stageStart = time.Now()
	analysis, err := c.caps.AnalyzeIntent(ctx, text)
	result.AnalyzeLatency = time.Since(stageStart)
	if err != nil {
		return c.fail(ctx, logger, result, err)
	}
	result.Analysis = analysis

	c.mu.Lock()
	c.language = analysis.Language
	c.status.Language = analysis.Language
	c.publishLocked()
	c.mu.Unlock()

	if err := c.consumer.OnTranscription(ctx, text, analysis); err != nil {
		return c.fail(ctx, logger, result, voiceerr.Classify(err, "Output dispatch failed"))
	}
	c.indicator.CueComplete(context.Background())
	logger.Info("utterance analyzed", "intent", string(analysis.Intent), "language", analysis.Language)

	if analysis.Response == "" || c.player == nil {
		_ = c.transition(fsm.EventAnalyzed)
		return c.finish(ctx, result, OutcomeCompleted)
	}

	c.speak(ctx, logger, result, analysis)
	return c.finish(ctx, result, OutcomeCompleted)
}

// speak synthesizes and plays the reply. Failures never invalidate the
// delivered result.
func (c *Controller) speak(ctx context.Context, logger *slog.Logger, result *Result, analysis capability.IntentAnalysis) {
	playCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.stopPlayback = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.stopPlayback = nil
		c.mu.Unlock()
		cancel()
	}()

	if err := c.transition(fsm.EventSpeak); err != nil {
		logger.Warn("cannot enter speaking state", "error", err)
		_ = c.transition(fsm.EventAnalyzed)
		return
	}
	c.indicator.ShowSpeaking(ctx)

	stageStart := time.Now()
	audio, err := c.caps.SynthesizeSpeech(playCtx, analysis.Response, analysis.Language)
	if err == nil {
		err = c.player.Play(playCtx, audio)
	}
	result.SpeechLatency = time.Since(stageStart)

	switch {
	case playCtx.Err() != nil && ctx.Err() == nil:
		logger.Info("spoken reply cancelled")
		_ = c.transition(fsm.EventCancel)
	case err != nil:
		result.SpeechErr = err
		logger.Warn("spoken reply failed", "error", err)
		c.showError("Voice response failed: " + voiceerr.UserMessage(err))
		_ = c.transition(fsm.EventSpoken)
	default:
		result.Spoken = true
		_ = c.transition(fsm.EventSpoken)
	}
}

// fail surfaces err, resets to idle, and completes the result.
func (c *Controller) fail(ctx context.Context, logger *slog.Logger, result *Result, err error) Result {
	message := voiceerr.UserMessage(err)
	kind, _ := voiceerr.KindOf(err)
	logger.Error("utterance failed", "kind", string(kind), "error", err)

	c.showError(message)
	c.toFailedAndReset()

	result.Err = err
	return c.finish(ctx, result, OutcomeFailed)
}

func (c *Controller) showError(message string) {
	c.setError(message)
	c.mu.Lock()
	c.errorShown = true
	c.mu.Unlock()
	c.indicator.ShowError(context.Background(), message)
}

func (c *Controller) finish(ctx context.Context, result *Result, outcome string) Result {
	result.State = c.State()
	result.FinishedAt = time.Now()
	result.FocusedMonitor = c.indicator.FocusedMonitor()
	if c.metrics != nil {
		c.metrics.RecordUtterance(context.WithoutCancel(ctx), outcome)
	}
	return *result
}

// Handle serves IPC commands for the active owner session.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		status := c.Status()
		return ipc.Response{
			OK:          true,
			State:       string(status.State),
			Message:     "status",
			Error:       status.Error,
			UtteranceID: status.UtteranceID,
			Language:    status.Language,
		}
	case ipc.CommandToggle:
		return c.requestStop("toggle")
	case ipc.CommandStop:
		return c.requestStop("stop")
	case ipc.CommandCancel:
		return c.requestCancel()
	default:
		return ipc.Response{OK: false, State: string(c.State()), Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

// requestStop enqueues a stop action when state permits it.
func (c *Controller) requestStop(source string) ipc.Response {
	state := c.State()
	switch state {
	case fsm.StateRecording:
	case fsm.StateTranscribing, fsm.StateAnalyzing, fsm.StateSpeaking:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("already %s", state)}
	default:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot %s from state %s", source, state)}
	}

	select {
	case c.actions <- actionStop:
		return ipc.Response{OK: true, State: string(state), Message: "stop requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "stop already requested"}
	}
}

// requestCancel discards a recording or interrupts a spoken reply.
func (c *Controller) requestCancel() ipc.Response {
	c.mu.RLock()
	state := c.state
	stopPlayback := c.stopPlayback
	c.mu.RUnlock()

	switch state {
	case fsm.StateRecording:
	case fsm.StateSpeaking:
		if stopPlayback != nil {
			stopPlayback()
		}
		return ipc.Response{OK: true, State: string(state), Message: "playback stopped"}
	case fsm.StateTranscribing, fsm.StateAnalyzing:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel while %s", state)}
	default:
		return ipc.Response{OK: false, State: string(state), Error: fmt.Sprintf("cannot cancel from state %s", state)}
	}

	select {
	case c.actions <- actionCancel:
		return ipc.Response{OK: true, State: string(state), Message: "cancel requested"}
	default:
		return ipc.Response{OK: true, State: string(state), Message: "cancel already requested"}
	}
}

// toFailedAndReset transitions to failed and back to idle best-effort.
func (c *Controller) toFailedAndReset() {
	_ = c.transition(fsm.EventFail)
	_ = c.transition(fsm.EventReset)
}

// Ensure the concrete recorder satisfies the session port.
var _ Recorder = (*recorder.Recorder)(nil)
