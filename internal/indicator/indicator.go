// Package indicator handles visual state notifications and audio cue playback.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/askit/internal/config"
	"github.com/rbright/askit/internal/hypr"
)

const (
	colorRecording = "rgb(89b4fa)"
	colorWorking   = "rgb(cba6f7)"
	colorSpeaking  = "rgb(a6e3a1)"
	colorError     = "rgb(f38ba8)"

	iconInfo  = 1
	iconError = 3

	stageTimeoutMS = 300000
)

// Notifier is the indicator used by runtime sessions. It routes notifications
// via Hyprland or desktop DBus based on the configured backend.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	mu                    sync.Mutex
	focusedMonitor        string
	desktopNotificationID uint32
	soundMu               sync.Mutex

	playCueFn func(cueKind) error
}

// New creates an indicator from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	return &Notifier{
		cfg:       cfg,
		logger:    logger,
		messages:  messagesFromEnv(),
		playCueFn: emitCue,
	}
}

// SetLanguage switches indicator text to the detected utterance language.
func (n *Notifier) SetLanguage(language string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = indicatorMessages(resolveLocale(language))
}

func (n *Notifier) text() messages {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.messages
}

// ShowRecording signals recording start and emits the start cue.
func (n *Notifier) ShowRecording(ctx context.Context) {
	n.playCue(cueStart)
	if !n.cfg.Enable {
		return
	}
	n.ensureFocusedMonitor(ctx)
	n.show(ctx, iconInfo, stageTimeoutMS, colorRecording, n.text().recording)
}

// ShowTranscribing signals the post-capture transcription state.
func (n *Notifier) ShowTranscribing(ctx context.Context) {
	n.show(ctx, iconInfo, stageTimeoutMS, colorWorking, n.text().transcribing)
}

// ShowAnalyzing signals intent analysis.
func (n *Notifier) ShowAnalyzing(ctx context.Context) {
	n.show(ctx, iconInfo, stageTimeoutMS, colorWorking, n.text().analyzing)
}

// ShowSpeaking signals spoken reply playback.
func (n *Notifier) ShowSpeaking(ctx context.Context) {
	n.show(ctx, iconInfo, stageTimeoutMS, colorSpeaking, n.text().speaking)
}

// ShowError displays an error message for the configured clear interval.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	if text == "" {
		text = n.text().errorText
	}
	timeout := n.cfg.ErrorClearMS
	if timeout <= 0 {
		timeout = 5000
	}
	n.show(ctx, iconError, timeout, colorError, text)
}

func (n *Notifier) CueStop(context.Context)     { n.playCue(cueStop) }
func (n *Notifier) CueComplete(context.Context) { n.playCue(cueComplete) }
func (n *Notifier) CueCancel(context.Context)   { n.playCue(cueCancel) }

// Hide dismisses the active indicator surface.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// FocusedMonitor returns the monitor captured when recording began.
func (n *Notifier) FocusedMonitor() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.focusedMonitor
}

func (n *Notifier) show(ctx context.Context, icon int, timeoutMS int, color string, text string) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, icon, timeoutMS, color, text)
	})
}

// ensureFocusedMonitor resolves and caches the focused monitor once per session.
func (n *Notifier) ensureFocusedMonitor(ctx context.Context) {
	n.mu.Lock()
	alreadySet := n.focusedMonitor != ""
	n.mu.Unlock()
	if alreadySet || n.desktop() {
		return
	}

	monitor, err := hypr.QueryFocusedMonitor(ctx)
	if err != nil {
		n.log("indicator focused monitor query failed", err)
		return
	}

	n.mu.Lock()
	n.focusedMonitor = monitor
	n.mu.Unlock()
}

func (n *Notifier) desktop() bool {
	return strings.EqualFold(strings.TrimSpace(n.cfg.Backend), "desktop")
}

// notify dispatches indicator output through the configured backend.
func (n *Notifier) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if n.desktop() {
		return n.notifyDesktop(ctx, timeoutMS, icon == iconError, text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes indicator output from the configured backend.
func (n *Notifier) dismiss(ctx context.Context) error {
	if n.desktop() {
		return n.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, critical bool, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	appName := strings.TrimSpace(n.cfg.DesktopAppName)
	if appName == "" {
		appName = "askit-indicator"
	}

	id, err := desktopNotify(ctx, desktopNotification{
		appName:   appName,
		replaceID: replaceID,
		summary:   text,
		timeoutMS: timeoutMS,
		critical:  critical,
	})
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable || n.playCueFn == nil {
		return
	}
	go func() {
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.playCueFn(kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// log emits debug-only indicator failures to the runtime logger.
func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
