package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rbright/askit/internal/audio"
	"github.com/rbright/askit/internal/capability"
	"github.com/rbright/askit/internal/capability/openai"
	"github.com/rbright/askit/internal/config"
	"github.com/rbright/askit/internal/indicator"
	"github.com/rbright/askit/internal/metrics"
	"github.com/rbright/askit/internal/output"
	"github.com/rbright/askit/internal/ratelimit"
	"github.com/rbright/askit/internal/recorder"
	"github.com/rbright/askit/internal/session"
)

// newCapabilities builds the capability client. A missing credential yields
// an unavailable client rather than an error so the session can report it.
func newCapabilities(cfg config.Config, logger *slog.Logger) *capability.Client {
	var provider capability.Provider
	p, err := openai.FromConfig(cfg.OpenAI)
	if err != nil {
		logger.Warn("capability provider unavailable", "error", err.Error())
	} else {
		provider = p
	}

	limiter := ratelimit.New(cfg.Limits.MaxRequests, time.Duration(cfg.Limits.WindowMS)*time.Millisecond)
	return capability.New(provider,
		capability.WithLimiter(limiter),
		capability.WithModels(capability.Models{
			Transcribe:   cfg.OpenAI.TranscribeModel,
			Analyze:      cfg.OpenAI.AnalyzeModel,
			Speech:       cfg.OpenAI.SpeechModel,
			Voice:        cfg.OpenAI.Voice,
			SpeechFormat: cfg.Speech.Format,
			SpeechSpeed:  cfg.Speech.Speed,
		}),
		capability.WithLogger(logger),
		capability.WithMetrics(metrics.Default()),
	)
}

func newRecorder(cfg config.Config, logger *slog.Logger, logPath string) *recorder.Recorder {
	opts := []recorder.Option{
		recorder.WithEncoders(audio.WAVEncoder{}),
		recorder.WithEncodingPriority(cfg.Audio.Encodings),
		recorder.WithMaxDuration(time.Duration(cfg.Audio.MaxDurationMS) * time.Millisecond),
		recorder.WithMaxBytes(cfg.Audio.MaxBytes),
		recorder.WithSampleRate(cfg.Audio.SampleRate),
		recorder.WithLogger(logger),
		recorder.WithMetrics(metrics.Default()),
	}
	if cfg.Debug.EnableAudioDump && logPath != "" {
		opts = append(opts, recorder.WithDebugDir(filepath.Join(filepath.Dir(logPath), "debug")))
	}
	return recorder.New(audio.NewMicrophone(cfg.Audio.Input, cfg.Audio.Fallback, logger), opts...)
}

// newController assembles the owner session from runtime config.
func newController(cfg config.Config, logger *slog.Logger, logPath string) *session.Controller {
	notifier := indicator.New(cfg.Indicator, logger)
	clipboard := output.NewClipboard(cfg, logger)

	consumer := session.ConsumerFunc(func(ctx context.Context, transcript string, analysis capability.IntentAnalysis) error {
		notifier.SetLanguage(analysis.Language)
		return clipboard.OnTranscription(ctx, transcript, analysis)
	})

	var player session.Player
	if cfg.Speech.Enable {
		speaker := audio.Speaker{}
		player = session.PlayerFunc(func(ctx context.Context, speech capability.SpeechAudio) error {
			return speaker.Play(ctx, speech.Data, speech.Format, speech.SampleRate)
		})
	}

	return session.NewController(logger, session.Deps{
		Recorder:     newRecorder(cfg, logger, logPath),
		Capabilities: newCapabilities(cfg, logger),
		Consumer:     consumer,
		Player:       player,
		Indicator:    notifier,
		Metrics:      metrics.Default(),
		ErrorClear:   time.Duration(cfg.Indicator.ErrorClearMS) * time.Millisecond,
	})
}
