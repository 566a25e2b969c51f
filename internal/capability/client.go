// Package capability is the rate-limited, sanitizing client over the AI
// provider: speech-to-text, intent analysis, speech synthesis, and
// best-effort simplification.
package capability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rbright/askit/internal/logging"
	"github.com/rbright/askit/internal/metrics"
	"github.com/rbright/askit/internal/ratelimit"
	"github.com/rbright/askit/internal/recorder"
	"github.com/rbright/askit/internal/transcript"
	"github.com/rbright/askit/internal/voiceerr"
)

const (
	MaxAudioBytes   = 25 * 1024 * 1024
	MaxSpeechLength = 4000

	DefaultTranscribeModel = "whisper-1"
	DefaultAnalyzeModel    = "gpt-4"
	DefaultSpeechModel     = "tts-1"
	DefaultVoice           = "nova"
	DefaultSpeechFormat    = "pcm"
	DefaultSpeechSpeed     = 0.9

	// PCMSampleRate is the fixed rate of raw PCM speech replies.
	PCMSampleRate = 24000

	// MsgNotConfigured is shown when no provider credential is set.
	MsgNotConfigured = "API key not configured. Please set the OpenAI API key and restart."
)

const (
	OpTranscribe = "transcribe"
	OpAnalyze    = "analyze"
	OpSynthesize = "synthesize"
	OpSimplify   = "simplify"
)

const (
	msgRateLimited     = "Too many requests. Please wait before trying again."
	msgNoResponse      = "No response from AI service"
	msgNoSpeech        = "No speech detected in audio"
	msgSTTFailed       = "Speech recognition failed"
	msgAnalysisFailed  = "Language processing failed"
	msgSpeechFailed    = "Speech synthesis failed"
	msgAudioTooLarge   = "Audio file too large"
	msgAudioEmpty      = "Audio file is empty"
	msgInvalidAudio    = "Invalid audio file type"
	msgTextTooLong     = "Text too long for speech synthesis"
	msgNoSpeechContent = "No text to speak"
)

// allowedAudioTypes maps accepted MIME types (and aliases) to upload extensions.
var allowedAudioTypes = map[string]string{
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
	"audio/wave":  "wav",
	"audio/mp3":   "mp3",
	"audio/mpeg":  "mp3",
	"audio/m4a":   "m4a",
	"audio/mp4":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/webm":  "webm",
}

// Models selects provider models and tuning per operation.
type Models struct {
	Transcribe   string
	Analyze      string
	Speech       string
	Voice        string
	SpeechFormat string
	SpeechSpeed  float64
}

// DefaultModels returns the stock model selection.
func DefaultModels() Models {
	return Models{
		Transcribe:   DefaultTranscribeModel,
		Analyze:      DefaultAnalyzeModel,
		Speech:       DefaultSpeechModel,
		Voice:        DefaultVoice,
		SpeechFormat: DefaultSpeechFormat,
		SpeechSpeed:  DefaultSpeechSpeed,
	}
}

// SpeechAudio is one playable synthesized reply.
type SpeechAudio struct {
	Data       []byte
	Format     string
	SampleRate int
}

// Client wraps a Provider with admission, validation, sanitization, and
// error classification. A Client with no provider is unavailable and fails
// every strict operation with a security error.
type Client struct {
	provider Provider
	limiter  *ratelimit.Limiter
	models   Models
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option customizes a Client.
type Option func(*Client)

func WithLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

func WithModels(m Models) Option {
	return func(c *Client) {
		if m.Transcribe != "" {
			c.models.Transcribe = m.Transcribe
		}
		if m.Analyze != "" {
			c.models.Analyze = m.Analyze
		}
		if m.Speech != "" {
			c.models.Speech = m.Speech
		}
		if m.Voice != "" {
			c.models.Voice = m.Voice
		}
		if m.SpeechFormat != "" {
			c.models.SpeechFormat = strings.ToLower(m.SpeechFormat)
		}
		if m.SpeechSpeed > 0 {
			c.models.SpeechSpeed = m.SpeechSpeed
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New builds a client. A nil provider yields an unavailable client.
func New(provider Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		limiter:  ratelimit.New(ratelimit.DefaultMaxRequests, ratelimit.DefaultWindow),
		models:   DefaultModels(),
		logger:   logging.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether a provider credential was configured.
func (c *Client) Available() bool {
	return c != nil && c.provider != nil
}

// Limiter exposes the shared admission window.
func (c *Client) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// SpeechToText transcribes a finalized recording into sanitized text.
func (c *Client) SpeechToText(ctx context.Context, artifact recorder.Artifact) (string, error) {
	if err := c.admit(ctx, OpTranscribe); err != nil {
		return "", err
	}

	size := len(artifact.Data)
	switch {
	case size == 0:
		return "", c.reject(ctx, OpTranscribe, voiceerr.Validation(msgAudioEmpty))
	case size > MaxAudioBytes:
		return "", c.reject(ctx, OpTranscribe, voiceerr.Validation(msgAudioTooLarge))
	}
	mimeType := normalizeMIME(artifact.MIMEType)
	ext, ok := allowedAudioTypes[mimeType]
	if !ok {
		return "", c.reject(ctx, OpTranscribe, voiceerr.Validation(msgInvalidAudio))
	}

	started := c.now()
	text, err := c.provider.Transcribe(ctx, TranscribeRequest{
		Audio:       artifact.Data,
		FileName:    "recording." + ext,
		MIMEType:    mimeType,
		Model:       c.models.Transcribe,
		Temperature: 0.2,
	})
	if err != nil {
		return "", c.fail(ctx, OpTranscribe, started, err, msgSTTFailed)
	}

	text = transcript.Sanitize(text)
	if text == "" {
		return "", c.fail(ctx, OpTranscribe, started, voiceerr.Validation(msgNoSpeech), msgSTTFailed)
	}

	c.succeed(ctx, OpTranscribe, started, slog.Int("audio_bytes", size), slog.Int("chars", len(text)))
	return text, nil
}

// AnalyzeIntent classifies a transcript. Malformed provider output yields
// FallbackAnalysis; transport and auth failures are returned as errors.
func (c *Client) AnalyzeIntent(ctx context.Context, text string) (IntentAnalysis, error) {
	if err := c.admit(ctx, OpAnalyze); err != nil {
		return IntentAnalysis{}, err
	}

	sanitized := transcript.Sanitize(text)
	started := c.now()
	content, err := c.provider.Complete(ctx, CompletionRequest{
		Model:       c.models.Analyze,
		System:      analysisSystemPrompt,
		User:        sanitized,
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return IntentAnalysis{}, c.fail(ctx, OpAnalyze, started, err, msgAnalysisFailed)
	}
	if strings.TrimSpace(content) == "" {
		return IntentAnalysis{}, c.fail(ctx, OpAnalyze, started, voiceerr.Validation(msgNoResponse), msgAnalysisFailed)
	}

	analysis, ok := parseAnalysis(content, sanitized)
	if !ok {
		c.logger.Warn("analysis reply unparseable; using fallback", "chars", len(content))
		if c.metrics != nil {
			c.metrics.RecordFallback(ctx)
		}
		analysis = FallbackAnalysis(sanitized)
	}

	c.succeed(ctx, OpAnalyze, started, slog.String("intent", string(analysis.Intent)), slog.String("language", analysis.Language))
	return analysis, nil
}

// SynthesizeSpeech renders text as a single playable buffer.
func (c *Client) SynthesizeSpeech(ctx context.Context, text string, language string) (SpeechAudio, error) {
	if err := c.admit(ctx, OpSynthesize); err != nil {
		return SpeechAudio{}, err
	}
	if utf8.RuneCountInString(text) > MaxSpeechLength {
		return SpeechAudio{}, c.reject(ctx, OpSynthesize, voiceerr.Validation(msgTextTooLong))
	}
	sanitized := transcript.Sanitize(text)
	if sanitized == "" {
		return SpeechAudio{}, c.reject(ctx, OpSynthesize, voiceerr.Validation(msgNoSpeechContent))
	}
	if utf8.RuneCountInString(sanitized) > MaxSpeechLength {
		return SpeechAudio{}, c.reject(ctx, OpSynthesize, voiceerr.Validation(msgTextTooLong))
	}

	started := c.now()
	data, err := c.provider.Synthesize(ctx, SpeechRequest{
		Model:  c.models.Speech,
		Voice:  c.models.Voice,
		Input:  sanitized,
		Format: c.models.SpeechFormat,
		Speed:  c.models.SpeechSpeed,
	})
	if err != nil {
		return SpeechAudio{}, c.fail(ctx, OpSynthesize, started, err, msgSpeechFailed)
	}
	if len(data) == 0 {
		return SpeechAudio{}, c.fail(ctx, OpSynthesize, started, voiceerr.Validation(msgNoResponse), msgSpeechFailed)
	}

	audio := SpeechAudio{Data: data, Format: c.models.SpeechFormat}
	if audio.Format == "pcm" {
		audio.SampleRate = PCMSampleRate
	}
	c.succeed(ctx, OpSynthesize, started, slog.String("language", language), slog.Int("audio_bytes", len(data)))
	return audio, nil
}

// Simplify rewrites text in plain language. Any failure returns text unchanged.
func (c *Client) Simplify(ctx context.Context, text string, language string) string {
	if err := c.admit(ctx, OpSimplify); err != nil {
		c.logger.Debug("simplify skipped", "error", err)
		return text
	}

	sanitized := transcript.Sanitize(text)
	target := "English"
	if strings.EqualFold(strings.TrimSpace(language), "hi") {
		target = "Hindi"
	}

	started := c.now()
	content, err := c.provider.Complete(ctx, CompletionRequest{
		Model:       c.models.Analyze,
		System:      fmt.Sprintf(simplifySystemPromptTemplate, target),
		User:        sanitized,
		Temperature: 0.2,
		MaxTokens:   300,
	})
	if err != nil {
		c.fail(ctx, OpSimplify, started, err, msgAnalysisFailed)
		return text
	}

	simplified := transcript.Sanitize(content)
	if simplified == "" {
		simplified = sanitized
	}
	c.succeed(ctx, OpSimplify, started, slog.String("language", target))
	return simplified
}

// admit checks configuration and the shared request window.
func (c *Client) admit(ctx context.Context, op string) error {
	if !c.Available() {
		err := voiceerr.Security(MsgNotConfigured, nil)
		if c != nil {
			c.reject(ctx, op, err)
		}
		return err
	}
	if !c.limiter.Admit() {
		if c.metrics != nil {
			c.metrics.RecordRateLimited(ctx, op)
		}
		c.logger.Warn("capability call rate limited", "op", op, "retry_after", c.limiter.RetryAfter())
		return voiceerr.RateLimit(msgRateLimited)
	}
	return nil
}

// reject records a failure that never reached the provider.
func (c *Client) reject(ctx context.Context, op string, err *voiceerr.Error) error {
	c.logger.Warn("capability call rejected", "op", op, "kind", string(err.Kind), "error", err.Message)
	if c.metrics != nil {
		c.metrics.RecordError(ctx, op, string(err.Kind))
	}
	return err
}

func (c *Client) fail(ctx context.Context, op string, started time.Time, err error, message string) error {
	classified := classifyProviderError(err, message)
	kind, _ := voiceerr.KindOf(classified)
	elapsed := c.now().Sub(started)

	c.logger.Error("capability call failed",
		"op", op,
		"kind", string(kind),
		"elapsed_ms", elapsed.Milliseconds(),
		"error", err,
	)
	if c.metrics != nil {
		c.metrics.RecordCapability(ctx, op, elapsed, classified, string(kind))
	}
	return classified
}

func (c *Client) succeed(ctx context.Context, op string, started time.Time, attrs ...slog.Attr) {
	elapsed := c.now().Sub(started)
	args := []any{"op", op, "elapsed_ms", elapsed.Milliseconds()}
	for _, attr := range attrs {
		args = append(args, attr)
	}
	c.logger.Info("capability call complete", args...)
	if c.metrics != nil {
		c.metrics.RecordCapability(ctx, op, elapsed, nil, "")
	}
}

// classifyProviderError maps provider 429s to rate-limit errors and wraps
// everything else unclassified as a security failure.
func classifyProviderError(err error, message string) error {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.StatusCode == http.StatusTooManyRequests {
		return voiceerr.RateLimit(msgRateLimited)
	}
	return voiceerr.Classify(err, message)
}

func normalizeMIME(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	return mimeType
}
