package config

import (
	"fmt"
	"strings"
)

var (
	supportedSpeechFormats = map[string]bool{"pcm": true, "mp3": true, "wav": true}
	supportedLogLevels     = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	supportedEncodings     = map[string]bool{"audio/webm": true, "audio/mp4": true, "audio/wav": true}
	maxProviderAudioBytes  = 25 * 1024 * 1024
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.OpenAI.APIKeyEnv) == "" {
		return nil, fmt.Errorf("openai.api_key_env must not be empty")
	}
	base := strings.TrimSpace(cfg.OpenAI.BaseURL)
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("openai.base_url must start with http:// or https://")
	}
	if strings.TrimSpace(cfg.OpenAI.TranscribeModel) == "" {
		return nil, fmt.Errorf("openai.transcribe_model must not be empty")
	}
	if strings.TrimSpace(cfg.OpenAI.AnalyzeModel) == "" {
		return nil, fmt.Errorf("openai.analyze_model must not be empty")
	}
	if strings.TrimSpace(cfg.OpenAI.SpeechModel) == "" {
		return nil, fmt.Errorf("openai.speech_model must not be empty")
	}
	if cfg.OpenAI.TimeoutMS <= 0 {
		return nil, fmt.Errorf("openai.timeout_ms must be > 0")
	}
	if cfg.OpenAI.MaxRetries < 0 {
		return nil, fmt.Errorf("openai.max_retries must be >= 0")
	}
	if cfg.OpenAI.MaxRetries > 0 {
		warnings = append(warnings, Warning{Message: "openai.max_retries > 0 lets one admitted request reach the provider more than once"})
	}

	if cfg.Audio.SampleRate <= 0 {
		return nil, fmt.Errorf("audio.sample_rate must be > 0")
	}
	if cfg.Audio.MaxDurationMS <= 0 {
		return nil, fmt.Errorf("audio.max_duration_ms must be > 0")
	}
	if cfg.Audio.MaxBytes <= 0 {
		return nil, fmt.Errorf("audio.max_bytes must be > 0")
	}
	if cfg.Audio.MaxBytes > maxProviderAudioBytes {
		return nil, fmt.Errorf("audio.max_bytes must be <= %d", maxProviderAudioBytes)
	}
	if len(cfg.Audio.Encodings) == 0 {
		return nil, fmt.Errorf("audio.encodings must not be empty")
	}
	for _, enc := range cfg.Audio.Encodings {
		if !supportedEncodings[enc] {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("audio.encodings entry %q is not recognized and will be skipped", enc)})
		}
	}

	if cfg.Limits.MaxRequests <= 0 {
		return nil, fmt.Errorf("limits.max_requests must be > 0")
	}
	if cfg.Limits.WindowMS <= 0 {
		return nil, fmt.Errorf("limits.window_ms must be > 0")
	}

	if !supportedSpeechFormats[strings.ToLower(cfg.Speech.Format)] {
		return nil, fmt.Errorf("speech.format must be one of: pcm, mp3, wav")
	}
	if cfg.Speech.Speed < 0.25 || cfg.Speech.Speed > 4.0 {
		return nil, fmt.Errorf("speech.speed must be between 0.25 and 4.0")
	}
	if cfg.Speech.Enable && strings.ToLower(cfg.Speech.Format) != "pcm" {
		warnings = append(warnings, Warning{Message: "speech.format other than pcm cannot be played through PulseAudio; replies will be skipped"})
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorClearMS < 0 {
		return nil, fmt.Errorf("indicator.error_clear_ms must be >= 0")
	}

	switch cfg.Output.Field {
	case OutputFieldTranscript, OutputFieldSimplified, OutputFieldResponse:
	default:
		return nil, fmt.Errorf("output.field must be one of: transcript, simplified, response")
	}
	if cfg.Output.Clipboard && len(cfg.Clipboard.Argv) == 0 {
		return nil, fmt.Errorf("clipboard_cmd must not be empty when output.clipboard=true")
	}

	if !supportedLogLevels[strings.ToLower(cfg.Log.Level)] {
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	if cfg.Log.MaxSizeMB <= 0 {
		return nil, fmt.Errorf("log.max_size_mb must be > 0")
	}
	if cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return nil, fmt.Errorf("log.max_backups and log.max_age_days must be >= 0")
	}

	return warnings, nil
}
