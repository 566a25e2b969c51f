package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Parse reads JSONC configuration content and overlays it onto base.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	if !strings.HasPrefix(trimmed, "{") {
		return Config{}, nil, errors.New("config must be a JSONC object")
	}
	return parseJSONC(content, base)
}

type jsoncConfig struct {
	OpenAI    *jsoncOpenAI    `json:"openai"`
	Audio     *jsoncAudio     `json:"audio"`
	Limits    *jsoncLimits    `json:"limits"`
	Speech    *jsoncSpeech    `json:"speech"`
	Indicator *jsoncIndicator `json:"indicator"`
	Output    *jsoncOutput    `json:"output"`
	Log       *jsoncLog       `json:"log"`
	Debug     *jsoncDebug     `json:"debug"`

	ClipboardCmd *string `json:"clipboard_cmd"`
}

type jsoncOpenAI struct {
	APIKeyEnv       *string `json:"api_key_env"`
	BaseURL         *string `json:"base_url"`
	TranscribeModel *string `json:"transcribe_model"`
	AnalyzeModel    *string `json:"analyze_model"`
	SpeechModel     *string `json:"speech_model"`
	Voice           *string `json:"voice"`
	TimeoutMS       *int    `json:"timeout_ms"`
	MaxRetries      *int    `json:"max_retries"`
}

type jsoncAudio struct {
	Input         *string          `json:"input"`
	Fallback      *string          `json:"fallback"`
	SampleRate    *int             `json:"sample_rate"`
	MaxDurationMS *int             `json:"max_duration_ms"`
	MaxBytes      *int             `json:"max_bytes"`
	Encodings     *jsoncStringList `json:"encodings"`
}

type jsoncLimits struct {
	MaxRequests *int `json:"max_requests"`
	WindowMS    *int `json:"window_ms"`
}

type jsoncSpeech struct {
	Enable *bool    `json:"enable"`
	Format *string  `json:"format"`
	Speed  *float64 `json:"speed"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	Backend        *string `json:"backend"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
	ErrorClearMS   *int    `json:"error_clear_ms"`
}

type jsoncOutput struct {
	Clipboard *bool   `json:"clipboard"`
	Field     *string `json:"field"`
}

type jsoncLog struct {
	Level      *string `json:"level"`
	MaxSizeMB  *int    `json:"max_size_mb"`
	MaxBackups *int    `json:"max_backups"`
	MaxAgeDays *int    `json:"max_age_days"`
	Compress   *bool   `json:"compress"`
}

type jsoncDebug struct {
	AudioDump *bool `json:"audio_dump"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	cfg.Audio.Encodings = append([]string(nil), base.Audio.Encodings...)
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if o := payload.OpenAI; o != nil {
		setString(&cfg.OpenAI.APIKeyEnv, o.APIKeyEnv)
		setString(&cfg.OpenAI.BaseURL, o.BaseURL)
		setString(&cfg.OpenAI.TranscribeModel, o.TranscribeModel)
		setString(&cfg.OpenAI.AnalyzeModel, o.AnalyzeModel)
		setString(&cfg.OpenAI.SpeechModel, o.SpeechModel)
		setString(&cfg.OpenAI.Voice, o.Voice)
		setInt(&cfg.OpenAI.TimeoutMS, o.TimeoutMS)
		setInt(&cfg.OpenAI.MaxRetries, o.MaxRetries)
	}

	if a := payload.Audio; a != nil {
		if a.Input != nil {
			cfg.Audio.Input = *a.Input
		}
		if a.Fallback != nil {
			cfg.Audio.Fallback = *a.Fallback
		}
		setInt(&cfg.Audio.SampleRate, a.SampleRate)
		setInt(&cfg.Audio.MaxDurationMS, a.MaxDurationMS)
		setInt(&cfg.Audio.MaxBytes, a.MaxBytes)
		if a.Encodings != nil {
			cfg.Audio.Encodings = cfg.Audio.Encodings[:0]
			for _, enc := range *a.Encodings {
				enc = strings.ToLower(strings.TrimSpace(enc))
				if enc == "" {
					continue
				}
				cfg.Audio.Encodings = append(cfg.Audio.Encodings, enc)
			}
		}
	}

	if l := payload.Limits; l != nil {
		setInt(&cfg.Limits.MaxRequests, l.MaxRequests)
		setInt(&cfg.Limits.WindowMS, l.WindowMS)
	}

	if s := payload.Speech; s != nil {
		if s.Enable != nil {
			cfg.Speech.Enable = *s.Enable
		}
		setString(&cfg.Speech.Format, s.Format)
		if s.Speed != nil {
			cfg.Speech.Speed = *s.Speed
		}
	}

	if i := payload.Indicator; i != nil {
		if i.Enable != nil {
			cfg.Indicator.Enable = *i.Enable
		}
		setString(&cfg.Indicator.Backend, i.Backend)
		setString(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		if i.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *i.SoundEnable
		}
		setInt(&cfg.Indicator.ErrorClearMS, i.ErrorClearMS)
	}

	if o := payload.Output; o != nil {
		if o.Clipboard != nil {
			cfg.Output.Clipboard = *o.Clipboard
		}
		setString(&cfg.Output.Field, o.Field)
	}

	if l := payload.Log; l != nil {
		setString(&cfg.Log.Level, l.Level)
		setInt(&cfg.Log.MaxSizeMB, l.MaxSizeMB)
		setInt(&cfg.Log.MaxBackups, l.MaxBackups)
		setInt(&cfg.Log.MaxAgeDays, l.MaxAgeDays)
		if l.Compress != nil {
			cfg.Log.Compress = *l.Compress
		}
	}

	if payload.ClipboardCmd != nil {
		cmd, err := ParseCommand(*payload.ClipboardCmd)
		if err != nil {
			return fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = cmd
	}

	if payload.Debug != nil && payload.Debug.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
	}

	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
