package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		OpenAI: OpenAIConfig{
			APIKeyEnv:       "OPENAI_API_KEY",
			TranscribeModel: "whisper-1",
			AnalyzeModel:    "gpt-4",
			SpeechModel:     "tts-1",
			Voice:           "nova",
			TimeoutMS:       30000,
			MaxRetries:      0,
		},
		Audio: AudioConfig{
			Input:         "default",
			Fallback:      "default",
			SampleRate:    44100,
			MaxDurationMS: 30000,
			MaxBytes:      25 * 1024 * 1024,
			Encodings:     []string{"audio/webm", "audio/mp4", "audio/wav"},
		},
		Limits: LimitsConfig{
			MaxRequests: 10,
			WindowMS:    60000,
		},
		Speech: SpeechConfig{
			Enable: true,
			Format: "pcm",
			Speed:  0.9,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "askit-indicator",
			SoundEnable:    true,
			ErrorClearMS:   5000,
		},
		Output: OutputConfig{
			Clipboard: true,
			Field:     OutputFieldTranscript,
		},
		Clipboard: mustCommand(clipboard),
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Debug: DebugConfig{},
	}
}
