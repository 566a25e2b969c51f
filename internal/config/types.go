// Package config resolves, parses, validates, and defaults askit configuration.
package config

// Config is the fully materialized runtime configuration used by askit.
type Config struct {
	OpenAI    OpenAIConfig
	Audio     AudioConfig
	Limits    LimitsConfig
	Speech    SpeechConfig
	Indicator IndicatorConfig
	Output    OutputConfig
	Clipboard CommandConfig
	Log       LogConfig
	Debug     DebugConfig
}

// OpenAIConfig controls the capability provider endpoint and models.
type OpenAIConfig struct {
	APIKeyEnv       string
	BaseURL         string
	TranscribeModel string
	AnalyzeModel    string
	SpeechModel     string
	Voice           string
	TimeoutMS       int
	MaxRetries      int
}

// AudioConfig controls input-source selection and recording limits.
type AudioConfig struct {
	Input         string
	Fallback      string
	SampleRate    int
	MaxDurationMS int
	MaxBytes      int
	Encodings     []string
}

// LimitsConfig controls the shared outbound request window.
type LimitsConfig struct {
	MaxRequests int
	WindowMS    int
}

// SpeechConfig controls spoken replies.
type SpeechConfig struct {
	Enable bool
	Format string
	Speed  float64
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	Backend        string
	DesktopAppName string
	SoundEnable    bool
	ErrorClearMS   int
}

// OutputConfig controls what the clipboard consumer receives.
type OutputConfig struct {
	Clipboard bool
	Field     string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// LogConfig controls the JSONL log file.
type LogConfig struct {
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

const (
	OutputFieldTranscript = "transcript"
	OutputFieldSimplified = "simplified"
	OutputFieldResponse   = "response"
)
