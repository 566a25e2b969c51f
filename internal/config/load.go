package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Environment variables that override file values at load time.
const (
	EnvBaseURL  = "ASKIT_OPENAI_BASE_URL"
	EnvLogLevel = "ASKIT_LOG_LEVEL"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves and reads the config file, applies environment overrides,
// and validates the result. A missing file yields defaults plus a warning.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}

	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		cfg, warnings, err := Parse(string(content), loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		loaded.Config = cfg
		loaded.Warnings = append(loaded.Warnings, warnings...)
		loaded.Exists = true
	}

	if !applyEnv(&loaded.Config) {
		return loaded, nil
	}
	warnings, err := Validate(loaded.Config)
	if err != nil {
		return Loaded{}, fmt.Errorf("environment override: %w", err)
	}
	loaded.Warnings = appendNewWarnings(loaded.Warnings, warnings)
	return loaded, nil
}

// applyEnv reports whether any override was set.
func applyEnv(cfg *Config) bool {
	changed := false
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.OpenAI.BaseURL = v
		changed = true
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = strings.ToLower(v)
		changed = true
	}
	return changed
}

func appendNewWarnings(existing []Warning, more []Warning) []Warning {
	seen := make(map[string]struct{}, len(existing))
	for _, w := range existing {
		seen[w.Message] = struct{}{}
	}
	for _, w := range more {
		if _, ok := seen[w.Message]; ok {
			continue
		}
		existing = append(existing, w)
	}
	return existing
}
