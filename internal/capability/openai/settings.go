package openai

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	appconfig "github.com/rbright/askit/internal/config"
)

// ErrMissingKey reports that the configured credential variable is unset.
var ErrMissingKey = errors.New("openai: api key not set")

// FromConfig builds a Provider from runtime settings, reading the API key
// from the configured environment variable.
func FromConfig(cfg appconfig.OpenAIConfig) (*Provider, error) {
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("%w: %s is empty", ErrMissingKey, cfg.APIKeyEnv)
	}

	opts := []Option{WithMaxRetries(cfg.MaxRetries)}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, WithBaseURL(base))
	}
	if cfg.TimeoutMS > 0 {
		opts = append(opts, WithTimeout(time.Duration(cfg.TimeoutMS)*time.Millisecond))
	}
	return New(key, opts...)
}
