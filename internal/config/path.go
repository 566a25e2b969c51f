package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath points at a config file when --config is absent.
const EnvConfigPath = "ASKIT_CONFIG"

// ResolvePath picks the config location: explicit flag, $ASKIT_CONFIG,
// $XDG_CONFIG_HOME/askit/config.jsonc, then ~/.config/askit/config.jsonc.
func ResolvePath(explicit string) (string, error) {
	for _, candidate := range []string{explicit, os.Getenv(EnvConfigPath)} {
		if strings.TrimSpace(candidate) != "" {
			return candidate, nil
		}
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "askit", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "askit", "config.jsonc"), nil
}
