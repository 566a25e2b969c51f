package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolvePathPrecedence(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/from-env.jsonc")
	explicit := "/tmp/custom.jsonc"
	resolved, err := ResolvePath(explicit)
	require.NoError(t, err)
	require.Equal(t, explicit, resolved)

	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-env.jsonc", resolved)
	t.Setenv(EnvConfigPath, "")

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(xdg, "askit", "config.jsonc"), resolved)

	t.Setenv("XDG_CONFIG_HOME", "")
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err = ResolvePath("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "askit", "config.jsonc"), resolved)
}

func TestLoadMissingConfigUsesDefaultsWithWarning(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvLogLevel, "")
	path := filepath.Join(t.TempDir(), "missing.jsonc")

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, path, loaded.Path)
	require.False(t, loaded.Exists)
	require.Equal(t, Default(), loaded.Config)
	require.NotEmpty(t, loaded.Warnings)
	require.Contains(t, loaded.Warnings[0].Message, "not found")
}

func TestLoadExistingJSONCParsesAndValidates(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	path := filepath.Join(t.TempDir(), "config.jsonc")
	contents := `
{
  "openai": {
    "base_url": "http://127.0.0.1:8080/v1"
  },
  "audio": {
    "input": "default",
    "fallback": "default"
  },
  "speech": {
    "enable": false
  }
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.True(t, loaded.Exists)
	require.Equal(t, path, loaded.Path)
	require.Equal(t, "http://127.0.0.1:8080/v1", loaded.Config.OpenAI.BaseURL)
	require.False(t, loaded.Config.Speech.Enable)
}

func TestLoadParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jsonc")
	require.NoError(t, os.WriteFile(path, []byte("{ not-json }"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
	require.Contains(t, err.Error(), path)
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvBaseURL, "http://proxy.local/v1/")
	t.Setenv(EnvLogLevel, "DEBUG")

	path := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(`{"openai": {"base_url": "http://file.local/v1"}}`), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://proxy.local/v1/", loaded.Config.OpenAI.BaseURL)
	require.Equal(t, "debug", loaded.Config.Log.Level)
}

func TestLoadRejectsInvalidEnvironmentOverride(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	t.Setenv(EnvLogLevel, "chatty")

	_, err := Load(filepath.Join(t.TempDir(), "missing.jsonc"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "environment override")
	require.Contains(t, err.Error(), "log.level")
}
