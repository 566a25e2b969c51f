// Package doctor runs runtime readiness diagnostics for config, tools, audio,
// and the AI provider.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/askit/internal/audio"
	"github.com/rbright/askit/internal/capability/openai"
	"github.com/rbright/askit/internal/config"
	"github.com/rbright/askit/internal/hypr"
)

const providerTimeout = 5 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkEnv(cfg.Config.OpenAI.APIKeyEnv, func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "credential present", cfg.Config.OpenAI.APIKeyEnv+" is empty"))

	if cfg.Config.Output.Clipboard {
		checks = append(checks, checkCommand(cfg.Config.Clipboard.Argv, "clipboard_cmd"))
	}

	if cfg.Config.Indicator.Enable {
		if strings.EqualFold(strings.TrimSpace(cfg.Config.Indicator.Backend), "desktop") {
			checks = append(checks, checkBinary("busctl", "desktop indicator requires busctl"))
		} else {
			checks = append(checks, checkHyprland(ctx))
		}
	}

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkProvider(ctx, cfg.Config.OpenAI))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkHyprland confirms the session and reports the compositor version.
func checkHyprland(ctx context.Context) Check {
	version, err := hypr.QueryVersion(ctx)
	if err != nil {
		return Check{Name: "hyprland", Pass: false, Message: err.Error()}
	}
	tag := version.Tag
	if tag == "" {
		tag = "unknown version"
	}
	return Check{Name: "hyprland", Pass: true, Message: tag}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkProvider resolves the transcription model through the configured API.
func checkProvider(ctx context.Context, cfg config.OpenAIConfig) Check {
	provider, err := openai.FromConfig(cfg)
	if err != nil {
		return Check{Name: "provider", Pass: false, Message: err.Error()}
	}

	pingCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	if err := provider.Ping(pingCtx, cfg.TranscribeModel); err != nil {
		return Check{Name: "provider", Pass: false, Message: err.Error()}
	}
	return Check{Name: "provider", Pass: true, Message: fmt.Sprintf("model %q reachable", cfg.TranscribeModel)}
}
