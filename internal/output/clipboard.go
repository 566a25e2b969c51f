// Package output delivers finished utterances to the clipboard.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/askit/internal/capability"
	"github.com/rbright/askit/internal/config"
)

const clipboardTimeout = 2 * time.Second

// Clipboard copies one field of each finished utterance through the
// configured clipboard command.
type Clipboard struct {
	config config.Config
	logger *slog.Logger
}

// NewClipboard constructs a clipboard consumer from runtime config.
func NewClipboard(cfg config.Config, logger *slog.Logger) *Clipboard {
	return &Clipboard{config: cfg, logger: logger}
}

// OnTranscription writes the selected field to the clipboard. Empty text is
// skipped.
func (c *Clipboard) OnTranscription(ctx context.Context, transcript string, analysis capability.IntentAnalysis) error {
	if !c.config.Output.Clipboard {
		return nil
	}

	text := strings.TrimSpace(Select(c.config.Output.Field, transcript, analysis))
	if text == "" {
		return nil
	}

	clipboardCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runCommandWithInput(clipboardCtx, c.config.Clipboard.Argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("clipboard updated", "field", c.config.Output.Field, "chars", len([]rune(text)))
	}
	return nil
}

// Select picks the configured output field. Simplified and response fields
// fall back to the transcript when the analysis left them empty.
func Select(field string, transcript string, analysis capability.IntentAnalysis) string {
	switch field {
	case config.OutputFieldSimplified:
		if analysis.SimplifiedQuery != "" {
			return analysis.SimplifiedQuery
		}
	case config.OutputFieldResponse:
		if analysis.Response != "" {
			return analysis.Response
		}
	}
	return transcript
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}
