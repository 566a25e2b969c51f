// Package hypr wraps the hyprctl calls used for on-screen status.
package hypr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoSession is returned when no Hyprland instance is reachable.
var ErrNoSession = errors.New("hyprland session not detected")

type monitor struct {
	Name    string `json:"name"`
	Focused bool   `json:"focused"`
}

// Version is the subset of `hyprctl -j version` used for diagnostics.
type Version struct {
	Tag    string `json:"tag"`
	Commit string `json:"commit"`
}

// QueryVersion confirms a live Hyprland session and returns its version.
func QueryVersion(ctx context.Context) (Version, error) {
	if strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) == "" {
		return Version{}, ErrNoSession
	}
	output, err := runHyprctlOutput(ctx, "-j", "version")
	if err != nil {
		return Version{}, err
	}
	var v Version
	if err := json.Unmarshal(output, &v); err != nil {
		return Version{}, fmt.Errorf("decode hyprctl version json: %w", err)
	}
	return v, nil
}

// QueryFocusedMonitor returns the focused monitor name (or the first monitor fallback).
func QueryFocusedMonitor(ctx context.Context) (string, error) {
	output, err := runHyprctlOutput(ctx, "-j", "monitors")
	if err != nil {
		return "", err
	}

	var monitors []monitor
	if err := json.Unmarshal(output, &monitors); err != nil {
		return "", fmt.Errorf("decode hyprctl monitors json: %w", err)
	}
	for _, mon := range monitors {
		if mon.Focused {
			return strings.TrimSpace(mon.Name), nil
		}
	}
	if len(monitors) == 0 {
		return "", fmt.Errorf("hyprctl monitors returned no outputs")
	}
	return strings.TrimSpace(monitors[0].Name), nil
}

// Notify sends a Hyprland notification payload.
func Notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if strings.TrimSpace(color) == "" {
		color = "rgb(89b4fa)"
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("notify requires non-empty text")
	}
	_, err := runHyprctlOutput(ctx,
		"--quiet",
		"dispatch",
		"notify",
		strconv.Itoa(icon),
		strconv.Itoa(timeoutMS),
		color,
		text,
	)
	return err
}

// DismissNotify dismisses active Hyprland notifications.
func DismissNotify(ctx context.Context) error {
	_, err := runHyprctlOutput(ctx, "--quiet", "dispatch", "dismissnotify")
	return err
}

func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "hyprctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}
