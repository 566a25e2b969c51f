package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type desktopNotification struct {
	appName   string
	replaceID uint32
	summary   string
	timeoutMS int
	critical  bool
}

// desktopNotifyArgs builds the busctl Notify call. Errors carry the
// critical urgency hint so they survive do-not-disturb.
func desktopNotifyArgs(n desktopNotification) []string {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		n.appName,
		strconv.FormatUint(uint64(n.replaceID), 10),
		"audio-input-microphone",
		n.summary,
		"",
		"0",
	}
	if n.critical {
		args = append(args, "1", "urgency", "y", "2")
	} else {
		args = append(args, "0")
	}
	return append(args, strconv.Itoa(n.timeoutMS))
}

// desktopNotify sends a freedesktop notification over DBus via busctl and
// returns the server-assigned ID.
func desktopNotify(ctx context.Context, n desktopNotification) (uint32, error) {
	out, err := exec.CommandContext(ctx, "busctl", desktopNotifyArgs(n)...).CombinedOutput()
	if err != nil {
		return 0, busctlError("desktop notify", err, out)
	}
	return parseNotificationID(out)
}

func parseNotificationID(out []byte) (uint32, error) {
	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}

	value, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], err)
	}
	return uint32(value), nil
}

// desktopDismiss requests explicit close by notification ID.
func desktopDismiss(ctx context.Context, id uint32) error {
	out, err := exec.CommandContext(ctx, "busctl",
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"CloseNotification",
		"u",
		strconv.FormatUint(uint64(id), 10),
	).CombinedOutput()
	if err != nil {
		return busctlError("desktop dismiss", err, out)
	}
	return nil
}

func busctlError(op string, err error, out []byte) error {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return fmt.Errorf("%s failed: %w (%s)", op, err, trimmed)
}
