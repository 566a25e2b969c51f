package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// maxMessageBytes bounds one JSON line in either direction.
const maxMessageBytes = 64 << 10

var errMessageTooLarge = errors.New("message exceeds 64 KiB")

// readLine reads one newline-terminated message of at most maxMessageBytes.
func readLine(r io.Reader) ([]byte, error) {
	reader := bufio.NewReaderSize(io.LimitReader(r, maxMessageBytes+1), 4096)
	line, err := reader.ReadBytes('\n')
	if len(line) > maxMessageBytes {
		return nil, errMessageTooLarge
	}
	if err != nil {
		return nil, err
	}
	return line, nil
}

// decodeLine reads and unmarshals one message. what names the message kind
// ("request" or "response") in errors.
func decodeLine(r io.Reader, what string, v any) error {
	line, err := readLine(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", what, err)
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("decode %s: %w", what, err)
	}
	return nil
}

// encodeLine writes v as one JSON line.
func encodeLine(w io.Writer, what string, v any) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", what, err)
	}
	return nil
}

func normalizeCommand(command string) string {
	return strings.ToLower(strings.TrimSpace(command))
}
