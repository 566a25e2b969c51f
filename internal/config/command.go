package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ParseCommand splits a shell-like command string into argv. Quotes and
// backslash escapes group words; a leading `#` disables the command; a
// leading `~/` on the program is expanded to the user's home.
func ParseCommand(raw string) (CommandConfig, error) {
	argv, err := splitCommand(raw)
	if err != nil {
		return CommandConfig{}, err
	}
	if len(argv) > 0 {
		argv[0] = expandHome(argv[0])
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func mustCommand(raw string) CommandConfig {
	cmd, err := ParseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}

type commandSplitter struct {
	argv    []string
	current strings.Builder
	quote   rune
	escape  bool
}

func (s *commandSplitter) flush() {
	if s.current.Len() == 0 {
		return
	}
	s.argv = append(s.argv, s.current.String())
	s.current.Reset()
}

func (s *commandSplitter) feed(r rune) {
	switch {
	case s.escape:
		s.current.WriteRune(r)
		s.escape = false
	case r == '\\':
		s.escape = true
	case s.quote != 0:
		if r == s.quote {
			s.quote = 0
			return
		}
		s.current.WriteRune(r)
	case r == '\'' || r == '"':
		s.quote = r
	case unicode.IsSpace(r):
		s.flush()
	default:
		s.current.WriteRune(r)
	}
}

func splitCommand(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	var s commandSplitter
	for _, r := range input {
		s.feed(r)
	}

	if s.escape {
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", input)
	}
	if s.quote != 0 {
		return nil, fmt.Errorf("unterminated quote in command: %q", input)
	}

	s.flush()
	return s.argv, nil
}

func expandHome(program string) string {
	if !strings.HasPrefix(program, "~/") {
		return program
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return program
	}
	return filepath.Join(home, program[2:])
}
