// Package cli parses askit command lines.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandToggle   Command = "toggle"
	CommandStop     Command = "stop"
	CommandCancel   Command = "cancel"
	CommandStatus   Command = "status"
	CommandDevices  Command = "devices"
	CommandDoctor   Command = "doctor"
	CommandSimplify Command = "simplify"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandToggle:   {},
	CommandStop:     {},
	CommandCancel:   {},
	CommandStatus:   {},
	CommandDevices:  {},
	CommandDoctor:   {},
	CommandSimplify: {},
	CommandVersion:  {},
	CommandHelp:     {},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Language   string
	Text       string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--lang":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--lang requires a language code")
			}
			parsed.Language = strings.TrimSpace(args[i])
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp

			if cmd == CommandSimplify {
				parsed.Text = strings.TrimSpace(strings.Join(args[i+1:], " "))
				return parsed, nil
			}
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	if parsed.Language != "" && parsed.Command != CommandSimplify {
		return Parsed{}, errors.New("--lang only applies to simplify")
	}
	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command>
  %[1]s [--config PATH] [--lang CODE] simplify [text...]

Commands:
  toggle    Start listening, or stop and answer when already listening
  stop      Stop listening and process the utterance
  cancel    Discard the recording, or stop a spoken reply
  status    Print current state
  devices   List available input devices
  doctor    Run configuration, audio, and provider checks
  simplify  Rewrite text (args or stdin) in plain language
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/askit/config.jsonc)
  --lang CODE     Target language for simplify (en, hi)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
