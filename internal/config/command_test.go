package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "", want: nil},
		{name: "simple", input: "wl-copy --trim-newline", want: []string{"wl-copy", "--trim-newline"}},
		{name: "quoted spaces", input: `xclip -selection "clip board"`, want: []string{"xclip", "-selection", "clip board"}},
		{name: "single quote", input: `mycmd --name 'hello world'`, want: []string{"mycmd", "--name", "hello world"}},
		{name: "escaped space", input: `mycmd hello\ world`, want: []string{"mycmd", "hello world"}},
		{name: "disabled", input: `# wl-copy --trim-newline`, want: nil},
		{name: "unterminated quote", input: `mycmd "oops`, wantErr: "unterminated quote"},
		{name: "unterminated escape", input: `mycmd hello\`, wantErr: "unterminated escape"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := splitCommand(tc.input)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommandExpandsHomeForProgram(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cmd, err := ParseCommand("~/bin/copy ~/notes")
	require.NoError(t, err)
	require.Equal(t, "~/bin/copy ~/notes", cmd.Raw)
	require.Equal(t, []string{filepath.Join(home, "bin", "copy"), "~/notes"}, cmd.Argv)
}

func TestMustCommandPanicsOnInvalidInput(t *testing.T) {
	require.Panics(t, func() {
		_ = mustCommand(`mycmd "unterminated`)
	})
}
