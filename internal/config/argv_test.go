package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseArgv(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "", want: nil},
		{name: "simple", input: "wtype -k BackSpace", want: []string{"wtype", "-k", "BackSpace"}},
		{name: "quoted spaces", input: `fuzzel --dmenu --prompt "pick one"`, want: []string{"fuzzel", "--dmenu", "--prompt", "pick one"}},
		{name: "single quote keeps backslash", input: `printf 'a\nb'`, want: []string{"printf", `a\nb`}},
		{name: "escaped space", input: `mycmd hello\ world`, want: []string{"mycmd", "hello world"}},
		{name: "empty quoted arg", input: `wofi --prompt ""`, want: []string{"wofi", "--prompt", ""}},
		{name: "unterminated quote", input: `mycmd "oops`, wantErr: "unterminated quote"},
		{name: "unterminated escape", input: `mycmd hello\`, wantErr: "unterminated escape"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgv(tc.input)
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

func TestCommandConfigUnmarshalYAML(t *testing.T) {
	var doc struct {
		Cmd CommandConfig `yaml:"cmd"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(`cmd: "wl-copy --trim-newline"`), &doc))
	require.Equal(t, "wl-copy --trim-newline", doc.Cmd.Raw)
	require.Equal(t, []string{"wl-copy", "--trim-newline"}, doc.Cmd.Argv)

	err := yaml.Unmarshal([]byte("cmd: \"wl-copy 'oops\""), &doc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated quote")

	err = yaml.Unmarshal([]byte("cmd: [a, b]"), &doc)
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be a string")
}

func TestMustParseArgvPanicsOnInvalidInput(t *testing.T) {
	require.Panics(t, func() {
		_ = mustParseArgv(`mycmd "unterminated`)
	})
}
