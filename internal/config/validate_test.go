package config

import (
	"testing"

	"github.com/rbright/presto/internal/event"
	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "unknown backend", mutate: func(c *Config) { c.Backend = "xdotool" }, wantErr: "backend must be one of"},
		{name: "negative threshold", mutate: func(c *Config) { c.ClipboardThreshold = -1 }, wantErr: "clipboard_threshold"},
		{name: "empty backspace", mutate: func(c *Config) { c.Keys.BackspaceCmd = CommandConfig{} }, wantErr: "keys.backspace_cmd"},
		{name: "empty type cmd", mutate: func(c *Config) { c.Keys.TypeCmd = CommandConfig{} }, wantErr: "keys.type_cmd"},
		{name: "empty copy cmd", mutate: func(c *Config) { c.Clipboard.CopyCmd = CommandConfig{} }, wantErr: "clipboard.copy_cmd"},
		{name: "missing paste shortcut", mutate: func(c *Config) { c.Clipboard.PasteShortcut = "" }, wantErr: "clipboard.paste_shortcut"},
		{name: "negative backspace limit", mutate: func(c *Config) { c.BackspaceLimit = -1 }, wantErr: "backspace_limit"},
		{name: "unknown special key", mutate: func(c *Config) { c.SpecialKeys = map[string]string{"f13": "reset"} }, wantErr: "unknown key"},
		{name: "bad special class", mutate: func(c *Config) { c.SpecialKeys = map[string]string{"tab": "two"} }, wantErr: "special_keys.tab"},
		{name: "unknown tie break", mutate: func(c *Config) { c.Selector.TieBreak = []string{"random"} }, wantErr: "unknown key"},
		{name: "duplicate tie break", mutate: func(c *Config) { c.Selector.TieBreak = []string{"priority", "priority"} }, wantErr: "duplicate"},
		{name: "negative selector timeout", mutate: func(c *Config) { c.Selector.TimeoutMS = -1 }, wantErr: "selector.timeout_ms"},
		{name: "bad indicator backend", mutate: func(c *Config) { c.Indicator.Backend = "tray" }, wantErr: "indicator.backend"},
		{name: "negative error timeout", mutate: func(c *Config) { c.Indicator.ErrorTimeoutMS = -1 }, wantErr: "error_timeout"},
		{name: "no sources", mutate: func(c *Config) {
			c.Sources.Evdev = false
			c.Sources.Focus = false
		}, wantErr: "sources"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateKeysBackendSkipsClipboardChecks(t *testing.T) {
	cfg := Default()
	cfg.Backend = BackendKeys
	cfg.Clipboard = ClipboardConfig{}

	_, err := Validate(cfg)
	require.NoError(t, err)
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.WordSeparators = ""
	cfg.Sources.Evdev = false

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
}

func TestConfigClasses(t *testing.T) {
	cfg := Default()
	cfg.SpecialKeys = map[string]string{"escape": "ignore", "enter": "reset", "tab": " "}

	classes, err := cfg.Classes()
	require.NoError(t, err)
	require.Equal(t, map[event.Key]event.Class{
		event.KeyEscape: {Action: event.ClassIgnore},
		event.KeyEnter:  {Action: event.ClassReset},
		event.KeyTab:    {Action: event.ClassChar, Char: ' '},
	}, classes)
}

func TestValidateMatchesWarnsOnDuplicatesAndEmptyReplacement(t *testing.T) {
	scoped, err := compileFilter("kitty", "")
	require.NoError(t, err)

	defs := []MatchDefinition{
		{ID: "a.yml#0", Triggers: []string{"btw"}, Replace: "by the way"},
		{ID: "b.yml#0", Triggers: []string{"btw", "omw"}, Replace: "between"},
		{ID: "b.yml#1", Triggers: []string{"btw"}, Replace: "", Filter: scoped},
	}

	warnings := validateMatches(defs)
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0].Message, "b.yml#1 has an empty replacement")
	require.Contains(t, warnings[1].Message, `trigger "btw" is defined by a.yml#0, b.yml#0`)
}
