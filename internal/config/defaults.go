package config

import "github.com/rbright/presto/internal/matcher"

// DefaultClipboardThreshold is the replacement length above which the auto
// backend switches from simulated keys to the clipboard.
const DefaultClipboardThreshold = 100

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Backend:            BackendAuto,
		ClipboardThreshold: DefaultClipboardThreshold,
		Keys: KeysConfig{
			TypeCmd:      mustCommand("wtype -"),
			BackspaceCmd: mustCommand("wtype -k BackSpace"),
		},
		Clipboard: ClipboardConfig{
			CopyCmd:       mustCommand("wl-copy --trim-newline"),
			PasteShortcut: "CTRL,V",
			PasteDelayMS:  30,
		},
		BackspaceLimit: matcher.DefaultHistoryLimit,
		WordSeparators: matcher.DefaultSeparators,
		UndoBackspace:  true,
		SpecialKeys:    map[string]string{},
		Selector: SelectorConfig{
			TimeoutMS: 30000,
			TieBreak:  []string{TieBreakPriority, TieBreakSpecificity, TieBreakModified},
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "presto",
			ErrorTimeoutMS: 1600,
		},
		Sources: SourcesConfig{
			Evdev: true,
			Focus: true,
		},
		Health: HealthConfig{Enable: true},
		Watch:  true,
	}
}

func mustCommand(raw string) CommandConfig {
	return CommandConfig{Raw: raw, Argv: mustParseArgv(raw)}
}
