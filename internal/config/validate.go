package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rbright/presto/internal/event"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.Backend {
	case BackendAuto, BackendKeys, BackendClipboard:
	default:
		return nil, fmt.Errorf("backend must be one of: auto, keys, clipboard")
	}
	if cfg.ClipboardThreshold < 0 {
		return nil, fmt.Errorf("clipboard_threshold must be >= 0")
	}
	if cfg.Keys.BackspaceCmd.IsZero() {
		return nil, fmt.Errorf("keys.backspace_cmd must not be empty")
	}
	if cfg.Backend != BackendClipboard && cfg.Keys.TypeCmd.IsZero() {
		return nil, fmt.Errorf("keys.type_cmd must not be empty when backend=%s", cfg.Backend)
	}
	if cfg.Backend != BackendKeys {
		if cfg.Clipboard.CopyCmd.IsZero() {
			return nil, fmt.Errorf("clipboard.copy_cmd must not be empty when backend=%s", cfg.Backend)
		}
		if cfg.Clipboard.PasteCmd.IsZero() && strings.TrimSpace(cfg.Clipboard.PasteShortcut) == "" {
			return nil, fmt.Errorf("clipboard.paste_shortcut must not be empty when clipboard.paste_cmd is unset")
		}
		if cfg.Clipboard.PasteDelayMS < 0 {
			return nil, fmt.Errorf("clipboard.paste_delay_ms must be >= 0")
		}
	}
	if cfg.BackspaceLimit < 0 {
		return nil, fmt.Errorf("backspace_limit must be >= 0")
	}
	if cfg.WordSeparators == "" {
		warnings = append(warnings, Warning{Message: "word_separators is empty; using default separators"})
	}
	if _, err := cfg.Classes(); err != nil {
		return nil, err
	}

	if cfg.Selector.TimeoutMS < 0 {
		return nil, fmt.Errorf("selector.timeout_ms must be >= 0")
	}
	seen := make(map[string]struct{}, len(cfg.Selector.TieBreak))
	for _, key := range cfg.Selector.TieBreak {
		switch key {
		case TieBreakPriority, TieBreakSpecificity, TieBreakModified:
		default:
			return nil, fmt.Errorf("selector.tie_break: unknown key %q (want priority, specificity, modified)", key)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("selector.tie_break: duplicate key %q", key)
		}
		seen[key] = struct{}{}
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if !cfg.Sources.Evdev && !cfg.Sources.Focus {
		return nil, fmt.Errorf("sources: at least one of evdev, focus must be enabled")
	}
	if !cfg.Sources.Evdev {
		warnings = append(warnings, Warning{Message: "sources.evdev is disabled; no keystrokes will be observed"})
	}

	return warnings, nil
}

// Classes converts special_keys into classifier overrides.
func (cfg Config) Classes() (map[event.Key]event.Class, error) {
	classes := make(map[event.Key]event.Class, len(cfg.SpecialKeys))
	for name, raw := range cfg.SpecialKeys {
		key, ok := event.ParseKey(name)
		if !ok {
			return nil, fmt.Errorf("special_keys: unknown key %q", name)
		}
		class, err := event.ParseClass(raw)
		if err != nil {
			return nil, fmt.Errorf("special_keys.%s: %w", name, err)
		}
		classes[key] = class
	}
	return classes, nil
}

// validateMatches reports duplicate triggers and empty replacements.
func validateMatches(defs []MatchDefinition) []Warning {
	warnings := make([]Warning, 0)
	owners := make(map[string][]string)

	for _, def := range defs {
		if def.Replace == "" {
			warnings = append(warnings, Warning{File: def.File, Message: fmt.Sprintf("match %s has an empty replacement", def.ID)})
		}
		for _, trigger := range def.Triggers {
			if def.Filter.Empty() {
				owners[trigger] = append(owners[trigger], def.ID)
			}
		}
	}

	triggers := make([]string, 0, len(owners))
	for trigger, ids := range owners {
		if len(ids) > 1 {
			triggers = append(triggers, trigger)
		}
	}
	sort.Strings(triggers)
	for _, trigger := range triggers {
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("trigger %q is defined by %s; the selector resolves it at runtime", trigger, strings.Join(owners[trigger], ", ")),
		})
	}
	return warnings
}
