// Package config resolves, parses, validates, and snapshots presto configuration.
package config

import (
	"regexp"
	"time"

	"github.com/rbright/presto/internal/event"
)

// Backend selects how replacement text reaches the focused application.
type Backend string

const (
	BackendAuto      Backend = "auto"
	BackendKeys      Backend = "keys"
	BackendClipboard Backend = "clipboard"
)

// Tie-break keys accepted by selector.tie_break.
const (
	TieBreakPriority    = "priority"
	TieBreakSpecificity = "specificity"
	TieBreakModified    = "modified"
)

// Config is the fully materialized engine configuration from config/default.yml.
type Config struct {
	Backend            Backend           `yaml:"backend"`
	ClipboardThreshold int               `yaml:"clipboard_threshold"`
	Keys               KeysConfig        `yaml:"keys"`
	Clipboard          ClipboardConfig   `yaml:"clipboard"`
	BackspaceLimit     int               `yaml:"backspace_limit"`
	WordSeparators     string            `yaml:"word_separators"`
	UndoBackspace      bool              `yaml:"undo_backspace"`
	SpecialKeys        map[string]string `yaml:"special_keys"`
	Selector           SelectorConfig    `yaml:"selector"`
	Indicator          IndicatorConfig   `yaml:"indicator"`
	Sources            SourcesConfig     `yaml:"sources"`
	Health             HealthConfig      `yaml:"health"`
	Watch              bool              `yaml:"watch"`
}

// KeysConfig drives the simulated-keystroke executor.
type KeysConfig struct {
	TypeCmd      CommandConfig `yaml:"type_cmd"`
	BackspaceCmd CommandConfig `yaml:"backspace_cmd"`
}

// ClipboardConfig drives the clipboard+paste executor.
type ClipboardConfig struct {
	CopyCmd       CommandConfig `yaml:"copy_cmd"`
	PasteShortcut string        `yaml:"paste_shortcut"`
	PasteCmd      CommandConfig `yaml:"paste_cmd"`
	PasteDelayMS  int           `yaml:"paste_delay_ms"`
}

// SelectorConfig controls ambiguous-match resolution.
type SelectorConfig struct {
	Cmd       CommandConfig `yaml:"cmd"`
	TimeoutMS int           `yaml:"timeout_ms"`
	TieBreak  []string      `yaml:"tie_break"`
}

// IndicatorConfig controls failure notifications and audio cues.
type IndicatorConfig struct {
	Enable         bool   `yaml:"enable"`
	Backend        string `yaml:"backend"`
	DesktopAppName string `yaml:"desktop_app_name"`
	SoundEnable    bool   `yaml:"sound_enable"`
	SoundFile      string `yaml:"sound_file"`
	ErrorTimeoutMS int    `yaml:"error_timeout_ms"`
}

// SourcesConfig selects the event sources started by `presto run`.
type SourcesConfig struct {
	Evdev   bool     `yaml:"evdev"`
	Devices []string `yaml:"devices"`
	Focus   bool     `yaml:"focus"`
}

// HealthConfig toggles the gRPC health endpoint.
type HealthConfig struct {
	Enable bool `yaml:"enable"`
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	File    string
	Line    int
	Message string
}

// AppContext identifies the focused application.
type AppContext struct {
	Class string
	Title string
}

// IsZero reports whether the context carries no identity at all.
func (c AppContext) IsZero() bool {
	return c.Class == "" && c.Title == ""
}

// Filter scopes matches or app configs to applications.
type Filter struct {
	Class *regexp.Regexp
	Title *regexp.Regexp
}

// Empty reports whether the filter applies everywhere.
func (f Filter) Empty() bool {
	return f.Class == nil && f.Title == nil
}

// Matches reports whether every configured expression matches ctx.
func (f Filter) Matches(ctx AppContext) bool {
	if f.Class != nil && !f.Class.MatchString(ctx.Class) {
		return false
	}
	if f.Title != nil && !f.Title.MatchString(ctx.Title) {
		return false
	}
	return true
}

// Specificity counts the configured expressions.
func (f Filter) Specificity() int {
	n := 0
	if f.Class != nil {
		n++
	}
	if f.Title != nil {
		n++
	}
	return n
}

// AppConfig is one config/<name>.yml application override.
type AppConfig struct {
	Name   string
	Path   string
	Filter Filter
	Enable bool
}

// Uppercase styles applied when propagating an upper-case first letter.
const (
	UppercaseFirst           = "uppercase_first"
	UppercaseCapitalizeWords = "capitalize_words"
)

// MatchDefinition is one immutable expansion loaded from a match file.
type MatchDefinition struct {
	ID              string
	Triggers        []string
	Replace         string
	Label           string
	LeftWord        bool
	RightWord       bool
	PropagateCase   bool
	UppercaseStyle  string
	CaseInsensitive bool
	Priority        int
	Filter          Filter
	Specificity     int
	File            string
	ModTime         time.Time
	// Order is the position of the definition across all loaded files.
	Order int
}

// MatchOptions are the matching rules shared by every definition in a set.
type MatchOptions struct {
	WordSeparators string
	BackspaceLimit int
	UndoBackspace  bool
	// SpecialKeys overrides the default special-key classes.
	SpecialKeys map[event.Key]event.Class
}

// MatchSet is an immutable view of the definitions active for one context.
type MatchSet struct {
	// Key changes whenever the definitions or options differ.
	Key         string
	Context     AppContext
	Disabled    bool
	Options     MatchOptions
	Definitions []MatchDefinition
}
