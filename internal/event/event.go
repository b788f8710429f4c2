// Package event defines the input events flowing from sources into the engine.
package event

import "fmt"

// Kind discriminates the Event variants.
type Kind int

const (
	KindChar Kind = iota + 1
	KindSpecial
	KindBackspace
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindChar:
		return "char"
	case KindSpecial:
		return "special"
	case KindBackspace:
		return "backspace"
	case KindReset:
		return "reset"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Key names a non-character key.
type Key string

const (
	KeyEnter    Key = "enter"
	KeyTab      Key = "tab"
	KeyEscape   Key = "escape"
	KeyLeft     Key = "left"
	KeyRight    Key = "right"
	KeyUp       Key = "up"
	KeyDown     Key = "down"
	KeyHome     Key = "home"
	KeyEnd      Key = "end"
	KeyPageUp   Key = "page_up"
	KeyPageDown Key = "page_down"
	KeyDelete   Key = "delete"
	KeyModifier Key = "modifier"
	KeyShortcut Key = "shortcut"
	KeyFunction Key = "function"
	KeyUnknown  Key = "unknown"
)

var knownKeys = map[Key]struct{}{
	KeyEnter: {}, KeyTab: {}, KeyEscape: {}, KeyLeft: {}, KeyRight: {},
	KeyUp: {}, KeyDown: {}, KeyHome: {}, KeyEnd: {}, KeyPageUp: {},
	KeyPageDown: {}, KeyDelete: {}, KeyModifier: {}, KeyShortcut: {},
	KeyFunction: {}, KeyUnknown: {},
}

// ParseKey resolves a configured key name.
func ParseKey(name string) (Key, bool) {
	key := Key(name)
	_, ok := knownKeys[key]
	return key, ok
}

// Reset reasons reported by sources.
const (
	ReasonFocus    = "focus"
	ReasonCursor   = "cursor"
	ReasonKey      = "key"
	ReasonShortcut = "shortcut"
)

// Event is one immutable input occurrence.
type Event struct {
	Kind   Kind
	Char   rune
	Key    Key
	Reason string
	Source string
}

// Char builds a KeyPress{char} event.
func Char(r rune) Event {
	return Event{Kind: KindChar, Char: r}
}

// Special builds a KeyPress{special} event.
func Special(k Key) Event {
	return Event{Kind: KindSpecial, Key: k}
}

// Backspace builds a Backspace event.
func Backspace() Event {
	return Event{Kind: KindBackspace}
}

// Reset builds a Reset event carrying the reason it was emitted.
func Reset(reason string) Event {
	return Event{Kind: KindReset, Reason: reason}
}

// From returns a copy of e tagged with the producing source name.
func (e Event) From(source string) Event {
	e.Source = source
	return e
}

func (e Event) String() string {
	switch e.Kind {
	case KindChar:
		return fmt.Sprintf("char(%q)", e.Char)
	case KindSpecial:
		return fmt.Sprintf("special(%s)", e.Key)
	case KindReset:
		if e.Reason != "" {
			return "reset(" + e.Reason + ")"
		}
		return "reset"
	default:
		return e.Kind.String()
	}
}

// Chars converts text into one Char event per rune.
func Chars(text string) []Event {
	out := make([]Event, 0, len(text))
	for _, r := range text {
		out = append(out, Char(r))
	}
	return out
}
