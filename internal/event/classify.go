package event

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ClassAction selects how a special key is folded into the matcher stream.
type ClassAction int

const (
	ClassReset ClassAction = iota
	ClassIgnore
	ClassChar
)

// Class is the configured treatment of one special key.
type Class struct {
	Action ClassAction
	Char   rune
}

// Classifier rewrites special keys into chars, resets, or nothing.
// Keys without an explicit class are treated as Reset.
type Classifier struct {
	classes map[Key]Class
}

// DefaultClasses maps Enter and Tab to their whitespace characters.
func DefaultClasses() map[Key]Class {
	return map[Key]Class{
		KeyEnter:    {Action: ClassChar, Char: '\n'},
		KeyTab:      {Action: ClassChar, Char: '\t'},
		KeyModifier: {Action: ClassIgnore},
	}
}

// NewClassifier builds a classifier from explicit classes merged over the defaults.
func NewClassifier(overrides map[Key]Class) Classifier {
	classes := DefaultClasses()
	for key, class := range overrides {
		classes[key] = class
	}
	return Classifier{classes: classes}
}

// Classify normalizes ev. ok is false when the event should be dropped.
func (c Classifier) Classify(ev Event) (Event, bool) {
	if ev.Kind != KindSpecial {
		return ev, true
	}

	class, found := c.classes[ev.Key]
	if !found {
		out := Reset(ReasonKey)
		out.Source = ev.Source
		return out, true
	}

	switch class.Action {
	case ClassIgnore:
		return Event{}, false
	case ClassChar:
		out := Char(class.Char)
		out.Source = ev.Source
		return out, true
	default:
		out := Reset(ReasonKey)
		out.Source = ev.Source
		return out, true
	}
}

// ParseClass decodes a config value: "reset", "ignore", or a single character.
func ParseClass(raw string) (Class, error) {
	switch strings.ToLower(raw) {
	case "reset":
		return Class{Action: ClassReset}, nil
	case "ignore":
		return Class{Action: ClassIgnore}, nil
	}

	switch raw {
	case `\n`:
		return Class{Action: ClassChar, Char: '\n'}, nil
	case `\t`:
		return Class{Action: ClassChar, Char: '\t'}, nil
	}

	if utf8.RuneCountInString(raw) != 1 {
		return Class{}, fmt.Errorf("key class %q must be reset, ignore, or a single character", raw)
	}
	r, _ := utf8.DecodeRuneInString(raw)
	return Class{Action: ClassChar, Char: r}, nil
}
