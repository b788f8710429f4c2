// Package matcher implements the rolling trigger matcher: incremental
// multi-pattern matching over an unbounded keystroke stream.
package matcher

import (
	"unicode"
	"unicode/utf8"
)

// Trigger is one immutable abbreviation pattern plus its matching rules.
type Trigger struct {
	// ID uniquely identifies the trigger inside one matcher.
	ID string
	// MatchID references the owning match definition.
	MatchID         string
	Pattern         string
	CaseInsensitive bool
	// LeftWord requires a separator or stream start before the match.
	LeftWord bool
	// RightWord delays completion until a separator key follows the match.
	RightWord bool
}

// Len returns the pattern length in runes.
func (t Trigger) Len() int {
	return utf8.RuneCountInString(t.Pattern)
}

// Completed is one trigger that finished matching on an event.
type Completed struct {
	Trigger Trigger
	// Typed holds the literally typed trigger text, preserving casing.
	Typed string
	// Separator is the right-boundary key that fired the trigger, or 0.
	Separator rune
	// Index is the event index the match completed at.
	Index uint64
}

// Span is the number of characters that must be erased to remove the typed
// trigger, including its firing separator.
func (c Completed) Span() int {
	n := utf8.RuneCountInString(c.Typed)
	if c.Separator != 0 {
		n++
	}
	return n
}

// Partial is the exported view of one in-progress match.
type Partial struct {
	Len   int
	Typed string
}

// DefaultSeparators are the word separators used when none are configured.
const DefaultSeparators = " \t\n\r,.;:!?()[]{}\"'"

// SeparatorSet builds a separator predicate from a rune list.
func SeparatorSet(runes string) func(rune) bool {
	if runes == "" {
		runes = DefaultSeparators
	}
	set := make(map[rune]struct{}, utf8.RuneCountInString(runes))
	for _, r := range runes {
		set[r] = struct{}{}
	}
	return func(r rune) bool {
		_, ok := set[r]
		return ok
	}
}

func foldRune(r rune) rune {
	return unicode.ToLower(r)
}

func foldPattern(t Trigger) []rune {
	runes := []rune(t.Pattern)
	if t.CaseInsensitive {
		for i, r := range runes {
			runes[i] = foldRune(r)
		}
	}
	return runes
}
