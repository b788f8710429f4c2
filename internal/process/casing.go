package process

import (
	"strings"
	"unicode"

	"github.com/rbright/presto/internal/config"
)

// propagateCase applies the casing of the typed trigger to replacement:
// an all-upper trigger upper-cases it, an upper first letter capitalizes it.
func propagateCase(typed, replacement, style string) string {
	letters, upper := 0, 0
	first := rune(0)
	for _, r := range typed {
		if !unicode.IsLetter(r) {
			continue
		}
		if first == 0 {
			first = r
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}

	switch {
	case letters > 1 && upper == letters:
		return strings.ToUpper(replacement)
	case first != 0 && unicode.IsUpper(first):
		if style == config.UppercaseCapitalizeWords {
			return capitalizeWords(replacement)
		}
		return capitalizeFirst(replacement)
	default:
		return replacement
	}
}

func capitalizeFirst(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			break
		}
	}
	return string(runes)
}

func capitalizeWords(s string) string {
	runes := []rune(s)
	start := true
	for i, r := range runes {
		if unicode.IsSpace(r) {
			start = true
			continue
		}
		if start && unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
		}
		start = false
	}
	return string(runes)
}
