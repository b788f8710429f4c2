// Package terminal runs the engine against a raw-mode terminal: keystrokes
// come from stdin and expansions are drawn back onto the screen.
package terminal

import (
	"unicode/utf8"

	"github.com/rbright/presto/internal/event"
)

const (
	ctrlC     = 0x03
	ctrlD     = 0x04
	backspace = 0x08
	tab       = 0x09
	lineFeed  = 0x0a
	enter     = 0x0d
	escape    = 0x1b
	del       = 0x7f
)

var csiKeys = map[byte]event.Key{
	'A': event.KeyUp,
	'B': event.KeyDown,
	'C': event.KeyRight,
	'D': event.KeyLeft,
	'H': event.KeyHome,
	'F': event.KeyEnd,
}

var tildeKeys = map[byte]event.Key{
	'1': event.KeyHome,
	'3': event.KeyDelete,
	'4': event.KeyEnd,
	'5': event.KeyPageUp,
	'6': event.KeyPageDown,
}

// Decoder converts raw terminal bytes into events. Incomplete UTF-8 and
// escape sequences are held until the next chunk.
type Decoder struct {
	pending []byte
}

// Decode returns the events in chunk and whether an interrupt (Ctrl-C or
// Ctrl-D) was read. Bytes after an interrupt are discarded.
func (d *Decoder) Decode(chunk []byte) ([]event.Event, bool) {
	buf := append(d.pending, chunk...)
	d.pending = nil

	var out []event.Event
	for len(buf) > 0 {
		b := buf[0]
		switch {
		case b == ctrlC || b == ctrlD:
			return out, true
		case b == del || b == backspace:
			out = append(out, event.Backspace())
			buf = buf[1:]
		case b == enter || b == lineFeed:
			out = append(out, event.Special(event.KeyEnter))
			buf = buf[1:]
		case b == tab:
			out = append(out, event.Special(event.KeyTab))
			buf = buf[1:]
		case b == escape:
			ev, n, complete := decodeEscape(buf)
			if !complete {
				d.pending = append([]byte(nil), buf...)
				return out, false
			}
			out = append(out, ev)
			buf = buf[n:]
		case b < 0x20:
			out = append(out, event.Special(event.KeyShortcut))
			buf = buf[1:]
		default:
			if !utf8.FullRune(buf) {
				d.pending = append([]byte(nil), buf...)
				return out, false
			}
			r, n := utf8.DecodeRune(buf)
			out = append(out, event.Char(r))
			buf = buf[n:]
		}
	}
	return out, false
}

// decodeEscape parses ESC, ESC [ X, ESC [ N ~ and ESC O X. A lone ESC at
// the end of a chunk is treated as the Escape key.
func decodeEscape(buf []byte) (event.Event, int, bool) {
	if len(buf) == 1 {
		return event.Special(event.KeyEscape), 1, true
	}
	if buf[1] != '[' && buf[1] != 'O' {
		return event.Special(event.KeyEscape), 1, true
	}
	if len(buf) < 3 {
		return event.Event{}, 0, false
	}
	if key, ok := csiKeys[buf[2]]; ok {
		return event.Special(key), 3, true
	}
	for i := 2; i < len(buf); i++ {
		c := buf[i]
		if c >= 0x40 && c <= 0x7e {
			if c == '~' {
				if key, ok := tildeKeys[buf[2]]; ok {
					return event.Special(key), i + 1, true
				}
			}
			return event.Special(event.KeyUnknown), i + 1, true
		}
	}
	return event.Event{}, 0, false
}
