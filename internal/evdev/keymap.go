// Package evdev reads keyboards and pointers from /dev/input and translates
// raw key codes into engine events.
package evdev

import (
	"encoding/binary"

	"github.com/rbright/presto/internal/event"
)

// Linux input constants (linux/input-event-codes.h).
const (
	evKey = 0x01

	keyRelease = 0
	keyPress   = 1
	keyRepeat  = 2

	btnMouse = 0x110
	btnTask  = 0x117
)

// inputEventSize is sizeof(struct input_event) on 64-bit kernels.
const inputEventSize = 24

// rawEvent is a decoded struct input_event without its timestamp.
type rawEvent struct {
	Type  uint16
	Code  uint16
	Value int32
}

func decode(buf []byte) (rawEvent, bool) {
	if len(buf) < inputEventSize {
		return rawEvent{}, false
	}
	return rawEvent{
		Type:  binary.LittleEndian.Uint16(buf[16:18]),
		Code:  binary.LittleEndian.Uint16(buf[18:20]),
		Value: int32(binary.LittleEndian.Uint32(buf[20:24])),
	}, true
}

type modifier uint8

const (
	modShift modifier = 1 << iota
	modCtrl
	modAlt
	modSuper
	modAltGr
)

var modifierKeys = map[uint16]modifier{
	42:  modShift, // KEY_LEFTSHIFT
	54:  modShift, // KEY_RIGHTSHIFT
	29:  modCtrl,  // KEY_LEFTCTRL
	97:  modCtrl,  // KEY_RIGHTCTRL
	56:  modAlt,   // KEY_LEFTALT
	100: modAltGr, // KEY_RIGHTALT
	125: modSuper, // KEY_LEFTMETA
	126: modSuper, // KEY_RIGHTMETA
}

const (
	keyBackspace = 14
	keyCapsLock  = 58
)

var specialKeys = map[uint16]event.Key{
	1:   event.KeyEscape,
	15:  event.KeyTab,
	28:  event.KeyEnter,
	96:  event.KeyEnter, // KEY_KPENTER
	102: event.KeyHome,
	103: event.KeyUp,
	104: event.KeyPageUp,
	105: event.KeyLeft,
	106: event.KeyRight,
	107: event.KeyEnd,
	108: event.KeyDown,
	109: event.KeyPageDown,
	111: event.KeyDelete,
}

// usLayout maps key codes to unshifted and shifted runes.
var usLayout = map[uint16][2]rune{
	2: {'1', '!'}, 3: {'2', '@'}, 4: {'3', '#'}, 5: {'4', '$'}, 6: {'5', '%'},
	7: {'6', '^'}, 8: {'7', '&'}, 9: {'8', '*'}, 10: {'9', '('}, 11: {'0', ')'},
	12: {'-', '_'}, 13: {'=', '+'},
	16: {'q', 'Q'}, 17: {'w', 'W'}, 18: {'e', 'E'}, 19: {'r', 'R'}, 20: {'t', 'T'},
	21: {'y', 'Y'}, 22: {'u', 'U'}, 23: {'i', 'I'}, 24: {'o', 'O'}, 25: {'p', 'P'},
	26: {'[', '{'}, 27: {']', '}'},
	30: {'a', 'A'}, 31: {'s', 'S'}, 32: {'d', 'D'}, 33: {'f', 'F'}, 34: {'g', 'G'},
	35: {'h', 'H'}, 36: {'j', 'J'}, 37: {'k', 'K'}, 38: {'l', 'L'},
	39: {';', ':'}, 40: {'\'', '"'}, 41: {'`', '~'}, 43: {'\\', '|'},
	44: {'z', 'Z'}, 45: {'x', 'X'}, 46: {'c', 'C'}, 47: {'v', 'V'}, 48: {'b', 'B'},
	49: {'n', 'N'}, 50: {'m', 'M'},
	51: {',', '<'}, 52: {'.', '>'}, 53: {'/', '?'},
	57: {' ', ' '},
}

func isFunctionKey(code uint16) bool {
	return (code >= 59 && code <= 68) || code == 87 || code == 88 || (code >= 183 && code <= 194)
}

func isLetter(r rune) bool {
	return r >= 'a' && r <= 'z'
}

// Translator turns raw key events from one device into engine events. It
// tracks modifier and caps-lock state, so each device needs its own.
type Translator struct {
	mods     modifier
	capsLock bool
}

// Translate returns the event for ev, or false when ev produces nothing.
func (t *Translator) Translate(ev rawEvent) (event.Event, bool) {
	if ev.Type != evKey {
		return event.Event{}, false
	}

	if mod, ok := modifierKeys[ev.Code]; ok {
		switch ev.Value {
		case keyPress:
			t.mods |= mod
			return event.Special(event.KeyModifier), true
		case keyRelease:
			t.mods &^= mod
		}
		return event.Event{}, false
	}

	if ev.Value != keyPress && ev.Value != keyRepeat {
		return event.Event{}, false
	}

	if ev.Code >= btnMouse && ev.Code <= btnTask {
		return event.Reset(event.ReasonCursor), true
	}
	if ev.Code == keyCapsLock {
		if ev.Value == keyPress {
			t.capsLock = !t.capsLock
		}
		return event.Special(event.KeyModifier), true
	}

	if t.mods&(modCtrl|modAlt|modSuper) != 0 {
		return event.Special(event.KeyShortcut), true
	}

	if ev.Code == keyBackspace {
		return event.Backspace(), true
	}
	if key, ok := specialKeys[ev.Code]; ok {
		return event.Special(key), true
	}
	if isFunctionKey(ev.Code) {
		return event.Special(event.KeyFunction), true
	}

	runes, ok := usLayout[ev.Code]
	if !ok {
		return event.Special(event.KeyUnknown), true
	}
	shifted := t.mods&modShift != 0
	if t.capsLock && isLetter(runes[0]) {
		shifted = !shifted
	}
	if shifted {
		return event.Char(runes[1]), true
	}
	return event.Char(runes[0]), true
}
