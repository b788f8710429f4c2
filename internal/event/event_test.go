package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifierDefaults(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name   string
		in     Event
		want   Event
		wantOK bool
	}{
		{name: "char passes through", in: Char('a'), want: Char('a'), wantOK: true},
		{name: "backspace passes through", in: Backspace(), want: Backspace(), wantOK: true},
		{name: "enter becomes newline", in: Special(KeyEnter), want: Char('\n'), wantOK: true},
		{name: "tab becomes tab", in: Special(KeyTab), want: Char('\t'), wantOK: true},
		{name: "arrow resets", in: Special(KeyLeft), want: Reset(ReasonKey), wantOK: true},
		{name: "modifier ignored", in: Special(KeyModifier), wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := c.Classify(tc.in)
			require.Equal(t, tc.wantOK, ok)
			if ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestClassifierOverridesKeepSource(t *testing.T) {
	c := NewClassifier(map[Key]Class{
		KeyEnter: {Action: ClassReset},
		KeyLeft:  {Action: ClassIgnore},
	})

	got, ok := c.Classify(Special(KeyEnter).From("evdev"))
	require.True(t, ok)
	require.Equal(t, KindReset, got.Kind)
	require.Equal(t, "evdev", got.Source)

	_, ok = c.Classify(Special(KeyLeft))
	require.False(t, ok)
}

func TestParseClass(t *testing.T) {
	class, err := ParseClass("RESET")
	require.NoError(t, err)
	require.Equal(t, ClassReset, class.Action)

	class, err = ParseClass("ignore")
	require.NoError(t, err)
	require.Equal(t, ClassIgnore, class.Action)

	class, err = ParseClass(`\n`)
	require.NoError(t, err)
	require.Equal(t, Class{Action: ClassChar, Char: '\n'}, class)

	class, err = ParseClass("é")
	require.NoError(t, err)
	require.Equal(t, Class{Action: ClassChar, Char: 'é'}, class)

	_, err = ParseClass("ab")
	require.Error(t, err)
}

func TestCharsAndString(t *testing.T) {
	events := Chars("hé")
	require.Equal(t, []Event{Char('h'), Char('é')}, events)
	require.Equal(t, `char('h')`, events[0].String())
	require.Equal(t, "reset(focus)", Reset(ReasonFocus).String())
	require.Equal(t, "backspace", Backspace().String())
}
