package terminal

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rbright/presto/internal/event"
)

// Screen echoes typed input and applies expansions to a raw-mode terminal.
// It is also the playground's executor.
type Screen struct {
	mu sync.Mutex
	w  io.Writer
}

// NewScreen wraps w.
func NewScreen(w io.Writer) *Screen {
	return &Screen{w: w}
}

// rawText translates newlines for a terminal with output processing off.
func rawText(text string) string {
	return strings.ReplaceAll(text, "\n", "\r\n")
}

// Echo draws what the user typed.
func (s *Screen) Echo(ev event.Event) {
	var out string
	switch ev.Kind {
	case event.KindChar:
		out = rawText(string(ev.Char))
	case event.KindBackspace:
		out = "\b \b"
	case event.KindSpecial:
		switch ev.Key {
		case event.KeyEnter:
			out = "\r\n"
		case event.KeyTab:
			out = "\t"
		}
	}
	if out == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, out)
}

// Inject erases deleteCount characters and writes text.
func (s *Screen) Inject(_ context.Context, deleteCount int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if deleteCount > 0 {
		if _, err := io.WriteString(s.w, strings.Repeat("\b \b", deleteCount)); err != nil {
			return err
		}
	}
	if text == "" {
		return nil
	}
	_, err := io.WriteString(s.w, rawText(text))
	return err
}

// Printf writes a status line.
func (s *Screen) Printf(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, rawText(fmt.Sprintf(format, args...)))
}
