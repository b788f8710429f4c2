package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rbright/presto/internal/event"
	"golang.org/x/term"
)

// SourceName identifies playground keystrokes in the stream.
const SourceName = "terminal"

// Source reads keystrokes from a terminal in raw mode.
type Source struct {
	in          io.Reader
	fd          int
	raw         bool
	screen      *Screen
	onInterrupt func()

	mu    sync.Mutex
	state *term.State

	stopOnce sync.Once
	stop     chan struct{}
}

// NewSource reads from in, switching it to raw mode when it is a terminal.
// onInterrupt runs when the user presses Ctrl-C or Ctrl-D.
func NewSource(in *os.File, screen *Screen, onInterrupt func()) *Source {
	fd := int(in.Fd())
	s := newSource(in, screen, onInterrupt)
	s.fd = fd
	s.raw = term.IsTerminal(fd)
	return s
}

func newSource(in io.Reader, screen *Screen, onInterrupt func()) *Source {
	if onInterrupt == nil {
		onInterrupt = func() {}
	}
	return &Source{
		in:          in,
		screen:      screen,
		onInterrupt: onInterrupt,
		stop:        make(chan struct{}),
	}
}

func (s *Source) Name() string { return SourceName }

// Start enters raw mode and streams decoded keystrokes.
func (s *Source) Start(ctx context.Context) (<-chan event.Event, error) {
	if s.raw {
		state, err := term.MakeRaw(s.fd)
		if err != nil {
			return nil, fmt.Errorf("enter raw mode: %w", err)
		}
		s.mu.Lock()
		s.state = state
		s.mu.Unlock()
	}

	chunks := make(chan []byte, 16)
	go s.readLoop(chunks)

	out := make(chan event.Event, 64)
	go func() {
		defer close(out)
		var decoder Decoder
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case chunk, ok := <-chunks:
				if !ok {
					return
				}
				events, interrupted := decoder.Decode(chunk)
				for _, ev := range events {
					s.screen.Echo(ev)
					select {
					case out <- ev:
					case <-ctx.Done():
						return
					case <-s.stop:
						return
					}
				}
				if interrupted {
					s.onInterrupt()
					return
				}
			}
		}
	}()
	return out, nil
}

// readLoop may stay blocked in Read after Stop; it exits with the process.
func (s *Source) readLoop(chunks chan<- []byte) {
	defer close(chunks)
	buf := make([]byte, 256)
	for {
		n, err := s.in.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case chunks <- chunk:
			case <-s.stop:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// Stop ends the stream and restores the terminal mode.
func (s *Source) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil
	}
	err := term.Restore(s.fd, s.state)
	s.state = nil
	if err != nil {
		return fmt.Errorf("restore terminal: %w", err)
	}
	return nil
}
