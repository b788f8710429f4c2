package hypr

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/rbright/presto/internal/event"
	"github.com/rs/zerolog"
)

// FocusSourceName identifies focus resets in the event stream.
const FocusSourceName = "hypr-focus"

// Event is one "kind>>payload" line from the Hyprland event socket.
type Event struct {
	Kind    string
	Payload string
}

// ParseEvent splits a raw event-socket line.
func ParseEvent(line string) (Event, bool) {
	kind, payload, ok := strings.Cut(strings.TrimRight(line, "\r\n"), ">>")
	if !ok || kind == "" {
		return Event{}, false
	}
	return Event{Kind: kind, Payload: payload}, true
}

// changesFocus reports events after which typed context is no longer valid.
// The v2 variants duplicate their v1 counterparts.
func changesFocus(kind string) bool {
	switch kind {
	case "activewindow", "workspace", "focusedmon", "closewindow", "moveworkspace":
		return true
	default:
		return false
	}
}

// EventSocketPath locates .socket2.sock for the running Hyprland instance.
func EventSocketPath() (string, error) {
	signature := strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE"))
	if signature == "" {
		return "", errors.New("HYPRLAND_INSTANCE_SIGNATURE is empty")
	}

	candidates := make([]string, 0, 2)
	if runtime := strings.TrimSpace(xdg.RuntimeDir); runtime != "" {
		candidates = append(candidates, filepath.Join(runtime, "hypr", signature, ".socket2.sock"))
	}
	candidates = append(candidates, filepath.Join("/tmp", "hypr", signature, ".socket2.sock"))

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return candidates[0], nil
}

// FocusSource emits a focus Reset whenever Hyprland reports a focus change.
type FocusSource struct {
	path   string
	logger zerolog.Logger

	mu   sync.Mutex
	conn net.Conn
}

// NewFocusSource builds a source reading the Hyprland event socket. An empty
// path resolves through EventSocketPath at start.
func NewFocusSource(path string, logger zerolog.Logger) *FocusSource {
	return &FocusSource{
		path:   path,
		logger: logger.With().Str("component", "hypr").Logger(),
	}
}

func (s *FocusSource) Name() string { return FocusSourceName }

// Start dials the event socket and forwards focus changes until ctx ends or
// Hyprland closes the socket.
func (s *FocusSource) Start(ctx context.Context) (<-chan event.Event, error) {
	path := s.path
	if path == "" {
		resolved, err := EventSocketPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial hyprland event socket %q: %w", path, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	out := make(chan event.Event, 16)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(out)
		defer close(done)
		s.read(ctx, conn, out)
	}()
	return out, nil
}

func (s *FocusSource) read(ctx context.Context, conn net.Conn, out chan<- event.Event) {
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		ev, ok := ParseEvent(scanner.Text())
		if !ok || !changesFocus(ev.Kind) {
			continue
		}
		s.logger.Debug().Str("kind", ev.Kind).Msg("focus change")
		select {
		case out <- event.Reset(event.ReasonFocus):
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
		s.logger.Warn().Err(err).Msg("event socket read failed")
	}
}

// Stop closes the event socket connection.
func (s *FocusSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
