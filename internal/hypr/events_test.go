package hypr

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/rbright/presto/internal/event"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func shortSocketPath(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "hypr")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "s2.sock")
}

func receive(t *testing.T, ch <-chan event.Event) (event.Event, bool) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		return ev, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for focus event")
		return event.Event{}, false
	}
}

func TestParseEvent(t *testing.T) {
	ev, ok := ParseEvent("activewindow>>kitty,nvim ~/src\n")
	require.True(t, ok)
	require.Equal(t, Event{Kind: "activewindow", Payload: "kitty,nvim ~/src"}, ev)

	ev, ok = ParseEvent("workspace>>")
	require.True(t, ok)
	require.Equal(t, "workspace", ev.Kind)

	_, ok = ParseEvent("garbage")
	require.False(t, ok)
	_, ok = ParseEvent(">>payload")
	require.False(t, ok)
}

func TestFocusSourceEmitsResetsForFocusChanges(t *testing.T) {
	path := shortSocketPath(t)
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("openwindow>>1,2,kitty,kitty\nactivewindow>>kitty,shell\nactivewindowv2>>1\nworkspace>>2\n"))
	}()

	src := NewFocusSource(path, zerolog.Nop())
	require.Equal(t, FocusSourceName, src.Name())
	ch, err := src.Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Stop() })

	for i := 0; i < 2; i++ {
		ev, ok := receive(t, ch)
		require.True(t, ok)
		require.Equal(t, event.KindReset, ev.Kind)
		require.Equal(t, event.ReasonFocus, ev.Reason)
	}

	_, ok := receive(t, ch)
	require.False(t, ok, "channel closes when hyprland closes the socket")
}

func TestFocusSourceClosesOnContextCancel(t *testing.T) {
	path := shortSocketPath(t)
	listener, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	src := NewFocusSource(path, zerolog.Nop())
	ch, err := src.Start(ctx)
	require.NoError(t, err)

	conn := <-accepted
	t.Cleanup(func() { _ = conn.Close() })

	cancel()
	_, ok := receive(t, ch)
	require.False(t, ok)
	require.NoError(t, src.Stop())
}

func TestFocusSourceStartFailsWithoutSocket(t *testing.T) {
	src := NewFocusSource(filepath.Join(t.TempDir(), "missing.sock"), zerolog.Nop())
	_, err := src.Start(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "dial hyprland event socket")
}

func TestEventSocketPath(t *testing.T) {
	runtime := t.TempDir()
	t.Cleanup(xdg.Reload)
	t.Setenv("XDG_RUNTIME_DIR", runtime)
	xdg.Reload()

	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")
	_, err := EventSocketPath()
	require.Error(t, err)

	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "abc123")
	path, err := EventSocketPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(runtime, "hypr", "abc123", ".socket2.sock"), path)
}
