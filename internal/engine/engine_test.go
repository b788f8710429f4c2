package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rbright/presto/internal/config"
	"github.com/rbright/presto/internal/dispatch"
	"github.com/rbright/presto/internal/event"
	"github.com/rbright/presto/internal/fsm"
	"github.com/rbright/presto/internal/funnel"
	"github.com/rbright/presto/internal/ipc"
	"github.com/rbright/presto/internal/process"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type injection struct {
	delete int
	text   string
}

type recordingExecutor struct {
	calls chan injection
	fail  func(n int) error

	mu sync.Mutex
	n  int
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{calls: make(chan injection, 16)}
}

func (r *recordingExecutor) Inject(_ context.Context, deleteCount int, text string) error {
	r.mu.Lock()
	r.n++
	n := r.n
	r.mu.Unlock()

	r.calls <- injection{delete: deleteCount, text: text}
	if r.fail != nil {
		return r.fail(n)
	}
	return nil
}

func (r *recordingExecutor) next(t *testing.T) injection {
	t.Helper()
	select {
	case call := <-r.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for injection")
		return injection{}
	}
}

type recordingReporter struct {
	mu       sync.Mutex
	expanded int
	errors   []string
}

func (r *recordingReporter) Expanded(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expanded++
}

func (r *recordingReporter) ReportError(_ context.Context, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

func (r *recordingReporter) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

type reloaderFunc func() (config.Loaded, error)

func (f reloaderFunc) Reload() (config.Loaded, error) { return f() }

type harness struct {
	engine   *Engine
	keys     *funnel.Feed
	exec     *recordingExecutor
	reporter *recordingReporter
	done     chan error
}

func newHarness(t *testing.T, reloader Reloader) *harness {
	t.Helper()

	loaded := config.Loaded{
		Config: config.Default(),
		Matches: []config.MatchDefinition{
			{ID: "base.yml#0", Triggers: []string{"btw"}, Replace: "by the way"},
		},
	}
	manager := config.NewManagerFromLoaded(loaded, zerolog.Nop())

	keys := funnel.NewFeed("keys", 64)
	exec := newRecordingExecutor()
	reporter := &recordingReporter{}
	e := New(
		funnel.New(zerolog.Nop(), keys),
		process.New(nil, manager, process.Options{Logger: zerolog.Nop()}),
		dispatch.New(exec, zerolog.Nop()),
		Options{Logger: zerolog.Nop(), Reporter: reporter, Reloader: reloader},
	)
	return &harness{engine: e, keys: keys, exec: exec, reporter: reporter, done: make(chan error, 1)}
}

func (h *harness) start(t *testing.T, ctx context.Context) {
	t.Helper()
	go func() { h.done <- h.engine.Run(ctx) }()
	require.Eventually(t, func() bool {
		return h.engine.State() == fsm.StateRunning
	}, 2*time.Second, 5*time.Millisecond)
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
		return nil
	}
}

func (h *harness) send(t *testing.T, text string) {
	t.Helper()
	for _, ev := range event.Chars(text) {
		require.True(t, h.keys.Send(ev))
	}
}

func (h *harness) waitEvents(t *testing.T, n string) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp := h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
		return resp.Detail["events"] == n
	}, 2*time.Second, 5*time.Millisecond)
}

func TestEngineExpandsAndShutsDown(t *testing.T) {
	h := newHarness(t, nil)

	var mu sync.Mutex
	var states []fsm.State
	h.engine.Observe(func(s fsm.State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})

	h.start(t, context.Background())
	h.send(t, "btw")
	require.Equal(t, injection{delete: 3, text: "by the way"}, h.exec.next(t))

	h.engine.Shutdown()
	require.NoError(t, h.wait(t))
	require.Equal(t, fsm.StateStopped, h.engine.State())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []fsm.State{fsm.StateRunning, fsm.StateShuttingDown, fsm.StateStopped}, states)
	require.Equal(t, 1, h.reporter.expanded)
}

func TestEngineExecutorFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.exec.fail = func(n int) error {
		if n == 1 {
			return dispatch.InsertFailed(errors.New("wtype exited 1"), true)
		}
		return nil
	}

	h.start(t, context.Background())
	h.send(t, "btw")
	require.Equal(t, "by the way", h.exec.next(t).text)
	h.send(t, " btw")
	require.Equal(t, "by the way", h.exec.next(t).text)

	h.engine.Shutdown()
	require.NoError(t, h.wait(t))
	require.Equal(t, []string{"Expansion interrupted; trigger was erased"}, h.reporter.messages())
}

func TestEngineBackspaceAfterFailedInjectionIsNotUndo(t *testing.T) {
	h := newHarness(t, nil)
	h.exec.fail = func(n int) error {
		if n == 1 {
			return dispatch.DeleteFailed(errors.New("wtype: compositor rejected virtual keyboard"))
		}
		return nil
	}

	h.start(t, context.Background())
	h.send(t, "btw")
	require.Equal(t, injection{delete: 3, text: "by the way"}, h.exec.next(t))

	require.True(t, h.keys.Send(event.Backspace()))
	h.waitEvents(t, "4")
	select {
	case call := <-h.exec.calls:
		t.Fatalf("backspace after a failed injection edited text: %+v", call)
	default:
	}

	h.send(t, " btw")
	require.Equal(t, injection{delete: 3, text: "by the way"}, h.exec.next(t))

	h.engine.Shutdown()
	require.NoError(t, h.wait(t))
	require.Equal(t, []string{"Text injection failed"}, h.reporter.messages())
}

func TestEngineBackspaceUndoesAppliedExpansion(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, context.Background())

	h.send(t, "btw")
	require.Equal(t, injection{delete: 3, text: "by the way"}, h.exec.next(t))
	require.True(t, h.keys.Send(event.Backspace()))
	require.Equal(t, injection{delete: len("by the way") - 1, text: "btw"}, h.exec.next(t))

	h.engine.Shutdown()
	require.NoError(t, h.wait(t))
}

func TestEngineStopsWhenAllSourcesLost(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, context.Background())

	h.keys.Close()
	err := h.wait(t)
	require.ErrorIs(t, err, funnel.ErrExhausted)
	require.Equal(t, fsm.StateStopped, h.engine.State())
	require.Contains(t, h.reporter.messages(), "All input sources stopped")
}

func TestEngineStopsOnContextCancel(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	h.start(t, ctx)

	cancel()
	require.NoError(t, h.wait(t))
	require.Equal(t, fsm.StateStopped, h.engine.State())
}

func TestEngineShutdownBeforeRun(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.Shutdown()
	require.Equal(t, fsm.StateShuttingDown, h.engine.State())

	require.NoError(t, h.engine.Run(context.Background()))
	require.Equal(t, fsm.StateStopped, h.engine.State())
}

func TestEngineRunTwiceFails(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, context.Background())

	err := h.engine.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "engine run")

	h.engine.Shutdown()
	require.NoError(t, h.wait(t))
}

func TestEngineToggleControlsExpansion(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, context.Background())

	resp := h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandToggle})
	require.True(t, resp.OK)
	require.Equal(t, "expansion disabled", resp.Message)

	h.send(t, "btw")
	h.waitEvents(t, "3")
	select {
	case call := <-h.exec.calls:
		t.Fatalf("unexpected injection while disabled: %+v", call)
	default:
	}

	status := h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.Equal(t, "false", status.Detail["enabled"])
	require.Equal(t, "paused", status.Message)

	resp = h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandEnable})
	require.True(t, resp.OK)
	require.Equal(t, "expansion enabled", resp.Message)

	h.send(t, " btw")
	require.Equal(t, "by the way", h.exec.next(t).text)

	h.engine.Shutdown()
	require.NoError(t, h.wait(t))
}

func TestEngineStatusDetail(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, context.Background())

	h.send(t, "b")
	h.waitEvents(t, "1")

	resp := h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandStatus})
	require.True(t, resp.OK)
	require.Equal(t, string(fsm.StateRunning), resp.State)
	require.Equal(t, "true", resp.Detail["enabled"])
	require.Equal(t, "1", resp.Detail["matches"])
	require.Equal(t, "1", resp.Detail["partials"])
	require.NotEmpty(t, resp.Detail["match_set"])

	h.engine.Shutdown()
	require.NoError(t, h.wait(t))
}

func TestEngineReload(t *testing.T) {
	calls := 0
	h := newHarness(t, reloaderFunc(func() (config.Loaded, error) {
		calls++
		if calls == 2 {
			return config.Loaded{}, errors.New("reload config: bad yaml")
		}
		return config.Loaded{
			Matches:  make([]config.MatchDefinition, 2),
			Warnings: []config.Warning{{File: "base.yml", Message: "empty replacement"}},
		}, nil
	}))

	resp := h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandReload})
	require.True(t, resp.OK)
	require.Equal(t, "reloaded 2 matches", resp.Message)
	require.Equal(t, "1", resp.Detail["warnings"])

	resp = h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandReload})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "bad yaml")
}

func TestEngineReloadUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandReload})
	require.False(t, resp.OK)
	require.Equal(t, "reload unavailable", resp.Error)
}

func TestEngineStopCommand(t *testing.T) {
	h := newHarness(t, nil)
	h.start(t, context.Background())

	resp := h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandStop})
	require.True(t, resp.OK)
	require.Equal(t, string(fsm.StateShuttingDown), resp.State)
	require.NoError(t, h.wait(t))

	resp = h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandToggle})
	require.False(t, resp.OK)
	require.Contains(t, resp.Error, "stopped")

	resp = h.engine.Handle(context.Background(), ipc.Request{Command: ipc.CommandStop})
	require.True(t, resp.OK)
	require.Equal(t, "already stopped", resp.Message)
}

func TestEngineUnknownCommand(t *testing.T) {
	h := newHarness(t, nil)
	resp := h.engine.Handle(context.Background(), ipc.Request{Command: "dance"})
	require.False(t, resp.OK)
	require.Equal(t, string(fsm.StateIdle), resp.State)
	require.Contains(t, resp.Error, "dance")
}

func TestFailureMessage(t *testing.T) {
	cause := errors.New("wtype exited 1")
	require.Equal(t, "Text injection failed", failureMessage(dispatch.DeleteFailed(cause)))
	require.Equal(t, "Expansion interrupted; trigger was partly erased", failureMessage(dispatch.PartialDeleteFailed(cause)))
	require.Equal(t, "Expansion interrupted; trigger was erased", failureMessage(dispatch.InsertFailed(cause, true)))
	require.Equal(t, "Text injection failed", failureMessage(cause))
}
