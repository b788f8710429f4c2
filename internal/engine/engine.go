// Package engine drives the event loop: funnel -> processor -> dispatcher.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rbright/presto/internal/config"
	"github.com/rbright/presto/internal/dispatch"
	"github.com/rbright/presto/internal/event"
	"github.com/rbright/presto/internal/fsm"
	"github.com/rbright/presto/internal/funnel"
	"github.com/rbright/presto/internal/process"
	"github.com/rs/zerolog"
)

// Reporter surfaces per-event outcomes to the user.
type Reporter interface {
	Expanded(context.Context)
	ReportError(context.Context, string)
}

// noopReporter preserves engine flow when no indicator is wired.
type noopReporter struct{}

func (noopReporter) Expanded(context.Context)            {}
func (noopReporter) ReportError(context.Context, string) {}

// Reloader re-reads configuration on request.
type Reloader interface {
	Reload() (config.Loaded, error)
}

// Options wires optional collaborators.
type Options struct {
	Logger   zerolog.Logger
	Reporter Reporter
	Reloader Reloader
}

// Engine owns the single consumer loop. Processor state is only touched
// while holding cycleMu.
type Engine struct {
	funnel     *funnel.Funnel
	processor  *process.Processor
	dispatcher *dispatch.Dispatcher
	reporter   Reporter
	reloader   Reloader
	logger     zerolog.Logger

	mu        sync.RWMutex
	state     fsm.State
	cancel    context.CancelFunc
	observers []func(fsm.State)

	cycleMu    sync.Mutex
	finishOnce sync.Once
	status     atomic.Pointer[process.Status]

	events     atomic.Uint64
	expansions atomic.Uint64
	failures   atomic.Uint64
}

// New assembles an engine in the Idle state.
func New(f *funnel.Funnel, p *process.Processor, d *dispatch.Dispatcher, opts Options) *Engine {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = noopReporter{}
	}
	e := &Engine{
		funnel:     f,
		processor:  p,
		dispatcher: d,
		reporter:   reporter,
		reloader:   opts.Reloader,
		logger:     opts.Logger.With().Str("component", "engine").Logger(),
		state:      fsm.StateIdle,
	}
	e.publishStatus()
	return e
}

// Observe registers fn to receive every state change.
func (e *Engine) Observe(fn func(fsm.State)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// State returns the current lifecycle state.
func (e *Engine) State() fsm.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// transition applies one FSM event and notifies observers.
func (e *Engine) transition(ev fsm.Event) error {
	return e.transitionWith(ev, nil)
}

// transitionWith runs apply under the state lock when ev is accepted.
func (e *Engine) transitionWith(ev fsm.Event, apply func()) error {
	e.mu.Lock()
	next, err := fsm.Transition(e.state, ev)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	e.state = next
	if apply != nil {
		apply()
	}
	observers := append([]func(fsm.State){}, e.observers...)
	e.mu.Unlock()

	e.logger.Debug().Str("state", string(next)).Msg("state change")
	for _, fn := range observers {
		fn(next)
	}
	return nil
}

// Run starts the sources and processes events until Shutdown, ctx
// cancellation, or loss of every source. It returns nil on a requested
// shutdown and a funnel.ErrExhausted chain when all sources are gone.
func (e *Engine) Run(ctx context.Context) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := e.transitionWith(fsm.EventStart, func() { e.cancel = cancel }); err != nil {
		if e.State() == fsm.StateShuttingDown {
			e.finish()
			return nil
		}
		return fmt.Errorf("engine run: %w", err)
	}

	if err := e.funnel.Start(loopCtx); err != nil {
		e.Shutdown()
		e.finish()
		return fmt.Errorf("start sources: %w", err)
	}
	e.logger.Info().Msg("engine running")

	runErr := e.loop(loopCtx)
	e.Shutdown()
	e.finish()
	return runErr
}

func (e *Engine) loop(ctx context.Context) error {
	for {
		ev, err := e.funnel.Next(ctx)
		if err != nil {
			var lost *funnel.SourceLostError
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.As(err, &lost):
				e.logger.Warn().Str("source", lost.Name).Int("remaining", lost.Remaining).Msg("source lost")
				if lost.Remaining > 0 {
					e.reporter.ReportError(ctx, fmt.Sprintf("Input source %s stopped", lost.Name))
				}
				continue
			case errors.Is(err, funnel.ErrExhausted):
				e.logger.Error().Err(err).Msg("all sources lost")
				e.reporter.ReportError(context.WithoutCancel(ctx), "All input sources stopped")
				return fmt.Errorf("engine: %w", err)
			default:
				return fmt.Errorf("engine: next event: %w", err)
			}
		}
		e.cycle(ctx, ev)
	}
}

// cycle processes one event and dispatches its action atomically with
// respect to Shutdown.
func (e *Engine) cycle(ctx context.Context, ev event.Event) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	if !fsm.Accepting(e.State()) {
		return
	}
	e.events.Add(1)

	action, err := e.processor.Process(ctx, ev)
	e.publishStatus()
	if err != nil {
		if errors.Is(err, process.ErrSelectionCancelled) {
			e.logger.Debug().Err(err).Msg("selection cancelled")
		} else {
			e.logger.Warn().Err(err).Str("event", ev.String()).Msg("process failed")
			e.reporter.ReportError(ctx, "Expansion failed")
		}
	}
	if action.IsNoOp() {
		return
	}
	if ctx.Err() != nil {
		e.processor.Failed()
		e.logger.Debug().Str("match", action.MatchID).Msg("shutdown requested; dropping action")
		return
	}

	// Executor calls are never interrupted halfway.
	if err := e.dispatcher.Dispatch(context.WithoutCancel(ctx), action); err != nil {
		e.processor.Failed()
		e.failures.Add(1)
		e.reporter.ReportError(context.WithoutCancel(ctx), failureMessage(err))
		return
	}
	e.processor.Committed()
	e.expansions.Add(1)
	e.reporter.Expanded(ctx)
}

func failureMessage(err error) string {
	if execErr, ok := dispatch.AsExecutorError(err); ok && execErr.Partial {
		if execErr.Stage == dispatch.StageDelete {
			return "Expansion interrupted; trigger was partly erased"
		}
		return "Expansion interrupted; trigger was erased"
	}
	return "Text injection failed"
}

// Shutdown stops the loop. It is idempotent and safe from any goroutine. It
// waits for an in-flight cycle so no action is dispatched afterwards.
func (e *Engine) Shutdown() {
	e.mu.RLock()
	cancel := e.cancel
	e.mu.RUnlock()
	if cancel != nil {
		cancel()
	}

	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()
	err := e.transitionWith(fsm.EventShutdown, func() { cancel = e.cancel })
	if err != nil {
		return
	}
	// Run may have started after the first read.
	if cancel != nil {
		cancel()
	}
	e.logger.Info().Msg("engine shutting down")
}

// finish releases sources and the executor, then enters Stopped.
func (e *Engine) finish() {
	e.finishOnce.Do(func() {
		err := errors.Join(e.funnel.Close(), e.dispatcher.Close())
		if err != nil {
			e.logger.Warn().Err(err).Msg("release resources")
		}
		_ = e.transition(fsm.EventStopped)
		e.logger.Info().
			Uint64("events", e.events.Load()).
			Uint64("expansions", e.expansions.Load()).
			Uint64("failures", e.failures.Load()).
			Msg("engine stopped")
	})
}

func (e *Engine) publishStatus() {
	status := e.processor.Status()
	e.status.Store(&status)
}
