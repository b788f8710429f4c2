package dispatch

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatcher closed")

// Executor performs one injection: erase deleteCount characters, then type text.
type Executor interface {
	Inject(ctx context.Context, deleteCount int, text string) error
}

// ExecutorFunc adapts a function into an Executor.
type ExecutorFunc func(ctx context.Context, deleteCount int, text string) error

func (f ExecutorFunc) Inject(ctx context.Context, deleteCount int, text string) error {
	return f(ctx, deleteCount, text)
}

// Dispatcher serializes Actions to one Executor: at most one call is in
// flight and calls run in submission order.
type Dispatcher struct {
	executor Executor
	logger   zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// New wraps executor.
func New(executor Executor, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		executor: executor,
		logger:   logger.With().Str("component", "dispatch").Logger(),
	}
}

// Dispatch runs a against the executor and returns once the executor call
// has returned. Failures come back as *ExecutorError.
func (d *Dispatcher) Dispatch(ctx context.Context, a Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if a.IsNoOp() {
		return nil
	}

	d.logger.Debug().
		Int("delete", a.Delete).
		Int("chars", a.TextLen()).
		Str("match", a.MatchID).
		Bool("undo", a.Undo).
		Msg("inject")

	err := d.executor.Inject(ctx, a.Delete, a.Text)
	if err == nil {
		return nil
	}
	if _, ok := AsExecutorError(err); !ok {
		err = &ExecutorError{Stage: StageInsert, Err: err}
	}
	d.logger.Warn().Err(err).Str("match", a.MatchID).Msg("injection failed")
	return err
}

// Close waits for an in-flight call, rejects further actions, and closes the
// executor when it holds resources.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if closer, ok := d.executor.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
