// Package funnel merges every input source into one ordered event stream.
package funnel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rbright/presto/internal/event"
	"github.com/rs/zerolog"
)

// ErrExhausted reports that every registered source has been lost.
var ErrExhausted = errors.New("all event sources lost")

// ErrNoSources reports a funnel started without sources.
var ErrNoSources = errors.New("funnel requires at least one source")

// Source produces events asynchronously until its channel closes.
// Implementations close the channel once the start context is cancelled or
// Stop is called.
type Source interface {
	Name() string
	Start(context.Context) (<-chan event.Event, error)
	Stop() error
}

// SourceLostError is surfaced once per source whose channel closed.
// It is not fatal while other sources remain.
type SourceLostError struct {
	Name      string
	Remaining int
}

func (e *SourceLostError) Error() string {
	return fmt.Sprintf("event source %q lost (%d remaining)", e.Name, e.Remaining)
}

type item struct {
	ev        event.Event
	lost      string
	remaining int
	exhausted bool
}

// Funnel owns one forwarder per source and an unbounded arrival-ordered queue.
// Dropping keystrokes is a correctness failure, so producers never block on it.
type Funnel struct {
	sources []Source
	logger  zerolog.Logger

	mu      sync.Mutex
	queue   []item
	notify  chan struct{}
	alive   int
	started bool
	closed  bool
	done    bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a funnel over sources.
func New(logger zerolog.Logger, sources ...Source) *Funnel {
	return &Funnel{
		sources: sources,
		logger:  logger.With().Str("component", "funnel").Logger(),
		notify:  make(chan struct{}, 1),
	}
}

// Start launches every source. Sources that fail to start are reported as lost;
// Start only fails when none could be started.
func (f *Funnel) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return errors.New("funnel already started")
	}
	f.started = true
	f.mu.Unlock()

	if len(f.sources) == 0 {
		return ErrNoSources
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	started := 0
	var firstErr error
	for _, src := range f.sources {
		ch, err := src.Start(runCtx)
		if err != nil {
			f.logger.Warn().Err(err).Str("source", src.Name()).Msg("source failed to start")
			if firstErr == nil {
				firstErr = fmt.Errorf("start source %q: %w", src.Name(), err)
			}
			continue
		}

		f.mu.Lock()
		f.alive++
		f.mu.Unlock()
		started++

		f.wg.Add(1)
		go f.forward(src.Name(), ch)
	}

	if started == 0 {
		cancel()
		return errors.Join(ErrExhausted, firstErr)
	}
	return nil
}

// forward copies one source channel into the shared queue.
func (f *Funnel) forward(name string, ch <-chan event.Event) {
	defer f.wg.Done()

	for ev := range ch {
		if ev.Source == "" {
			ev = ev.From(name)
		}
		f.push(item{ev: ev})
	}

	f.mu.Lock()
	f.alive--
	remaining := f.alive
	closed := f.closed
	f.mu.Unlock()

	if closed {
		return
	}
	f.push(item{lost: name, remaining: remaining})
	if remaining == 0 {
		f.push(item{exhausted: true})
	}
}

func (f *Funnel) push(it item) {
	f.mu.Lock()
	f.queue = append(f.queue, it)
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

// Next blocks until the next event is available.
//
// A *SourceLostError means one source closed and the caller should keep
// reading. ErrExhausted means the funnel has terminated.
func (f *Funnel) Next(ctx context.Context) (event.Event, error) {
	for {
		f.mu.Lock()
		if f.done {
			f.mu.Unlock()
			return event.Event{}, ErrExhausted
		}
		if len(f.queue) > 0 {
			it := f.queue[0]
			f.queue[0] = item{}
			f.queue = f.queue[1:]
			if it.exhausted {
				f.done = true
			}
			f.mu.Unlock()

			switch {
			case it.exhausted:
				return event.Event{}, ErrExhausted
			case it.lost != "":
				return event.Event{}, &SourceLostError{Name: it.lost, Remaining: it.remaining}
			default:
				return it.ev, nil
			}
		}
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return event.Event{}, ctx.Err()
		case <-f.notify:
		}
	}
}

// Close stops every source and joins the forwarders.
func (f *Funnel) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}

	var errs []error
	for _, src := range f.sources {
		if err := src.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop source %q: %w", src.Name(), err))
		}
	}
	f.wg.Wait()
	return errors.Join(errs...)
}
