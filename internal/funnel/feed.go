package funnel

import (
	"context"
	"errors"
	"sync"

	"github.com/rbright/presto/internal/event"
)

// Feed is a Source driven by in-process callers such as tests.
type Feed struct {
	name string

	mu      sync.RWMutex
	ch      chan event.Event
	done    chan struct{}
	once    sync.Once
	started bool
	closed  bool
}

// NewFeed builds a feed whose channel holds up to buffer pending events.
func NewFeed(name string, buffer int) *Feed {
	if buffer < 0 {
		buffer = 0
	}
	return &Feed{
		name: name,
		ch:   make(chan event.Event, buffer),
		done: make(chan struct{}),
	}
}

func (f *Feed) Name() string { return f.name }

// Start returns the feed channel and closes it when ctx ends.
func (f *Feed) Start(ctx context.Context) (<-chan event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil, errors.New("feed already started")
	}
	if f.closed {
		return nil, errors.New("feed closed")
	}
	f.started = true

	go func() {
		select {
		case <-ctx.Done():
			f.Close()
		case <-f.done:
		}
	}()
	return f.ch, nil
}

// Send delivers ev, blocking while the buffer is full. It reports false once
// the feed is closed.
func (f *Feed) Send(ev event.Event) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return false
	}
	select {
	case f.ch <- ev:
		return true
	case <-f.done:
		return false
	}
}

// Close ends the stream; the funnel reports the feed as lost.
func (f *Feed) Close() {
	f.once.Do(func() {
		close(f.done)

		f.mu.Lock()
		f.closed = true
		close(f.ch)
		f.mu.Unlock()
	})
}

func (f *Feed) Stop() error {
	f.Close()
	return nil
}
