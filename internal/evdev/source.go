package evdev

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rbright/presto/internal/event"
	"github.com/rs/zerolog"
)

// SourceName identifies keyboard events in the stream.
const SourceName = "evdev"

// Source reads every discovered (or configured) input device.
type Source struct {
	devices []Device
	logger  zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewSource builds a source over paths, or over discovered devices when
// paths is empty.
func NewSource(paths []string, logger zerolog.Logger) *Source {
	return &Source{
		devices: Explicit(paths),
		logger:  logger.With().Str("component", "evdev").Logger(),
		stop:    make(chan struct{}),
	}
}

func (s *Source) Name() string { return SourceName }

// Start opens the devices and streams their events until ctx ends or Stop.
func (s *Source) Start(ctx context.Context) (<-chan event.Event, error) {
	devices := s.devices
	if len(devices) == 0 {
		discovered, err := Discover()
		if err != nil {
			return nil, err
		}
		devices = discovered
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no keyboard devices found")
	}
	return s.start(ctx, devices)
}

// Stop ends every device reader.
func (s *Source) Stop() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Available reports whether at least one device can be opened for reading.
func Available(paths []string) (bool, string) {
	devices := Explicit(paths)
	if len(devices) == 0 {
		discovered, err := Discover()
		if err != nil {
			return false, fmt.Sprintf("cannot list input devices: %v", err)
		}
		devices = discovered
	}
	if len(devices) == 0 {
		return false, "no keyboard devices found"
	}
	for _, dev := range devices {
		f, err := os.OpenFile(dev.Path, os.O_RDONLY, 0)
		if err == nil {
			_ = f.Close()
			return true, fmt.Sprintf("readable input device: %s (%s)", dev.Path, dev.Name)
		}
	}
	return false, "cannot read input devices (join the 'input' group)"
}
