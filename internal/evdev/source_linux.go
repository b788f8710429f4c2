//go:build linux

package evdev

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rbright/presto/internal/event"
	"golang.org/x/sys/unix"
)

// pollTimeoutMS bounds how long a reader waits before rechecking stop.
const pollTimeoutMS = 100

func (s *Source) start(ctx context.Context, devices []Device) (<-chan event.Event, error) {
	out := make(chan event.Event, 64)
	var wg sync.WaitGroup
	opened := 0
	var firstErr error

	for _, dev := range devices {
		fd, err := unix.Open(dev.Path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			s.logger.Warn().Err(err).Str("device", dev.Path).Msg("open input device")
			if firstErr == nil {
				firstErr = fmt.Errorf("open %s: %w", dev.Path, err)
			}
			continue
		}
		opened++
		s.logger.Debug().Str("device", dev.Path).Str("name", dev.Name).Msg("reading input device")

		wg.Add(1)
		go func(dev Device, fd int) {
			defer wg.Done()
			defer unix.Close(fd)
			s.read(ctx, dev, fd, out)
		}(dev, fd)
	}

	if opened == 0 {
		return nil, firstErr
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

func (s *Source) read(ctx context.Context, dev Device, fd int, out chan<- event.Event) {
	var translator Translator
	buf := make([]byte, inputEventSize*64)
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		default:
		}

		n, err := unix.Poll(fds, pollTimeoutMS)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			s.logger.Warn().Err(err).Str("device", dev.Path).Msg("poll input device")
			return
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			s.logger.Warn().Str("device", dev.Path).Msg("input device removed")
			return
		}

		n, err = unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			s.logger.Warn().Err(err).Str("device", dev.Path).Msg("read input device")
			return
		}

		for off := 0; off+inputEventSize <= n; off += inputEventSize {
			raw, ok := decode(buf[off : off+inputEventSize])
			if !ok {
				continue
			}
			ev, ok := translator.Translate(raw)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			}
		}
	}
}
