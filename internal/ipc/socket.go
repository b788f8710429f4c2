package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/adrg/xdg"
)

var ErrAlreadyRunning = errors.New("presto already running")

const (
	controlSocket = "presto.sock"
	healthSocket  = "presto-health.sock"
)

// RuntimeSocketPath is the control socket under the XDG runtime dir.
func RuntimeSocketPath() (string, error) {
	return runtimePath(controlSocket)
}

// HealthSocketPath is the gRPC health socket under the XDG runtime dir.
func HealthSocketPath() (string, error) {
	return runtimePath(healthSocket)
}

func runtimePath(name string) (string, error) {
	runtimeDir := strings.TrimSpace(xdg.RuntimeDir)
	if runtimeDir == "" {
		return "", errors.New("XDG runtime directory is not available")
	}
	return filepath.Join(runtimeDir, name), nil
}

// Acquire binds the single-instance socket at path. A socket answered by a
// live owner yields ErrAlreadyRunning; a stale one is removed, rescue runs,
// and binding is retried.
func Acquire(
	ctx context.Context,
	path string,
	probeTimeout time.Duration,
	retries int,
	rescue func(context.Context) error,
) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 0; attempt <= retries; attempt++ {
		listener, err := net.Listen("unix", path)
		if err == nil {
			_ = os.Chmod(path, 0o600)
			return listener, nil
		}

		if !isAddrInUse(err) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		alive, probeErr := Probe(ctx, path, probeTimeout)
		if alive {
			return nil, ErrAlreadyRunning
		}
		if probeErr != nil {
			return nil, fmt.Errorf("probe existing socket %s: %w", path, probeErr)
		}

		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, removeErr)
		}

		if rescue != nil {
			_ = rescue(ctx)
		}

		if attempt < retries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(25*(attempt+1)) * time.Millisecond):
			}
		}
	}

	return nil, fmt.Errorf("failed to acquire socket %s after %d retries", path, retries)
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
