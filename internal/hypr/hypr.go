// Package hypr talks to Hyprland through hyprctl and its event socket.
package hypr

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/presto/internal/config"
)

// appQueryTimeout bounds the per-cycle focused-window lookup.
const appQueryTimeout = 500 * time.Millisecond

// AppInfo resolves the focused Hyprland window as an application context.
type AppInfo struct{}

// CurrentApp returns the class and title of the focused window.
func (AppInfo) CurrentApp(ctx context.Context) (config.AppContext, error) {
	ctx, cancel := context.WithTimeout(ctx, appQueryTimeout)
	defer cancel()

	window, err := QueryActiveWindow(ctx)
	if err != nil {
		return config.AppContext{}, err
	}
	return config.AppContext{Class: window.Class, Title: window.Title}, nil
}

func runHyprctl(ctx context.Context, args ...string) error {
	_, err := runHyprctlOutput(ctx, args...)
	return err
}

func runHyprctlOutput(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "hyprctl", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return nil, fmt.Errorf("hyprctl %v failed: %w", args, err)
		}
		return nil, fmt.Errorf("hyprctl %v failed: %w (%s)", args, err, trimmed)
	}
	return out, nil
}
