// Package doctor runs readiness diagnostics for the session, executor tools,
// input devices, configuration, and the health endpoint.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/rbright/presto/internal/config"
	"github.com/rbright/presto/internal/evdev"
	"github.com/rbright/presto/internal/health"
	"github.com/rbright/presto/internal/ipc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as plain text.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Render writes the report to w, styled when w is a terminal.
func (r Report) Render(w io.Writer) {
	if !isTerminal(w) {
		fmt.Fprintln(w, r.String())
		return
	}

	renderer := lipgloss.NewRenderer(w)
	pass := renderer.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	fail := renderer.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	name := renderer.NewStyle().Bold(true)
	muted := renderer.NewStyle().Foreground(lipgloss.Color("8"))

	for _, check := range r.Checks {
		status := pass.Render("✓")
		if !check.Pass {
			status = fail.Render("✗")
		}
		fmt.Fprintf(w, "%s %s %s\n", status, name.Render(check.Name), muted.Render(check.Message))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Run loads the configuration under root and executes every check.
func Run(ctx context.Context, root string) Report {
	checks := []Check{}

	loaded, err := config.Load(root)
	if err != nil {
		checks = append(checks, Check{Name: "config", Pass: false, Message: err.Error()})
		loaded = config.Loaded{Config: config.Default()}
	} else {
		checks = append(checks, checkConfig(loaded))
	}
	cfg := loaded.Config

	checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), "wayland")
	}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))

	checks = append(checks, checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty"))

	checks = append(checks, checkBinary("hyprctl", "application context and notifications"))

	if cfg.Backend != config.BackendClipboard {
		checks = append(checks, checkCommand(cfg.Keys.TypeCmd.Argv, "keys.type_cmd"))
	}
	checks = append(checks, checkCommand(cfg.Keys.BackspaceCmd.Argv, "keys.backspace_cmd"))
	if cfg.Backend != config.BackendKeys {
		checks = append(checks, checkCommand(cfg.Clipboard.CopyCmd.Argv, "clipboard.copy_cmd"))
		if len(cfg.Clipboard.PasteCmd.Argv) > 0 {
			checks = append(checks, checkCommand(cfg.Clipboard.PasteCmd.Argv, "clipboard.paste_cmd"))
		}
	}
	if len(cfg.Selector.Cmd.Argv) > 0 {
		checks = append(checks, checkCommand(cfg.Selector.Cmd.Argv, "selector.cmd"))
	}

	if cfg.Sources.Evdev {
		checks = append(checks, checkInputDevices(cfg.Sources.Devices))
	}
	if cfg.Health.Enable {
		checks = append(checks, checkHealth(ctx))
	}

	return Report{Checks: checks}
}

// checkConfig summarizes a successfully loaded configuration tree.
func checkConfig(loaded config.Loaded) Check {
	message := fmt.Sprintf("loaded %q: %d matches, %d app configs", loaded.Root, len(loaded.Matches), len(loaded.Apps))
	if n := len(loaded.Warnings); n > 0 {
		message = fmt.Sprintf("%s, %d warnings", message, n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkInputDevices verifies that a keyboard can be opened.
func checkInputDevices(paths []string) Check {
	ok, message := evdev.Available(paths)
	return Check{Name: "input.devices", Pass: ok, Message: message}
}

// checkHealth probes the health endpoint of a running daemon. A missing
// socket means no daemon is running, which is not a failure.
func checkHealth(ctx context.Context) Check {
	path, err := ipc.HealthSocketPath()
	if err != nil {
		return Check{Name: "health", Pass: false, Message: err.Error()}
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Check{Name: "health", Pass: true, Message: "daemon not running"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	status, err := health.Check(ctx, path)
	if err != nil {
		return Check{Name: "health", Pass: false, Message: err.Error()}
	}
	if status != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: "health", Pass: false, Message: fmt.Sprintf("engine reports %s", status)}
	}
	return Check{Name: "health", Pass: true, Message: "engine serving at " + path}
}
