// Package app wires the command tree to the engine and its collaborators.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rbright/presto/internal/cli"
	"github.com/rbright/presto/internal/config"
	"github.com/rbright/presto/internal/dispatch"
	"github.com/rbright/presto/internal/doctor"
	"github.com/rbright/presto/internal/engine"
	"github.com/rbright/presto/internal/evdev"
	"github.com/rbright/presto/internal/fsm"
	"github.com/rbright/presto/internal/funnel"
	"github.com/rbright/presto/internal/health"
	"github.com/rbright/presto/internal/hypr"
	"github.com/rbright/presto/internal/indicator"
	"github.com/rbright/presto/internal/ipc"
	"github.com/rbright/presto/internal/logging"
	"github.com/rbright/presto/internal/output"
	"github.com/rbright/presto/internal/process"
	"github.com/rbright/presto/internal/selector"
	"github.com/rbright/presto/internal/terminal"
	"github.com/rs/zerolog"
)

// Runner executes commands against the given standard streams.
type Runner struct {
	Stdin  *os.File
	Stdout io.Writer
	Stderr io.Writer
	// Logger replaces the JSONL file logger when set.
	Logger *zerolog.Logger
}

// Execute runs args and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdin: os.Stdin, Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	root := cli.NewRootCmd(r)
	root.SetArgs(args)
	root.SetOut(r.Stdout)
	root.SetErr(r.Stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	if cli.IsUsageError(err) {
		fmt.Fprintf(r.Stderr, "\n%s", root.UsageString())
	}
	return cli.ExitCode(err)
}

func (r Runner) logger(g cli.Globals) (zerolog.Logger, func(), error) {
	if r.Logger != nil {
		return *r.Logger, func() {}, nil
	}
	runtime, err := logging.New(g.Verbosity, nil)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("setup logging: %w", err)
	}
	return runtime.Logger, func() { _ = runtime.Close() }, nil
}

func (r Runner) printWarnings(warnings []config.Warning, logger zerolog.Logger) {
	for _, w := range warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, msg)
		}
		if w.File != "" && !strings.Contains(msg, w.File) {
			msg = w.File + ": " + msg
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn().Str("file", w.File).Int("line", w.Line).Msg(w.Message)
	}
}

// Run starts the daemon and blocks until it stops.
func (r Runner) Run(ctx context.Context, g cli.Globals) error {
	logger, closeLog, err := r.logger(g)
	if err != nil {
		return err
	}
	defer closeLog()

	manager, err := config.NewManager(g.ConfigDir, logger)
	if err != nil {
		return err
	}
	r.printWarnings(manager.Loaded().Warnings, logger)
	cfg := manager.Config()

	sources, err := daemonSources(cfg, logger)
	if err != nil {
		return err
	}
	executor, err := output.NewExecutor(cfg, logger)
	if err != nil {
		return err
	}
	reporter := indicator.New(cfg.Indicator, logger)
	defer reporter.Close(context.Background())

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}
	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			return errors.New("presto is already running")
		}
		return err
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	eng := buildEngine(manager, wiring{
		apps:     hypr.AppInfo{},
		sources:  sources,
		executor: executor,
		reporter: reporter,
	}, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Watch {
		watcher, err := config.NewWatcher(manager, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("config watch unavailable")
		} else {
			defer watcher.Close()
			go func() { _ = watcher.Run(runCtx) }()
		}
	}
	if cfg.Health.Enable {
		stopHealth, err := startHealth(runCtx, eng, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("health endpoint unavailable")
		} else {
			defer stopHealth()
		}
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(runCtx, listener, eng)
	}()

	logger.Info().
		Str("config", manager.Root()).
		Int("matches", len(manager.Loaded().Matches)).
		Str("backend", string(cfg.Backend)).
		Msg("daemon start")

	runErr := eng.Run(runCtx)
	cancel()
	if serverErr := <-serverErrCh; serverErr != nil && runErr == nil {
		runErr = fmt.Errorf("ipc server failed: %w", serverErr)
	}
	return runErr
}

// daemonSources lists the event sources enabled by cfg.
func daemonSources(cfg config.Config, logger zerolog.Logger) ([]funnel.Source, error) {
	var sources []funnel.Source
	if cfg.Sources.Evdev {
		sources = append(sources, evdev.NewSource(cfg.Sources.Devices, logger))
	}
	if cfg.Sources.Focus {
		if strings.TrimSpace(os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")) != "" {
			sources = append(sources, hypr.NewFocusSource("", logger))
		} else {
			logger.Info().Msg("no Hyprland session; focus tracking disabled")
		}
	}
	if len(sources) == 0 {
		return nil, errors.New("no event sources enabled")
	}
	return sources, nil
}

// startHealth serves the gRPC health endpoint for eng.
func startHealth(ctx context.Context, eng *engine.Engine, logger zerolog.Logger) (func(), error) {
	path, err := ipc.HealthSocketPath()
	if err != nil {
		return nil, err
	}
	listener, err := health.Listen(path)
	if err != nil {
		return nil, err
	}

	server := health.NewServer(logger)
	server.Observe(eng.State())
	eng.Observe(server.Observe)
	go func() {
		if err := server.Serve(ctx, listener); err != nil {
			logger.Warn().Err(err).Msg("health server stopped")
		}
	}()
	return func() {
		server.Stop()
		_ = os.Remove(path)
	}, nil
}

type wiring struct {
	apps     process.AppInfoProvider
	sources  []funnel.Source
	executor dispatch.Executor
	reporter engine.Reporter
}

// buildEngine assembles the processing pipeline around manager. Special keys
// and matches follow the manager's snapshot; everything read from cfg here
// applies until restart.
func buildEngine(manager *config.Manager, w wiring, logger zerolog.Logger) *engine.Engine {
	cfg := manager.Config()

	var chooser process.Chooser
	if cmd := selector.NewCommand(cfg.Selector.Cmd.Argv, logger); cmd != nil {
		chooser = cmd
	}
	sel := process.NewSelector(cfg.Selector.TieBreak, chooser, time.Duration(cfg.Selector.TimeoutMS)*time.Millisecond)

	proc := process.New(w.apps, manager, process.Options{
		Selector: sel,
		Logger:   logger,
	})
	manager.OnReload(func(config.Loaded) { proc.Invalidate() })

	return engine.New(
		funnel.New(logger, w.sources...),
		proc,
		dispatch.New(w.executor, logger),
		engine.Options{Logger: logger, Reporter: w.reporter, Reloader: manager},
	)
}

// screenReporter prints engine failures into the playground.
type screenReporter struct {
	screen *terminal.Screen
}

func (screenReporter) Expanded(context.Context) {}

func (s screenReporter) ReportError(_ context.Context, text string) {
	s.screen.Printf("\n[presto] %s\n", text)
}

// Try runs the engine against the terminal instead of the keyboard.
func (r Runner) Try(ctx context.Context, g cli.Globals) error {
	logger, closeLog, err := r.logger(g)
	if err != nil {
		return err
	}
	defer closeLog()

	manager, err := config.NewManager(g.ConfigDir, logger)
	if err != nil {
		return err
	}
	r.printWarnings(manager.Loaded().Warnings, logger)

	stdin := r.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	screen := terminal.NewScreen(r.Stdout)

	var eng *engine.Engine
	src := terminal.NewSource(stdin, screen, func() { eng.Shutdown() })
	eng = buildEngine(manager, wiring{
		sources:  []funnel.Source{src},
		executor: screen,
		reporter: screenReporter{screen: screen},
	}, logger)

	screen.Printf("presto playground: %d matches loaded, Ctrl-C to quit\n", len(manager.Loaded().Matches))
	err = eng.Run(ctx)
	screen.Printf("\n")
	if errors.Is(err, funnel.ErrExhausted) {
		// Input closed.
		return nil
	}
	return err
}

// Control forwards command to the running daemon.
func (r Runner) Control(ctx context.Context, _ cli.Globals, command string) error {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return err
	}

	resp, err := ipc.Send(ctx, socketPath, ipc.Request{Command: command}, 2*time.Second)
	if err != nil {
		if ipc.NotRunning(err) {
			if command == ipc.CommandStatus {
				fmt.Fprintln(r.Stdout, fsm.StateStopped)
				return nil
			}
			return errors.New("presto is not running")
		}
		return fmt.Errorf("forward command %q: %w", command, err)
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}

	if command == ipc.CommandStatus {
		r.printStatus(resp)
		return nil
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	if n := resp.Detail["warnings"]; n != "" {
		fmt.Fprintf(r.Stderr, "warning: %s config warnings; see the log\n", n)
	}
	return nil
}

func (r Runner) printStatus(resp ipc.Response) {
	line := resp.State
	if resp.Message != "" {
		line = fmt.Sprintf("%s (%s)", line, resp.Message)
	}
	fmt.Fprintln(r.Stdout, line)

	keys := make([]string, 0, len(resp.Detail))
	for key := range resp.Detail {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(r.Stdout, "  %s: %s\n", key, resp.Detail[key])
	}
}

// ListMatches prints the match set active for app, or the unscoped set when
// app is empty.
func (r Runner) ListMatches(_ context.Context, g cli.Globals, app config.AppContext) error {
	loaded, err := config.Load(g.ConfigDir)
	if err != nil {
		return err
	}
	r.printWarnings(loaded.Warnings, zerolog.Nop())

	manager := config.NewManagerFromLoaded(loaded, zerolog.Nop())
	set := manager.DefaultMatches()
	if !app.IsZero() {
		if set, err = manager.ActiveMatches(app); err != nil {
			return err
		}
	}
	if set.Disabled {
		fmt.Fprintln(r.Stdout, "expansion is disabled for this application")
		return nil
	}
	if len(set.Definitions) == 0 {
		fmt.Fprintln(r.Stdout, "no matches")
		return nil
	}

	rows := make([][]string, 0, len(set.Definitions))
	for _, def := range set.Definitions {
		rows = append(rows, []string{strings.Join(def.Triggers, ", "), preview(def), def.File})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TRIGGER", "REPLACE", "FILE").
		Rows(rows...)
	fmt.Fprintln(r.Stdout, t.String())
	return nil
}

// preview shortens a replacement to one line.
func preview(def config.MatchDefinition) string {
	if def.Label != "" {
		return def.Label
	}
	text := strings.Join(strings.Fields(def.Replace), " ")
	runes := []rune(text)
	if len(runes) > 40 {
		return string(runes[:39]) + "…"
	}
	return text
}

// Doctor prints environment diagnostics.
func (r Runner) Doctor(ctx context.Context, g cli.Globals) error {
	report := doctor.Run(ctx, g.ConfigDir)
	report.Render(r.Stdout)
	if !report.OK() {
		return errors.New("doctor found problems")
	}
	return nil
}
