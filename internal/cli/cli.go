// Package cli defines the presto command tree. It parses arguments and hands
// each command to a Handler; it performs no work of its own.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/presto/internal/config"
	"github.com/rbright/presto/internal/ipc"
	"github.com/rbright/presto/internal/version"
	"github.com/spf13/cobra"
)

// Globals are the persistent flags shared by every command.
type Globals struct {
	ConfigDir string
	Verbosity int
}

// Handler executes parsed commands.
type Handler interface {
	Run(ctx context.Context, g Globals) error
	Try(ctx context.Context, g Globals) error
	Control(ctx context.Context, g Globals, command string) error
	ListMatches(ctx context.Context, g Globals, app config.AppContext) error
	Doctor(ctx context.Context, g Globals) error
}

// RuntimeError marks a failure that happened after arguments were accepted.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string { return e.Err.Error() }

func (e *RuntimeError) Unwrap() error { return e.Err }

// ExitCode maps an Execute error to the process exit code: 0 on success, 1
// for runtime failures, 2 for usage errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var runtimeErr *RuntimeError
	if errors.As(err, &runtimeErr) {
		return 1
	}
	return 2
}

// IsUsageError reports whether err came from argument parsing.
func IsUsageError(err error) bool {
	return ExitCode(err) == 2
}

func runtime(err error) error {
	if err == nil {
		return nil
	}
	return &RuntimeError{Err: err}
}

// NewRootCmd builds the command tree bound to h.
func NewRootCmd(h Handler) *cobra.Command {
	var g Globals

	root := &cobra.Command{
		Use:   "presto",
		Short: "Text expansion for Hyprland",
		Long: `presto watches what you type and replaces configured triggers with
their expansions in whichever application has focus.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.ConfigDir, "config", "", "config directory (default $XDG_CONFIG_HOME/presto)")
	root.PersistentFlags().CountVarP(&g.Verbosity, "verbose", "v", "increase log verbosity (-v debug, -vv trace)")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the expansion daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runtime(h.Run(cmd.Context(), g))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "try",
		Short: "Try expansions in a terminal playground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runtime(h.Try(cmd.Context(), g))
		},
	})

	for _, command := range ipc.Commands {
		command := command
		root.AddCommand(&cobra.Command{
			Use:   command,
			Short: controlHelp[command],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runtime(h.Control(cmd.Context(), g, command))
			},
		})
	}

	root.AddCommand(newMatchCmd(h, &g))

	root.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Check the environment and configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runtime(h.Doctor(cmd.Context(), g))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	})

	return root
}

var controlHelp = map[string]string{
	ipc.CommandStatus:  "Print the state of the running daemon",
	ipc.CommandToggle:  "Pause or resume expansion",
	ipc.CommandEnable:  "Resume expansion",
	ipc.CommandDisable: "Pause expansion",
	ipc.CommandReload:  "Reload configuration and match files",
	ipc.CommandStop:    "Stop the running daemon",
}

func newMatchCmd(h Handler, g *Globals) *cobra.Command {
	match := &cobra.Command{
		Use:   "match",
		Short: "Inspect configured matches",
	}

	var app config.AppContext
	list := &cobra.Command{
		Use:   "list",
		Short: "List the matches active for an application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runtime(h.ListMatches(cmd.Context(), *g, app))
		},
	}
	list.Flags().StringVar(&app.Class, "class", "", "window class to resolve matches for")
	list.Flags().StringVar(&app.Title, "title", "", "window title to resolve matches for")

	match.AddCommand(list)
	return match
}
