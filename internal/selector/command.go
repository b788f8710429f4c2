// Package selector asks the user to pick between ambiguous matches through a
// dmenu-style command (fuzzel --dmenu, wofi --dmenu, rofi -dmenu).
package selector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/presto/internal/process"
	"github.com/rs/zerolog"
)

// waitDelay bounds how long a killed chooser may hold its pipes open.
const waitDelay = 500 * time.Millisecond

// Command runs argv with one numbered candidate per stdin line and reads the
// chosen line from stdout.
type Command struct {
	argv   []string
	logger zerolog.Logger
}

// NewCommand returns nil when argv is empty so the selector falls back to
// configuration order.
func NewCommand(argv []string, logger zerolog.Logger) *Command {
	if len(argv) == 0 {
		return nil
	}
	return &Command{
		argv:   append([]string(nil), argv...),
		logger: logger.With().Str("component", "selector").Logger(),
	}
}

// Choose implements process.Chooser. An empty selection or a non-zero exit
// (dmenu convention for Escape) cancels.
func (c *Command) Choose(ctx context.Context, candidates []process.Candidate) (int, error) {
	var stdin bytes.Buffer
	for i, candidate := range candidates {
		fmt.Fprintf(&stdin, "%d: %s\n", i+1, menuLine(candidate.Label()))
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdin = &stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	c.logger.Debug().Int("candidates", len(candidates)).Msg("asking user")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return -1, fmt.Errorf("%w: %s exited %d", process.ErrSelectionCancelled, c.argv[0], exitErr.ExitCode())
		}
		return -1, fmt.Errorf("run %s: %w", c.argv[0], err)
	}

	choice := strings.TrimSpace(stdout.String())
	if choice == "" {
		return -1, process.ErrSelectionCancelled
	}
	return parseChoice(choice, candidates)
}

// parseChoice accepts "N: label", a bare index, or an exact label.
func parseChoice(choice string, candidates []process.Candidate) (int, error) {
	head, _, _ := strings.Cut(choice, ":")
	if n, err := strconv.Atoi(strings.TrimSpace(head)); err == nil && n >= 1 && n <= len(candidates) {
		return n - 1, nil
	}
	for i, candidate := range candidates {
		if menuLine(candidate.Label()) == choice {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: unrecognized choice %q", process.ErrSelectionCancelled, choice)
}

// menuLine flattens multi-line replacements for display.
func menuLine(label string) string {
	return strings.Join(strings.Fields(label), " ")
}
