package output

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/rbright/presto/internal/config"
	"github.com/rbright/presto/internal/dispatch"
	"github.com/rs/zerolog"
)

// Keys injects text by simulating key presses.
type Keys struct {
	typeArgv      []string
	backspaceArgv []string
	logger        zerolog.Logger
}

// NewKeys builds the simulated-keystroke executor.
func NewKeys(cfg config.KeysConfig, logger zerolog.Logger) *Keys {
	return &Keys{
		typeArgv:      cfg.TypeCmd.Argv,
		backspaceArgv: cfg.BackspaceCmd.Argv,
		logger:        logger.With().Str("component", "output").Str("backend", "keys").Logger(),
	}
}

// Inject erases deleteCount characters, then types text from stdin.
func (k *Keys) Inject(ctx context.Context, deleteCount int, text string) error {
	if err := k.erase(ctx, deleteCount); err != nil {
		return err
	}
	if text == "" {
		return nil
	}

	typeCtx, cancel := context.WithTimeout(ctx, commandTimeout(utf8.RuneCountInString(text)))
	defer cancel()
	if err := runCommandWithInput(typeCtx, k.typeArgv, text); err != nil {
		return dispatch.InsertFailed(err, deleteCount > 0)
	}
	return nil
}

// erase presses Backspace n times. Arguments after the program name are
// repeated so one process handles the whole run; a bare program runs n times.
// Failures come back as delete-stage ExecutorErrors, partial once any press
// already landed.
func (k *Keys) erase(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if len(k.backspaceArgv) == 0 {
		return dispatch.DeleteFailed(errors.New("backspace command is not configured"))
	}

	eraseCtx, cancel := context.WithTimeout(ctx, commandTimeout(n))
	defer cancel()

	if len(k.backspaceArgv) == 1 {
		for i := 0; i < n; i++ {
			if err := runCommandWithInput(eraseCtx, k.backspaceArgv, ""); err != nil {
				if i > 0 {
					k.logger.Warn().Int("erased", i).Int("count", n).Msg("erase stopped partway")
					return dispatch.PartialDeleteFailed(err)
				}
				return dispatch.DeleteFailed(err)
			}
		}
		return nil
	}
	k.logger.Debug().Int("count", n).Msg("erase")
	if err := runCommandWithInput(eraseCtx, repeatArgs(k.backspaceArgv, n), ""); err != nil {
		return dispatch.DeleteFailed(err)
	}
	return nil
}

func repeatArgs(argv []string, n int) []string {
	out := make([]string, 0, 1+n*(len(argv)-1))
	out = append(out, argv[0])
	for i := 0; i < n; i++ {
		out = append(out, argv[1:]...)
	}
	return out
}
