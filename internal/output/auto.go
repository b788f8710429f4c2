package output

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rbright/presto/internal/config"
	"github.com/rbright/presto/internal/dispatch"
	"github.com/rs/zerolog"
)

// Auto types short replacements and pastes long ones.
type Auto struct {
	keys      *Keys
	clipboard *Clipboard
	threshold int
}

// NewAuto builds the threshold-switching executor.
func NewAuto(cfg config.Config, logger zerolog.Logger) *Auto {
	return &Auto{
		keys:      NewKeys(cfg.Keys, logger),
		clipboard: NewClipboard(cfg, logger),
		threshold: cfg.ClipboardThreshold,
	}
}

// Inject routes to the clipboard when text is longer than the threshold.
func (a *Auto) Inject(ctx context.Context, deleteCount int, text string) error {
	if utf8.RuneCountInString(text) > a.threshold {
		return a.clipboard.Inject(ctx, deleteCount, text)
	}
	return a.keys.Inject(ctx, deleteCount, text)
}

// NewExecutor builds the executor selected by cfg.Backend.
func NewExecutor(cfg config.Config, logger zerolog.Logger) (dispatch.Executor, error) {
	switch cfg.Backend {
	case config.BackendKeys:
		return NewKeys(cfg.Keys, logger), nil
	case config.BackendClipboard:
		return NewClipboard(cfg, logger), nil
	case config.BackendAuto, "":
		return NewAuto(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q", cfg.Backend)
	}
}
