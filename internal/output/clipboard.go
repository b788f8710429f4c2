package output

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/presto/internal/config"
	"github.com/rbright/presto/internal/dispatch"
	"github.com/rbright/presto/internal/hypr"
	"github.com/rs/zerolog"
)

// Clipboard injects text by placing it on the clipboard and pasting.
// Erasing the trigger still uses simulated Backspace presses.
type Clipboard struct {
	keys      *Keys
	copyArgv  []string
	pasteArgv []string
	shortcut  string
	delay     time.Duration
	// window resolves the address the paste shortcut targets.
	window func(ctx context.Context) (string, error)
	logger zerolog.Logger
}

// NewClipboard builds the clipboard+paste executor.
func NewClipboard(cfg config.Config, logger zerolog.Logger) *Clipboard {
	return &Clipboard{
		keys:      NewKeys(cfg.Keys, logger),
		copyArgv:  cfg.Clipboard.CopyCmd.Argv,
		pasteArgv: cfg.Clipboard.PasteCmd.Argv,
		shortcut:  cfg.Clipboard.PasteShortcut,
		delay:     time.Duration(cfg.Clipboard.PasteDelayMS) * time.Millisecond,
		window:    activeWindowAddress,
		logger:    logger.With().Str("component", "output").Str("backend", "clipboard").Logger(),
	}
}

// Inject erases deleteCount characters, copies text, and pastes it.
func (c *Clipboard) Inject(ctx context.Context, deleteCount int, text string) error {
	if err := c.keys.erase(ctx, deleteCount); err != nil {
		return err
	}
	if text == "" {
		return nil
	}
	deleted := deleteCount > 0

	copyCtx, copyCancel := context.WithTimeout(ctx, 2*time.Second)
	defer copyCancel()
	if err := runCommandWithInput(copyCtx, c.copyArgv, text); err != nil {
		return dispatch.InsertFailed(fmt.Errorf("set clipboard: %w", err), deleted)
	}

	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return dispatch.InsertFailed(ctx.Err(), deleted)
		case <-time.After(c.delay):
		}
	}

	if err := c.paste(ctx); err != nil {
		c.logger.Warn().Err(err).Msg("paste dispatch failed; clipboard remains set")
		return dispatch.InsertFailed(fmt.Errorf("paste: %w", err), deleted)
	}
	return nil
}

func (c *Clipboard) paste(ctx context.Context) error {
	if len(c.pasteArgv) > 0 {
		pasteCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return runCommandWithInput(pasteCtx, c.pasteArgv, "")
	}

	pasteCtx, cancel := context.WithTimeout(ctx, 1200*time.Millisecond)
	defer cancel()

	// The trigger was just typed into the focused window, so an unresolved
	// address still pastes there.
	address, err := c.window(pasteCtx)
	if err != nil {
		c.logger.Debug().Err(err).Msg("paste target unresolved; using focused window")
		address = ""
	}
	payload, err := shortcutPayload(c.shortcut, address)
	if err != nil {
		return err
	}
	return hypr.SendShortcut(pasteCtx, payload)
}

func activeWindowAddress(ctx context.Context) (string, error) {
	window, err := hypr.QueryActiveWindow(ctx)
	if err != nil {
		return "", err
	}
	return window.Address, nil
}

// shortcutPayload builds the sendshortcut argument. Without an address
// Hyprland delivers the shortcut to the focused window.
func shortcutPayload(shortcut string, address string) (string, error) {
	shortcut = strings.TrimSpace(shortcut)
	if shortcut == "" {
		return "", errors.New("clipboard.paste_shortcut is empty")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return shortcut, nil
	}
	return fmt.Sprintf("%s,address:%s", shortcut, address), nil
}
