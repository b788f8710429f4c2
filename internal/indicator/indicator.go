// Package indicator surfaces expansion failures as notifications and plays
// audio cues.
package indicator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rbright/presto/internal/config"
	"github.com/rbright/presto/internal/hypr"
	"github.com/rs/zerolog"
)

// Indicator reports per-event outcomes through Hyprland or desktop
// notifications. It satisfies engine.Reporter.
type Indicator struct {
	cfg      config.IndicatorConfig
	logger   zerolog.Logger
	messages messages
	desktop  notifier
	cue      func(context.Context, cueKind, config.IndicatorConfig) error

	mu                    sync.Mutex
	desktopNotificationID uint32
	soundMu               sync.Mutex
}

// New creates an indicator from config.
func New(cfg config.IndicatorConfig, logger zerolog.Logger) *Indicator {
	return &Indicator{
		cfg:      cfg,
		logger:   logger.With().Str("component", "indicator").Logger(),
		messages: indicatorMessagesFromEnv(),
		desktop:  dbusNotifier{},
		cue:      emitCue,
	}
}

// Expanded plays the expansion cue.
func (h *Indicator) Expanded(context.Context) {
	h.playCue(cueComplete)
}

// ReportError plays the error cue and shows text.
func (h *Indicator) ReportError(ctx context.Context, text string) {
	h.playCue(cueError)
	if !h.cfg.Enable {
		return
	}
	if text == "" {
		text = h.messages.errorText
	}
	timeout := h.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = 1200
	}
	h.run(ctx, func(ctx context.Context) error {
		return h.notify(ctx, 3, timeout, "rgb(f38ba8)", text)
	})
}

// Close dismisses any visible notification.
func (h *Indicator) Close(ctx context.Context) {
	if !h.cfg.Enable {
		return
	}
	h.run(ctx, h.dismiss)
}

func (h *Indicator) useDesktop() bool {
	return strings.EqualFold(strings.TrimSpace(h.cfg.Backend), "desktop")
}

// notify dispatches indicator output through the configured backend.
func (h *Indicator) notify(ctx context.Context, icon int, timeoutMS int, color string, text string) error {
	if h.useDesktop() {
		return h.notifyDesktop(ctx, timeoutMS, text)
	}
	return hypr.Notify(ctx, icon, timeoutMS, color, text)
}

// dismiss removes indicator output from the configured backend.
func (h *Indicator) dismiss(ctx context.Context) error {
	if h.useDesktop() {
		return h.dismissDesktop(ctx)
	}
	return hypr.DismissNotify(ctx)
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (h *Indicator) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	h.mu.Lock()
	replaceID := h.desktopNotificationID
	h.mu.Unlock()

	appName := strings.TrimSpace(h.cfg.DesktopAppName)
	if appName == "" {
		appName = "presto"
	}

	id, err := h.desktop.Notify(ctx, appName, replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.desktopNotificationID = id
	h.mu.Unlock()
	return nil
}

// dismissDesktop closes the current desktop notification ID when present.
func (h *Indicator) dismissDesktop(ctx context.Context) error {
	h.mu.Lock()
	id := h.desktopNotificationID
	h.desktopNotificationID = 0
	h.mu.Unlock()

	if id == 0 {
		return nil
	}
	return h.desktop.Dismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout. The engine
// loop must not wait on a slow notification daemon.
func (h *Indicator) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		h.logger.Debug().Err(err).Msg("indicator dispatch failed")
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (h *Indicator) playCue(kind cueKind) {
	if !h.cfg.SoundEnable {
		return
	}
	go func() {
		h.soundMu.Lock()
		defer h.soundMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := h.cue(ctx, kind, h.cfg); err != nil {
			h.logger.Debug().Err(err).Msg("indicator audio cue failed")
		}
	}()
}
