package config

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces bursts of editor writes into one reload.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reloads a Manager when files under its root change.
type Watcher struct {
	manager  *Manager
	logger   zerolog.Logger
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewWatcher subscribes to the config and match directories of m.
func NewWatcher(m *Manager, logger zerolog.Logger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		manager:  m,
		logger:   logger.With().Str("component", "config_watch").Logger(),
		debounce: DefaultDebounce,
		watcher:  watcher,
	}

	if err := watcher.Add(m.Root()); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", m.Root(), err)
	}
	for _, dir := range []string{ConfigDir(m.Root()), MatchDir(m.Root())} {
		w.addTree(dir)
	}
	return w, nil
}

// addTree watches dir and its subdirectories; fsnotify is not recursive.
func (w *Watcher) addTree(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.Debug().Err(err).Str("path", path).Msg("watch directory failed")
			}
		}
		return nil
	})
}

// Run dispatches filesystem events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					w.addTree(ev.Name)
				}
			}
			if !w.relevant(ev.Name) {
				continue
			}

			w.logger.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("config change")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				_, _ = w.manager.Reload()
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) relevant(path string) bool {
	if isMatchFile(path) {
		return true
	}
	// Removing or renaming a directory drops every match file inside it.
	return filepath.Ext(path) == ""
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
