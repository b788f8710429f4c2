package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ErrConfigUnavailable reports that no match set could be resolved for a context.
var ErrConfigUnavailable = errors.New("config unavailable for application context")

type snapshot struct {
	generation uint64
	loaded     Loaded
	defaults   *MatchSet
}

// Manager owns the live configuration snapshot. Readers never lock: a reload
// builds a new snapshot and swaps it atomically.
type Manager struct {
	root   string
	logger zerolog.Logger

	current    atomic.Pointer[snapshot]
	generation atomic.Uint64

	reloadMu  sync.Mutex
	mu        sync.Mutex
	listeners []func(Loaded)
}

// NewManager loads the configuration tree under root.
func NewManager(root string, logger zerolog.Logger) (*Manager, error) {
	loaded, err := Load(root)
	if err != nil {
		return nil, err
	}
	return NewManagerFromLoaded(loaded, logger), nil
}

// NewManagerFromLoaded wraps an already loaded configuration.
func NewManagerFromLoaded(loaded Loaded, logger zerolog.Logger) *Manager {
	m := &Manager{
		root:   loaded.Root,
		logger: logger.With().Str("component", "config").Logger(),
	}
	m.swap(loaded)
	return m
}

// Root is the configuration directory this manager reloads from.
func (m *Manager) Root() string {
	return m.root
}

// Loaded returns the current snapshot's load result.
func (m *Manager) Loaded() Loaded {
	return m.current.Load().loaded
}

// Config returns the current engine configuration.
func (m *Manager) Config() Config {
	return m.current.Load().loaded.Config
}

// Generation increments on every successful reload.
func (m *Manager) Generation() uint64 {
	return m.current.Load().generation
}

// OnReload registers fn to run after every successful reload.
func (m *Manager) OnReload(fn func(Loaded)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Reload re-reads the configuration tree. On failure the previous snapshot
// stays active.
func (m *Manager) Reload() (Loaded, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	loaded, err := Load(m.root)
	if err != nil {
		m.logger.Warn().Err(err).Msg("config reload failed; keeping previous snapshot")
		return Loaded{}, fmt.Errorf("reload config: %w", err)
	}
	m.swap(loaded)
	for _, w := range loaded.Warnings {
		m.logger.Warn().Str("file", w.File).Msg(w.Message)
	}
	m.logger.Info().
		Uint64("generation", m.Generation()).
		Int("matches", len(loaded.Matches)).
		Int("apps", len(loaded.Apps)).
		Msg("config reloaded")

	m.mu.Lock()
	listeners := append([]func(Loaded){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(loaded)
	}
	return loaded, nil
}

func (m *Manager) swap(loaded Loaded) {
	snap := &snapshot{
		generation: m.generation.Add(1),
		loaded:     loaded,
	}
	snap.defaults = snap.build(AppContext{}, false, func(def MatchDefinition) bool {
		return def.Filter.Empty()
	})
	m.current.Store(snap)
}

// DefaultMatches returns the unscoped match set used when no application
// context can be resolved.
func (m *Manager) DefaultMatches() *MatchSet {
	return m.current.Load().defaults
}

// ActiveMatches resolves the match set for ctx: unscoped definitions plus
// those whose filters match. An app config with enable: false yields a
// disabled set.
func (m *Manager) ActiveMatches(ctx AppContext) (*MatchSet, error) {
	if ctx.IsZero() {
		return nil, ErrConfigUnavailable
	}
	snap := m.current.Load()

	disabled := false
	for _, app := range snap.loaded.Apps {
		if app.Filter.Matches(ctx) {
			disabled = !app.Enable
			break
		}
	}

	return snap.build(ctx, disabled, func(def MatchDefinition) bool {
		return def.Filter.Empty() || def.Filter.Matches(ctx)
	}), nil
}

func (s *snapshot) build(ctx AppContext, disabled bool, include func(MatchDefinition) bool) *MatchSet {
	cfg := s.loaded.Config
	set := &MatchSet{
		Context:  ctx,
		Disabled: disabled,
		Options: MatchOptions{
			WordSeparators: cfg.WordSeparators,
			BackspaceLimit: cfg.BackspaceLimit,
			UndoBackspace:  cfg.UndoBackspace,
		},
	}
	// Load validates special_keys, so only hand-built configs can fail here.
	if classes, err := cfg.Classes(); err == nil {
		set.Options.SpecialKeys = classes
	}

	hash := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], s.generation)
	_, _ = hash.Write(buf[:])

	if !disabled {
		for _, def := range s.loaded.Matches {
			if !include(def) {
				continue
			}
			set.Definitions = append(set.Definitions, def)
			binary.LittleEndian.PutUint64(buf[:], uint64(def.Order))
			_, _ = hash.Write(buf[:])
		}
	}

	state := "on"
	if disabled {
		state = "off"
	}
	set.Key = fmt.Sprintf("g%d-%s-%x", s.generation, state, hash.Sum64())
	return set
}
