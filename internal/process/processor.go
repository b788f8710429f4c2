// Package process turns events into at most one Action per cycle by
// combining the config manager, the rolling matcher, and the selector.
package process

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rbright/presto/internal/config"
	"github.com/rbright/presto/internal/dispatch"
	"github.com/rbright/presto/internal/event"
	"github.com/rbright/presto/internal/matcher"
	"github.com/rs/zerolog"
)

// AppInfoProvider resolves the focused application.
type AppInfoProvider interface {
	CurrentApp(ctx context.Context) (config.AppContext, error)
}

// AppInfoFunc adapts a function into an AppInfoProvider.
type AppInfoFunc func(ctx context.Context) (config.AppContext, error)

func (f AppInfoFunc) CurrentApp(ctx context.Context) (config.AppContext, error) {
	return f(ctx)
}

// ConfigManager maps application contexts to immutable match sets.
type ConfigManager interface {
	ActiveMatches(config.AppContext) (*config.MatchSet, error)
	DefaultMatches() *config.MatchSet
}

// Options configures a Processor.
type Options struct {
	Selector *Selector
	Logger   zerolog.Logger
}

// expansion remembers the last injection for undo.
type expansion struct {
	typed    string
	injected int
	matchID  string
}

// Status is a point-in-time view of processor state.
type Status struct {
	Enabled     bool
	Context     config.AppContext
	MatchSetKey string
	Matches     int
	Partials    int
}

// Processor is owned by the engine loop; only Invalidate is safe to call
// concurrently.
type Processor struct {
	apps       AppInfoProvider
	configs    ConfigManager
	selector   *Selector
	classifier event.Classifier
	logger     zerolog.Logger

	stale    atomic.Bool
	ctxValid bool
	appCtx   config.AppContext
	set      *config.MatchSet

	matcher    *matcher.Matcher
	matcherKey string
	defs       map[string]config.MatchDefinition
	enabled    bool
	// pending is the expansion the last cycle produced; it becomes last
	// only once the executor applied it.
	pending *expansion
	last    *expansion
}

// New builds a processor.
func New(apps AppInfoProvider, configs ConfigManager, opts Options) *Processor {
	if opts.Selector == nil {
		opts.Selector = NewSelector(nil, nil, 0)
	}
	if apps == nil {
		apps = AppInfoFunc(func(context.Context) (config.AppContext, error) {
			return config.AppContext{}, nil
		})
	}
	return &Processor{
		apps:       apps,
		configs:    configs,
		selector:   opts.Selector,
		classifier: event.NewClassifier(nil),
		logger:     opts.Logger.With().Str("component", "process").Logger(),
		enabled:    true,
	}
}

// Invalidate drops the cached application context and match set so the
// next cycle re-resolves them. Used after a config reload.
func (p *Processor) Invalidate() {
	p.stale.Store(true)
}

// Enabled reports whether expansion is active.
func (p *Processor) Enabled() bool {
	return p.enabled
}

// SetEnabled pauses or resumes expansion. Pausing discards partial state.
func (p *Processor) SetEnabled(enabled bool) {
	if p.enabled == enabled {
		return
	}
	p.enabled = enabled
	p.resetState()
	p.logger.Info().Bool("enabled", enabled).Msg("expansion toggled")
}

// Status reports processor state for the control socket.
func (p *Processor) Status() Status {
	status := Status{Enabled: p.enabled, Context: p.appCtx}
	if p.set != nil {
		status.MatchSetKey = p.set.Key
		status.Matches = len(p.set.Definitions)
	}
	if p.matcher != nil {
		for _, partials := range p.matcher.Partials() {
			status.Partials += len(partials)
		}
	}
	return status
}

// Process consumes one event and returns the resulting Action. Errors are
// per-cycle and never leave the processor in an inconsistent state.
func (p *Processor) Process(ctx context.Context, ev event.Event) (dispatch.Action, error) {
	p.pending = nil
	if p.stale.Swap(false) {
		p.ctxValid = false
	}
	if !p.enabled {
		return dispatch.NoOp(), nil
	}

	set := p.resolve(ctx)
	if set.Disabled {
		p.resetState()
		return dispatch.NoOp(), nil
	}
	p.ensureMatcher(set)

	ev, ok := p.classifier.Classify(ev)
	if !ok {
		return dispatch.NoOp(), nil
	}
	// Only a focus change can move input to another application.
	if ev.Kind == event.KindReset && ev.Reason == event.ReasonFocus {
		p.ctxValid = false
	}

	if action, ok := p.undo(ev, set); ok {
		return action, nil
	}
	p.last = nil

	completed := p.matcher.Process(ev)
	if len(completed) == 0 {
		return dispatch.NoOp(), nil
	}

	candidates := make([]Candidate, 0, len(completed))
	for _, c := range completed {
		def, ok := p.defs[c.Trigger.MatchID]
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{Completed: c, Definition: def})
	}
	if len(candidates) == 0 {
		return dispatch.NoOp(), nil
	}

	chosen, err := p.selector.Select(ctx, candidates)
	if err != nil {
		p.matcher.Reset()
		return dispatch.NoOp(), err
	}
	return p.expand(chosen, set), nil
}

func (p *Processor) resolve(ctx context.Context) *config.MatchSet {
	if p.ctxValid && p.set != nil {
		return p.set
	}

	appCtx, err := p.apps.CurrentApp(ctx)
	if err != nil {
		p.logger.Debug().Err(err).Msg("app info unavailable")
		appCtx = config.AppContext{}
	}

	set, err := p.configs.ActiveMatches(appCtx)
	if err != nil || set == nil {
		if err != nil && !errors.Is(err, config.ErrConfigUnavailable) {
			p.logger.Warn().Err(err).Msg("active matches failed; using defaults")
		}
		set = p.configs.DefaultMatches()
	}

	p.appCtx = appCtx
	p.set = set
	p.ctxValid = true
	return set
}

// ensureMatcher rebuilds the matcher when the active set changes. Definitions
// are never mutated in place.
func (p *Processor) ensureMatcher(set *config.MatchSet) {
	if p.matcher != nil && p.matcherKey == set.Key {
		return
	}

	triggers, defs := Triggers(set.Definitions)
	p.matcher = matcher.New(triggers, matcher.Options{
		IsSeparator:  matcher.SeparatorSet(set.Options.WordSeparators),
		HistoryLimit: set.Options.BackspaceLimit,
	})
	p.classifier = event.NewClassifier(set.Options.SpecialKeys)
	p.matcherKey = set.Key
	p.defs = defs
	p.last = nil
	p.logger.Debug().Str("set", set.Key).Int("triggers", len(triggers)).Msg("matcher rebuilt")
}

// Triggers converts match definitions into matcher triggers, one per
// configured trigger string, keyed back to their definition.
func Triggers(defs []config.MatchDefinition) ([]matcher.Trigger, map[string]config.MatchDefinition) {
	triggers := make([]matcher.Trigger, 0, len(defs))
	byID := make(map[string]config.MatchDefinition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
		for i, pattern := range def.Triggers {
			triggers = append(triggers, matcher.Trigger{
				ID:              fmt.Sprintf("%s/%d", def.ID, i),
				MatchID:         def.ID,
				Pattern:         pattern,
				CaseInsensitive: def.CaseInsensitive || def.PropagateCase,
				LeftWord:        def.LeftWord,
				RightWord:       def.RightWord,
			})
		}
	}
	return triggers, byID
}

func (p *Processor) expand(chosen Candidate, set *config.MatchSet) dispatch.Action {
	def := chosen.Definition
	text := def.Replace
	if def.PropagateCase {
		text = propagateCase(chosen.Completed.Typed, text, def.UppercaseStyle)
	}
	if chosen.Completed.Separator != 0 {
		text += string(chosen.Completed.Separator)
	}

	action := dispatch.Inject(chosen.Completed.Span(), text)
	action.MatchID = def.ID
	action.Trigger = chosen.Completed.Typed

	// The typed trigger is gone from the screen once injected.
	p.matcher.Reset()
	if set.Options.UndoBackspace {
		p.pending = &expansion{
			typed:    chosen.Completed.Typed,
			injected: utf8.RuneCountInString(text),
			matchID:  def.ID,
		}
	}
	return action
}

// undo turns a Backspace right after an expansion into an action restoring
// the typed trigger. The Backspace itself already erased one character.
func (p *Processor) undo(ev event.Event, set *config.MatchSet) (dispatch.Action, bool) {
	last := p.last
	if last == nil || ev.Kind != event.KindBackspace || !set.Options.UndoBackspace || last.injected == 0 {
		return dispatch.Action{}, false
	}
	p.last = nil
	p.matcher.Reset()

	action := dispatch.Inject(last.injected-1, last.typed)
	action.MatchID = last.matchID
	action.Trigger = last.typed
	action.Undo = true
	return action, true
}

// Committed arms undo for the expansion the last Process call returned. The
// engine calls it after the executor applied the action.
func (p *Processor) Committed() {
	p.last, p.pending = p.pending, nil
}

// Failed forgets undo state after the executor rejected an action. What is on
// screen is unknown, so a following Backspace must stay a plain Backspace.
func (p *Processor) Failed() {
	p.last, p.pending = nil, nil
}

func (p *Processor) resetState() {
	p.pending = nil
	p.last = nil
	if p.matcher != nil {
		p.matcher.Reset()
	}
}
