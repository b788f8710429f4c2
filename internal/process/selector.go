package process

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rbright/presto/internal/config"
	"github.com/rbright/presto/internal/matcher"
)

// ErrSelectionCancelled reports an ambiguous match the user dismissed or
// that timed out. The cycle resolves to NoOp.
var ErrSelectionCancelled = errors.New("match selection cancelled")

// Candidate is one completed trigger paired with its definition.
type Candidate struct {
	Completed  matcher.Completed
	Definition config.MatchDefinition
}

// Label is the text shown to the user when choosing between candidates.
func (c Candidate) Label() string {
	if c.Definition.Label != "" {
		return c.Definition.Label
	}
	return c.Definition.Replace
}

// Chooser is the UI collaborator asked to resolve remaining ties. It returns
// the index of the chosen candidate or ErrSelectionCancelled.
type Chooser interface {
	Choose(ctx context.Context, candidates []Candidate) (int, error)
}

// Selector applies the deterministic tie-break policy and falls back to the
// chooser for anything still tied.
type Selector struct {
	order   []string
	chooser Chooser
	timeout time.Duration
}

// NewSelector builds a selector. A nil chooser resolves remaining ties to the
// first candidate in configuration order.
func NewSelector(order []string, chooser Chooser, timeout time.Duration) *Selector {
	if order == nil {
		order = []string{config.TieBreakPriority, config.TieBreakSpecificity, config.TieBreakModified}
	}
	return &Selector{
		order:   append([]string(nil), order...),
		chooser: chooser,
		timeout: timeout,
	}
}

// Select picks exactly one candidate.
func (s *Selector) Select(ctx context.Context, candidates []Candidate) (Candidate, error) {
	tied := s.Rank(candidates)
	switch len(tied) {
	case 0:
		return Candidate{}, errors.New("select: no candidates")
	case 1:
		return tied[0], nil
	}
	if s.chooser == nil {
		return tied[0], nil
	}

	chooseCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		chooseCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	idx, err := s.chooser.Choose(chooseCtx, tied)
	if err != nil {
		if errors.Is(err, ErrSelectionCancelled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return Candidate{}, fmt.Errorf("%w: %v", ErrSelectionCancelled, err)
		}
		return Candidate{}, fmt.Errorf("choose match: %w", err)
	}
	if idx < 0 || idx >= len(tied) {
		return Candidate{}, fmt.Errorf("%w: chooser returned index %d of %d", ErrSelectionCancelled, idx, len(tied))
	}
	return tied[idx], nil
}

// Rank returns the candidates still tied after the deterministic rules, in
// configuration order: one candidate per definition, longest trigger first,
// then each configured tie-break key.
func (s *Selector) Rank(candidates []Candidate) []Candidate {
	unique := make([]Candidate, 0, len(candidates))
	byDef := make(map[string]int, len(candidates))
	for _, c := range candidates {
		if i, ok := byDef[c.Definition.ID]; ok {
			if c.Completed.Trigger.Len() > unique[i].Completed.Trigger.Len() {
				unique[i] = c
			}
			continue
		}
		byDef[c.Definition.ID] = len(unique)
		unique = append(unique, c)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Definition.Order < unique[j].Definition.Order
	})

	tied := keepMax(unique, func(c Candidate) int64 { return int64(c.Completed.Trigger.Len()) })
	for _, key := range s.order {
		if len(tied) <= 1 {
			break
		}
		switch key {
		case config.TieBreakPriority:
			tied = keepMax(tied, func(c Candidate) int64 { return int64(c.Definition.Priority) })
		case config.TieBreakSpecificity:
			tied = keepMax(tied, func(c Candidate) int64 { return int64(c.Definition.Specificity) })
		case config.TieBreakModified:
			tied = keepMax(tied, func(c Candidate) int64 { return c.Definition.ModTime.UnixNano() })
		}
	}
	return tied
}

func keepMax(candidates []Candidate, score func(Candidate) int64) []Candidate {
	if len(candidates) == 0 {
		return candidates
	}
	best := score(candidates[0])
	for _, c := range candidates[1:] {
		if s := score(c); s > best {
			best = s
		}
	}
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if score(c) == best {
			out = append(out, c)
		}
	}
	return out
}
