package matcher

import (
	"sort"

	"github.com/rbright/presto/internal/event"
)

// DefaultHistoryLimit is how many characters beyond the longest trigger can be
// backspaced over while keeping exact partial state.
const DefaultHistoryLimit = 5

// Options tunes boundary detection and history depth.
type Options struct {
	// IsSeparator reports word separators. Nil selects DefaultSeparators.
	IsSeparator func(rune) bool
	// HistoryLimit extends the frame ring beyond the longest trigger.
	HistoryLimit int
}

// partial is one live candidate start for a trigger. A partial whose typed
// length equals the pattern length is a right-word match awaiting a separator.
type partial struct {
	trigger int
	typed   []rune
}

// frame records the character typed at one position and the partial set it
// produced. Backspace pops a frame, which restores the previous state exactly.
type frame struct {
	char     rune
	partials []partial
}

// Matcher is single-owner state: the engine loop is its only caller.
type Matcher struct {
	triggers []Trigger
	patterns [][]rune
	exact    map[rune][]int
	folded   map[rune][]int
	isSep    func(rune) bool

	ring      []frame
	head      int
	size      int
	truncated bool
	index     uint64
}

// New builds a matcher over an immutable trigger snapshot.
func New(triggers []Trigger, opts Options) *Matcher {
	m := &Matcher{
		triggers: append([]Trigger(nil), triggers...),
		patterns: make([][]rune, len(triggers)),
		exact:    make(map[rune][]int),
		folded:   make(map[rune][]int),
		isSep:    opts.IsSeparator,
	}
	if m.isSep == nil {
		m.isSep = SeparatorSet(DefaultSeparators)
	}

	longest := 0
	for i, t := range m.triggers {
		pattern := foldPattern(t)
		m.patterns[i] = pattern
		if len(pattern) == 0 {
			continue
		}
		if len(pattern) > longest {
			longest = len(pattern)
		}
		if t.CaseInsensitive {
			m.folded[pattern[0]] = append(m.folded[pattern[0]], i)
		} else {
			m.exact[pattern[0]] = append(m.exact[pattern[0]], i)
		}
	}

	limit := opts.HistoryLimit
	if limit < 0 {
		limit = 0
	}
	m.ring = make([]frame, longest+1+limit)
	return m
}

// Triggers returns the trigger snapshot the matcher was built with.
func (m *Matcher) Triggers() []Trigger {
	return append([]Trigger(nil), m.triggers...)
}

// Index is the number of events processed so far.
func (m *Matcher) Index() uint64 {
	return m.index
}

// Reset discards every partial match and the typed history.
func (m *Matcher) Reset() {
	for i := range m.ring {
		m.ring[i] = frame{}
	}
	m.head = 0
	m.size = 0
	m.truncated = false
}

// Process applies one event and returns the triggers completing on it, in
// trigger order.
func (m *Matcher) Process(ev event.Event) []Completed {
	m.index++

	switch ev.Kind {
	case event.KindReset:
		m.Reset()
		return nil
	case event.KindBackspace:
		m.pop()
		return nil
	case event.KindChar:
		return m.typeRune(ev.Char)
	default:
		// Special keys are classified before reaching the matcher.
		m.Reset()
		return nil
	}
}

func (m *Matcher) typeRune(c rune) []Completed {
	current := m.current()
	next := make([]partial, 0, len(current)+2)
	fired := make(map[int]Completed)

	complete := func(p partial, sep rune) {
		if _, ok := fired[p.trigger]; ok {
			return
		}
		fired[p.trigger] = Completed{
			Trigger:   m.triggers[p.trigger],
			Typed:     string(p.typed),
			Separator: sep,
			Index:     m.index,
		}
	}

	advance := func(p partial) {
		if len(p.typed) < len(m.patterns[p.trigger]) {
			next = append(next, p)
			return
		}
		if m.triggers[p.trigger].RightWord {
			next = append(next, p)
			return
		}
		complete(p, 0)
	}

	for _, p := range current {
		pattern := m.patterns[p.trigger]
		n := len(p.typed)
		if n == len(pattern) {
			if m.isSep(c) {
				complete(p, c)
			}
			continue
		}
		if m.equal(p.trigger, c, pattern[n]) {
			typed := make([]rune, n+1)
			copy(typed, p.typed)
			typed[n] = c
			advance(partial{trigger: p.trigger, typed: typed})
		}
	}

	leftOK := m.atBoundary()
	for _, ti := range m.starters(c) {
		if m.triggers[ti].LeftWord && !leftOK {
			continue
		}
		advance(partial{trigger: ti, typed: []rune{c}})
	}

	sort.SliceStable(next, func(i, j int) bool {
		if next[i].trigger != next[j].trigger {
			return next[i].trigger < next[j].trigger
		}
		return len(next[i].typed) > len(next[j].typed)
	})
	m.push(frame{char: c, partials: next})
	if len(fired) == 0 {
		return nil
	}

	order := make([]int, 0, len(fired))
	for ti := range fired {
		order = append(order, ti)
	}
	sort.Ints(order)
	completed := make([]Completed, 0, len(order))
	for _, ti := range order {
		completed = append(completed, fired[ti])
	}
	return completed
}

func (m *Matcher) equal(trigger int, typed rune, want rune) bool {
	if m.triggers[trigger].CaseInsensitive {
		return foldRune(typed) == want
	}
	return typed == want
}

// starters lists triggers whose first rune matches c, in trigger order.
func (m *Matcher) starters(c rune) []int {
	exact := m.exact[c]
	folded := m.folded[foldRune(c)]
	if len(folded) == 0 {
		return exact
	}
	if len(exact) == 0 {
		return folded
	}
	out := make([]int, 0, len(exact)+len(folded))
	out = append(out, exact...)
	out = append(out, folded...)
	sort.Ints(out)
	return out
}

// atBoundary reports whether a match starting at the next character has a
// satisfied left boundary. Unknown history never counts as a boundary.
func (m *Matcher) atBoundary() bool {
	if m.size == 0 {
		return !m.truncated
	}
	return m.isSep(m.top().char)
}

func (m *Matcher) current() []partial {
	if m.size == 0 {
		return nil
	}
	return m.top().partials
}

func (m *Matcher) top() frame {
	return m.ring[(m.head+m.size-1)%len(m.ring)]
}

func (m *Matcher) push(f frame) {
	if m.size == len(m.ring) {
		m.ring[m.head] = frame{}
		m.head = (m.head + 1) % len(m.ring)
		m.size--
		m.truncated = true
	}
	m.ring[(m.head+m.size)%len(m.ring)] = f
	m.size++
}

// pop un-types the last character. Backspacing past known history leaves the
// preceding context unknown.
func (m *Matcher) pop() {
	if m.size == 0 {
		m.truncated = true
		return
	}
	m.ring[(m.head+m.size-1)%len(m.ring)] = frame{}
	m.size--
}

// Partials returns the in-progress matches keyed by trigger ID, longest first.
func (m *Matcher) Partials() map[string][]Partial {
	out := make(map[string][]Partial)
	for _, p := range m.current() {
		id := m.triggers[p.trigger].ID
		out[id] = append(out[id], Partial{Len: len(p.typed), Typed: string(p.typed)})
	}
	return out
}

// History returns the known typed tail, oldest first.
func (m *Matcher) History() string {
	runes := make([]rune, 0, m.size)
	for i := 0; i < m.size; i++ {
		runes = append(runes, m.ring[(m.head+i)%len(m.ring)].char)
	}
	return string(runes)
}
