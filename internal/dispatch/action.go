// Package dispatch turns processor Actions into ordered Executor calls.
package dispatch

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Kind discriminates Action variants.
type Kind int

const (
	KindNoOp Kind = iota
	KindInject
)

func (k Kind) String() string {
	switch k {
	case KindNoOp:
		return "noop"
	case KindInject:
		return "inject"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Action is the single output of one event cycle.
type Action struct {
	Kind Kind
	// Delete is the number of characters to erase before inserting Text.
	Delete int
	Text   string
	// MatchID and Trigger describe what produced the action, for logs.
	MatchID string
	Trigger string
	Undo    bool
}

// NoOp is the action for cycles that produce no output.
func NoOp() Action {
	return Action{Kind: KindNoOp}
}

// Inject builds an action erasing deleteCount characters and typing text.
func Inject(deleteCount int, text string) Action {
	return Action{Kind: KindInject, Delete: deleteCount, Text: text}
}

// IsNoOp reports whether dispatching a is a no-op.
func (a Action) IsNoOp() bool {
	return a.Kind == KindNoOp || (a.Delete <= 0 && a.Text == "")
}

// TextLen is the injected text length in characters.
func (a Action) TextLen() int {
	return utf8.RuneCountInString(a.Text)
}

// Stage names the executor step that failed.
type Stage string

const (
	StageDelete Stage = "delete"
	StageInsert Stage = "insert"
)

// ExecutorError reports a rejected or partially applied injection.
type ExecutorError struct {
	Stage Stage
	// Partial is set when characters were already erased: by a delete that
	// stopped partway or before a failed insert.
	Partial bool
	Err     error
}

func (e *ExecutorError) Error() string {
	if e.Partial && e.Stage == StageDelete {
		return fmt.Sprintf("%s stopped partway: %v", e.Stage, e.Err)
	}
	if e.Partial {
		return fmt.Sprintf("%s failed after trigger was erased: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// DeleteFailed wraps err as a failure of the delete step.
func DeleteFailed(err error) error {
	return &ExecutorError{Stage: StageDelete, Err: err}
}

// PartialDeleteFailed wraps err as a delete step that stopped after erasing
// some characters.
func PartialDeleteFailed(err error) error {
	return &ExecutorError{Stage: StageDelete, Partial: true, Err: err}
}

// InsertFailed wraps err as a failure of the insert step. deleted reports
// whether characters were already erased.
func InsertFailed(err error, deleted bool) error {
	return &ExecutorError{Stage: StageInsert, Partial: deleted, Err: err}
}

// AsExecutorError unwraps err into an ExecutorError when possible.
func AsExecutorError(err error) (*ExecutorError, bool) {
	var execErr *ExecutorError
	if errors.As(err, &execErr) {
		return execErr, true
	}
	return nil, false
}
