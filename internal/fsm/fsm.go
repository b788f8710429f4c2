// Package fsm defines the engine lifecycle state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle         State = "idle"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting_down"
	StateStopped      State = "stopped"
)

const (
	EventStart    Event = "start"
	EventShutdown Event = "shutdown"
	EventStopped  Event = "stopped"
)

// Transition returns the state reached by applying event to current.
// Shutdown from Idle skips Running; Stopped is terminal.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateRunning, nil
		case EventShutdown:
			return StateShuttingDown, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateRunning:
		switch event {
		case EventShutdown:
			return StateShuttingDown, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateShuttingDown:
		switch event {
		case EventStopped:
			return StateStopped, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStopped:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Accepting reports whether events may still be processed and dispatched in s.
func Accepting(s State) bool {
	return s == StateRunning
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
