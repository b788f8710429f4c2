package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateRunning, next)

	next, err = Transition(next, EventShutdown)
	require.NoError(t, err)
	require.Equal(t, StateShuttingDown, next)

	next, err = Transition(next, EventStopped)
	require.NoError(t, err)
	require.Equal(t, StateStopped, next)
}

func TestTransitionShutdownBeforeStart(t *testing.T) {
	next, err := Transition(StateIdle, EventShutdown)
	require.NoError(t, err)
	require.Equal(t, StateShuttingDown, next)
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name  string
		state State
		event Event
	}{
		{name: "idle stopped invalid", state: StateIdle, event: EventStopped},
		{name: "running start invalid", state: StateRunning, event: EventStart},
		{name: "running stopped invalid", state: StateRunning, event: EventStopped},
		{name: "shutting down start invalid", state: StateShuttingDown, event: EventStart},
		{name: "shutting down shutdown invalid", state: StateShuttingDown, event: EventShutdown},
		{name: "stopped start invalid", state: StateStopped, event: EventStart},
		{name: "stopped shutdown invalid", state: StateStopped, event: EventShutdown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.state, next)
			require.Error(t, err)
			require.Contains(t, err.Error(), "invalid transition")
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}

func TestAccepting(t *testing.T) {
	require.True(t, Accepting(StateRunning))
	for _, s := range []State{StateIdle, StateShuttingDown, StateStopped} {
		require.False(t, Accepting(s))
	}
}
