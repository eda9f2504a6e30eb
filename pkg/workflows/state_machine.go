package workflows

import (
	"fmt"
	"sync"
)

// Submission states
const (
	StateIdle      = "idle"
	StateUploading = "uploading"
	StateSuccess   = "success"
)

// StateMachine enforces status transitions
type StateMachine struct {
	allowedTransitions map[string][]string
}

// NewStateMachine creates a state machine with the given allowed transitions
func NewStateMachine(transitions map[string][]string) *StateMachine {
	return &StateMachine{allowedTransitions: transitions}
}

// NewSubmissionStateMachine returns the lifecycle of a parcel submission.
// A failed upload returns straight to idle so the user can retry.
func NewSubmissionStateMachine() *StateMachine {
	return NewStateMachine(map[string][]string{
		StateIdle:      {StateUploading},
		StateUploading: {StateSuccess, StateIdle},
		StateSuccess:   {StateIdle},
	})
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}

// Tracker holds the current state of one workflow instance
type Tracker struct {
	mu      sync.Mutex
	machine *StateMachine
	current string
}

// NewTracker starts a tracker in the initial state
func NewTracker(machine *StateMachine, initial string) *Tracker {
	return &Tracker{machine: machine, current: initial}
}

// Current returns the current state
func (t *Tracker) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Allowed returns the states reachable from the current one
func (t *Tracker) Allowed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	allowed := t.machine.GetAllowedTransitions(t.current)
	out := make([]string, len(allowed))
	copy(out, allowed)
	return out
}

// Transition moves to the next state if the machine allows it
func (t *Tracker) Transition(to string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.machine.CanTransition(t.current, to) {
		return fmt.Errorf("invalid transition from %s to %s", t.current, to)
	}
	t.current = to
	return nil
}

// TransitionFrom moves to the next state only when currently in from
func (t *Tracker) TransitionFrom(from, to string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != from || !t.machine.CanTransition(from, to) {
		return false
	}
	t.current = to
	return true
}
