package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmissionTransitions(t *testing.T) {
	sm := NewSubmissionStateMachine()

	assert.True(t, sm.CanTransition(StateIdle, StateUploading))
	assert.True(t, sm.CanTransition(StateUploading, StateSuccess))
	assert.True(t, sm.CanTransition(StateUploading, StateIdle))
	assert.True(t, sm.CanTransition(StateSuccess, StateIdle))

	assert.False(t, sm.CanTransition(StateIdle, StateSuccess))
	assert.False(t, sm.CanTransition(StateSuccess, StateUploading))
	assert.False(t, sm.CanTransition("unknown", StateIdle))
	assert.Empty(t, sm.GetAllowedTransitions("unknown"))
}

func TestTracker(t *testing.T) {
	tr := NewTracker(NewSubmissionStateMachine(), StateIdle)

	assert.Error(t, tr.Transition(StateSuccess))
	assert.Equal(t, StateIdle, tr.Current())

	assert.NoError(t, tr.Transition(StateUploading))
	assert.False(t, tr.TransitionFrom(StateIdle, StateUploading))
	assert.True(t, tr.TransitionFrom(StateUploading, StateSuccess))
	assert.Equal(t, StateSuccess, tr.Current())
}

func TestTrackerAllowed(t *testing.T) {
	tr := NewTracker(NewSubmissionStateMachine(), StateIdle)
	assert.Equal(t, []string{StateUploading}, tr.Allowed())

	allowed := tr.Allowed()
	allowed[0] = StateSuccess
	assert.Equal(t, []string{StateUploading}, tr.Allowed())

	assert.NoError(t, tr.Transition(StateUploading))
	assert.Equal(t, []string{StateSuccess, StateIdle}, tr.Allowed())

	empty := NewTracker(NewSubmissionStateMachine(), "unknown")
	assert.NotNil(t, empty.Allowed())
	assert.Empty(t, empty.Allowed())
}
