package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateAddAndRemovePending(t *testing.T) {
	s := NewState()
	s.AddPending(Task{ID: "t1"})
	s.AddPending(Task{ID: "t2"})
	assert.Len(t, s.Pending(), 2)

	s.RemovePending("t1")
	pending := s.Pending()
	assert.Len(t, pending, 1)
	assert.Equal(t, "t2", pending[0].ID)
}

func TestStateCounters(t *testing.T) {
	s := NewState()
	s.RecordSuccess()
	s.RecordSuccess()
	s.RecordFailure()

	c := s.Counters()
	assert.Equal(t, 3, c.Processed)
	assert.Equal(t, 2, c.Succeeded)
	assert.Equal(t, 1, c.Failed)
}

func TestStateReviewHistoryAppendAndMarkPassed(t *testing.T) {
	s := NewState()
	s.AppendReview("t1", ReviewHistoryEntry{TaskID: "t1", RemediationTaskID: "remediate-t1-abc", Pass: false, Iteration: 1})

	ok := s.MarkRemediationPassed("t1", "remediate-t1-abc")
	assert.True(t, ok)

	entries := s.ReviewHistory("t1")
	assert.True(t, entries[0].Pass)
}

func TestStateMarkRemediationPassedUnknownReturnsFalse(t *testing.T) {
	s := NewState()
	assert.False(t, s.MarkRemediationPassed("ghost", "remediate-ghost-x"))
}

func TestStateSetErrorAndStatus(t *testing.T) {
	s := NewState()
	s.SetError("transport down")
	assert.Equal(t, LifecycleError, s.Status())
	assert.Equal(t, "transport down", s.ErrorReason())
}
