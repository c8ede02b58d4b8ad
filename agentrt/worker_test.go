package agentrt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmctl/identity"
)

type stubSession struct {
	output   string
	err      error
	closed   bool
	calls    int
}

func (s *stubSession) ExecuteTask(ctx context.Context, id identity.AgentIdentity, description, details string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.output, nil
}

func (s *stubSession) Close(ctx context.Context) error {
	s.closed = true
	return nil
}

func newTestWorker(sess *stubSession) *Worker {
	id := identity.New("agent-1", identity.RoleBackend, "/work/agent-1", nil)
	return NewWorker(id, nil, sess, nil)
}

func TestWorkerInitializeWithoutWorkspaceManager(t *testing.T) {
	w := newTestWorker(&stubSession{output: "ok"})
	require.NoError(t, w.Initialize(context.Background()))
	assert.Equal(t, StatusAvailable, w.Status().Kind())
}

func TestWorkerExecuteTaskSucceeds(t *testing.T) {
	sess := &stubSession{output: "done"}
	w := newTestWorker(sess)
	require.NoError(t, w.Initialize(context.Background()))

	result, err := w.ExecuteTask(context.Background(), Task{ID: "t1", Description: "do work"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "done", result.Output)
	assert.Equal(t, StatusWaitingForReview, w.Status().Kind())
	assert.Len(t, w.History(), 1)
}

func TestWorkerExecuteTaskFailsWhenNotAvailable(t *testing.T) {
	w := newTestWorker(&stubSession{output: "ok"})
	_, err := w.ExecuteTask(context.Background(), Task{ID: "t1"})
	assert.Error(t, err)
}

func TestWorkerExecuteTaskSessionErrorSetsErrorStatus(t *testing.T) {
	sess := &stubSession{err: errors.New("transport down")}
	w := newTestWorker(sess)
	require.NoError(t, w.Initialize(context.Background()))

	result, err := w.ExecuteTask(context.Background(), Task{ID: "t1"})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "transport down", result.Error)
	assert.Equal(t, StatusError, w.Status().Kind())
}

func TestWorkerAcknowledgeReturnsToAvailable(t *testing.T) {
	sess := &stubSession{output: "ok"}
	w := newTestWorker(sess)
	require.NoError(t, w.Initialize(context.Background()))
	_, err := w.ExecuteTask(context.Background(), Task{ID: "t1"})
	require.NoError(t, err)

	w.Acknowledge()
	assert.Equal(t, StatusAvailable, w.Status().Kind())
}

func TestWorkerRecoverReEstablishesIdentity(t *testing.T) {
	sess := &stubSession{output: "ack"}
	w := newTestWorker(sess)
	w.status = ErrorStatus("boom")

	require.NoError(t, w.Recover(context.Background()))
	assert.Equal(t, StatusAvailable, w.Status().Kind())
	assert.Equal(t, 1, sess.calls)
}

func TestWorkerShutdownClosesSession(t *testing.T) {
	sess := &stubSession{output: "ok"}
	w := newTestWorker(sess)
	require.NoError(t, w.Shutdown(context.Background()))
	assert.True(t, sess.closed)
	assert.Equal(t, StatusShuttingDown, w.Status().Kind())
}
