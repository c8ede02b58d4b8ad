package review

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmctl/agentrt"
	"github.com/swarmforge/swarmctl/bus"
	"github.com/swarmforge/swarmctl/identity"
	"github.com/swarmforge/swarmctl/orchestrator"
)

type stubSession struct{}

func (stubSession) ExecuteTask(ctx context.Context, id identity.AgentIdentity, description, details string) (string, error) {
	return "ok", nil
}
func (stubSession) Close(ctx context.Context) error { return nil }

type fakeJudge struct {
	eval Evaluation
	err  error
}

func (f *fakeJudge) Evaluate(ctx context.Context, task TaskSnapshot) (Evaluation, error) {
	return f.eval, f.err
}

func newWorkerWithCompletedTask(t *testing.T, taskID string) *agentrt.Worker {
	t.Helper()
	id := identity.New("backend-1", identity.RoleBackend, "/work/backend-1", nil)
	w := agentrt.NewWorker(id, nil, stubSession{}, nil)
	require.NoError(t, w.Initialize(context.Background()))
	_, err := w.ExecuteTask(context.Background(), agentrt.Task{ID: taskID, Description: "implement feature"})
	require.NoError(t, err)
	return w
}

func TestLoopSweepEnqueuesRemediationOnFailingEvaluation(t *testing.T) {
	b := bus.NewInMemoryBus(8)
	orch := orchestrator.New("master", orchestrator.QualityStandards{MinTestCoverage: 80}, b, nil, nil)

	w := newWorkerWithCompletedTask(t, "t1")
	orch.RegisterAgent("backend-1", w)

	judge := &fakeJudge{eval: Evaluation{
		PassFlag:     false,
		OverallScore: 0.4,
		Issues: []QualityIssue{
			{Category: CategoryTestCoverage, Description: "missing tests"},
			{Category: CategoryCodeComplexity, Description: "nested branching"},
		},
	}}

	loop := NewLoop(orch, judge, nil)
	loop.sweep(context.Background())

	pending := orch.State().Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, orchestrator.KindRemediation, pending[0].Kind)
	assert.Equal(t, "t1", pending[0].ParentTaskID)
	assert.Equal(t, "backend-1", pending[0].AssignedTo)

	history := orch.State().ReviewHistory("t1")
	require.Len(t, history, 1)
	assert.False(t, history[0].Pass)
	assert.Equal(t, 1, history[0].Iteration)
}

func TestLoopSweepRecordsPassOnSuccess(t *testing.T) {
	b := bus.NewInMemoryBus(8)
	orch := orchestrator.New("master", orchestrator.QualityStandards{MinTestCoverage: 80}, b, nil, nil)
	w := newWorkerWithCompletedTask(t, "t2")
	orch.RegisterAgent("backend-1", w)

	judge := &fakeJudge{eval: Evaluation{PassFlag: true, OverallScore: 0.95}}
	loop := NewLoop(orch, judge, nil)
	loop.sweep(context.Background())

	assert.Empty(t, orch.State().Pending())
	history := orch.State().ReviewHistory("t2")
	require.Len(t, history, 1)
	assert.True(t, history[0].Pass)
}

func TestLoopSweepSkipsAlreadyEvaluatedTask(t *testing.T) {
	b := bus.NewInMemoryBus(8)
	orch := orchestrator.New("master", orchestrator.QualityStandards{MinTestCoverage: 80}, b, nil, nil)
	w := newWorkerWithCompletedTask(t, "t3")
	orch.RegisterAgent("backend-1", w)

	judge := &fakeJudge{eval: Evaluation{PassFlag: true, OverallScore: 0.95}}
	loop := NewLoop(orch, judge, nil)
	loop.sweep(context.Background())
	loop.sweep(context.Background())

	assert.Len(t, orch.State().ReviewHistory("t3"), 1, "second sweep must not re-evaluate the same task")
}

func TestLoopRemediationCapEscalatesInsteadOfLooping(t *testing.T) {
	b := bus.NewInMemoryBus(8)
	orch := orchestrator.New("master", orchestrator.QualityStandards{MinTestCoverage: 80}, b, nil, nil)
	loop := NewLoop(orch, &fakeJudge{}, nil)

	for i := 0; i <= MaxRemediationIterations; i++ {
		orch.State().AppendReview("parent", orchestrator.ReviewHistoryEntry{TaskID: "parent", Pass: false, Iteration: i + 1})
	}

	loop.enqueueRemediation("backend-1", "parent", []QualityIssue{{Category: CategoryBestPractices}})

	pending := orch.State().Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, orchestrator.PriorityCritical, pending[0].Priority)
}

func TestHandleRemediationCompletionMarksPassAndEnqueuesReview(t *testing.T) {
	b := bus.NewInMemoryBus(8)
	orch := orchestrator.New("master", orchestrator.QualityStandards{MinTestCoverage: 80}, b, nil, nil)
	loop := NewLoop(orch, &fakeJudge{}, nil)

	remediationID := "remediate-t1-00000000-0000-0000-0000-000000000000"
	orch.State().AppendReview("t1", orchestrator.ReviewHistoryEntry{TaskID: "t1", RemediationTaskID: remediationID, Pass: false, Iteration: 1})

	loop.HandleBusMessage(context.Background(), bus.Message{
		Kind:          bus.KindTaskCompleted,
		TaskCompleted: &bus.TaskCompleted{TaskID: remediationID},
	})

	history := orch.State().ReviewHistory("t1")
	require.Len(t, history, 1)
	assert.True(t, history[0].Pass)

	pending := orch.State().Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, orchestrator.KindReview, pending[0].Kind)
	assert.Equal(t, "t1", pending[0].ParentTaskID)
}

func TestHandleAssistanceRequestRoutesToAvailablePeer(t *testing.T) {
	b := bus.NewInMemoryBus(8)
	orch := orchestrator.New("master", orchestrator.QualityStandards{MinTestCoverage: 80}, b, nil, nil)
	loop := NewLoop(orch, &fakeJudge{}, nil)

	requester := newWorkerWithCompletedTask(t, "t1")
	helper := agentrt.NewWorker(identity.New("backend-2", identity.RoleBackend, "/work/backend-2", nil), nil, stubSession{}, nil)
	require.NoError(t, helper.Initialize(context.Background()))

	orch.RegisterAgent("backend-1", requester)
	orch.RegisterAgent("backend-2", helper)

	loop.HandleBusMessage(context.Background(), bus.Message{
		Kind:              bus.KindRequestAssistance,
		RequestAssistance: &bus.RequestAssistance{AgentID: "backend-1", TaskID: "t1", Reason: "stuck"},
	})

	pending := orch.State().Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, orchestrator.KindAssistance, pending[0].Kind)
	assert.Equal(t, "backend-2", pending[0].AssignedTo)
}

func TestHandleAssistanceRequestEscalatesWhenNoPeerAvailable(t *testing.T) {
	b := bus.NewInMemoryBus(8)
	orch := orchestrator.New("master", orchestrator.QualityStandards{MinTestCoverage: 80}, b, nil, nil)
	loop := NewLoop(orch, &fakeJudge{}, nil)

	requester := newWorkerWithCompletedTask(t, "t1")
	orch.RegisterAgent("backend-1", requester)

	loop.HandleBusMessage(context.Background(), bus.Message{
		Kind:              bus.KindRequestAssistance,
		RequestAssistance: &bus.RequestAssistance{AgentID: "backend-1", TaskID: "t1", Reason: "stuck"},
	})

	pending := orch.State().Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, orchestrator.PriorityCritical, pending[0].Priority)
}

func TestRunDrainsBusAndHandlesRequestAssistance(t *testing.T) {
	b := bus.NewInMemoryBus(8)
	orch := orchestrator.New("master", orchestrator.QualityStandards{MinTestCoverage: 80}, b, nil, nil)
	loop := NewLoop(orch, &fakeJudge{}, nil)

	requester := newWorkerWithCompletedTask(t, "t1")
	orch.RegisterAgent("backend-1", requester)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	require.NoError(t, b.Send(context.Background(), bus.Message{
		Kind:              bus.KindRequestAssistance,
		RequestAssistance: &bus.RequestAssistance{AgentID: "backend-1", TaskID: "t1", Reason: "stuck"},
	}))

	require.Eventually(t, func() bool {
		return len(orch.State().Pending()) == 1
	}, time.Second, 5*time.Millisecond, "Run's bus-drain goroutine must deliver the message to HandleBusMessage without a manual call")

	cancel()
	<-done
}

func TestRunExitsOnContextCancellation(t *testing.T) {
	b := bus.NewInMemoryBus(4)
	orch := orchestrator.New("master", orchestrator.QualityStandards{}, b, nil, nil)
	loop := NewLoop(orch, &fakeJudge{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after context cancellation")
	}
}
