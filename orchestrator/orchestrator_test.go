package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmctl/agentrt"
	"github.com/swarmforge/swarmctl/bus"
	"github.com/swarmforge/swarmctl/identity"
)

func TestOrchestratorAddTaskFailsWhenChannelFull(t *testing.T) {
	b := bus.NewInMemoryBus(8)
	o := New("master", QualityStandards{MinTestCoverage: 80}, b, nil, nil)

	// Fill the channel without a consumer draining it.
	for i := 0; i < taskChannelCapacity; i++ {
		require.NoError(t, o.AddTask(Task{ID: taskIDFor(i % 20)}))
	}
	err := o.AddTask(Task{ID: "overflow"})
	assert.Error(t, err)
}

func TestOrchestratorDispatchPublishesTaskCompleted(t *testing.T) {
	b := bus.NewInMemoryBus(8)
	o := New("master", QualityStandards{MinTestCoverage: 80}, b, nil, nil)

	agent := newStubAgent("backend-1", identity.RoleBackend, agentrt.Available(), time.Now())
	o.RegisterAgent("backend-1", agent)

	require.NoError(t, o.AddTask(Task{ID: "t1", Description: "add API endpoint", Kind: KindDevelopment}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- o.StartCoordination(ctx) }()

	msg, err := b.Receive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bus.KindTaskCompleted, msg.Kind)
	assert.Equal(t, "t1", msg.TaskCompleted.TaskID)

	require.NoError(t, o.Shutdown(context.Background()))
	<-done
}

func TestOrchestratorSetObjectiveAndMilestone(t *testing.T) {
	o := New("master", QualityStandards{}, bus.NewInMemoryBus(4), nil, nil)
	objID := o.SetObjective("Ship v1", "first public release", nil)
	assert.NotEmpty(t, objID)

	msID := o.AddMilestone(objID, "Beta release")
	assert.NotEmpty(t, msID)
}

// recoveringStubAgent is a stubAgent that also satisfies the ad hoc
// Recover(context.Context) error interface checkAgentHealth looks for.
type recoveringStubAgent struct {
	*stubAgent
	recoverCalls int
}

func (r *recoveringStubAgent) Recover(ctx context.Context) error {
	r.recoverCalls++
	return nil
}

func TestCheckAgentHealthStopsRestartingPastBudget(t *testing.T) {
	o := New("master", QualityStandards{}, bus.NewInMemoryBus(4), nil, nil)

	agent := &recoveringStubAgent{stubAgent: newStubAgent("flaky", identity.RoleBackend, agentrt.ErrorStatus("boom"), time.Now())}
	o.RegisterAgent("flaky", agent)

	for i := 0; i < maxRestartAttempts+3; i++ {
		o.checkAgentHealth(context.Background())
	}

	assert.Equal(t, maxRestartAttempts, agent.recoverCalls, "restarts beyond the budget must be skipped, not retried forever")
}
