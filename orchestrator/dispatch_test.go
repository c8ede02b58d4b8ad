package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmctl/agentrt"
	"github.com/swarmforge/swarmctl/core"
	"github.com/swarmforge/swarmctl/identity"
)

type stubAgent struct {
	id       string
	identity identity.AgentIdentity
	status   agentrt.Status
	lastSeen time.Time
	result   agentrt.Result
	err      error
}

func (s *stubAgent) Identity() identity.AgentIdentity { return s.identity }
func (s *stubAgent) Status() agentrt.Status            { return s.status }
func (s *stubAgent) LastActivity() time.Time           { return s.lastSeen }
func (s *stubAgent) ExecuteTask(ctx context.Context, task agentrt.Task) (agentrt.Result, error) {
	return s.result, s.err
}
func (s *stubAgent) Acknowledge() {}

func newStubAgent(id string, role identity.Role, status agentrt.Status, lastSeen time.Time) *stubAgent {
	return &stubAgent{
		id:       id,
		identity: identity.New(id, role, "/work/"+id, nil),
		status:   status,
		lastSeen: lastSeen,
		result:   agentrt.Result{Success: true, Output: "done"},
	}
}

func TestSelectOptimalAgentPrefersRoleMatch(t *testing.T) {
	agents := map[string]AgentHandle{
		"frontend": newStubAgent("frontend", identity.RoleFrontend, agentrt.Available(), time.Now().Add(-time.Minute)),
		"backend":  newStubAgent("backend", identity.RoleBackend, agentrt.Available(), time.Now()),
	}

	task := Task{ID: "t1", Description: "Create React login component", Kind: KindDevelopment}
	id, err := selectOptimalAgent(task, agents, core.NoOpLogger{})
	require.NoError(t, err)
	assert.Equal(t, "frontend", id)
}

func TestSelectOptimalAgentHonorsRemediationAssignee(t *testing.T) {
	agents := map[string]AgentHandle{
		"backend": newStubAgent("backend", identity.RoleBackend, agentrt.Available(), time.Now()),
	}
	task := Task{ID: "r1", Kind: KindRemediation, AssignedTo: "backend"}
	id, err := selectOptimalAgent(task, agents, core.NoOpLogger{})
	require.NoError(t, err)
	assert.Equal(t, "backend", id)
}

func TestSelectOptimalAgentFallsBackOnRoleMismatch(t *testing.T) {
	agents := map[string]AgentHandle{
		"backend": newStubAgent("backend", identity.RoleBackend, agentrt.Available(), time.Now()),
	}
	task := Task{ID: "t1", Description: "build a React UI component", Kind: KindDevelopment}
	id, err := selectOptimalAgent(task, agents, core.NoOpLogger{})
	require.NoError(t, err)
	assert.Equal(t, "backend", id)
}

func TestSelectOptimalAgentFailsWithNoAvailableAgents(t *testing.T) {
	agents := map[string]AgentHandle{
		"backend": newStubAgent("backend", identity.RoleBackend, agentrt.Working(), time.Now()),
	}
	task := Task{ID: "t1", Description: "anything", Kind: KindDevelopment}
	_, err := selectOptimalAgent(task, agents, core.NoOpLogger{})
	assert.ErrorIs(t, err, core.ErrNoAvailableAgents)
}

func TestSelectOptimalAgentTieBreaksByLeastRecentActivity(t *testing.T) {
	agents := map[string]AgentHandle{
		"a": newStubAgent("a", identity.RoleBackend, agentrt.Available(), time.Now()),
		"b": newStubAgent("b", identity.RoleBackend, agentrt.Available(), time.Now().Add(-time.Hour)),
	}
	task := Task{ID: "t1", Description: "backend work", Kind: KindDevelopment}
	id, err := selectOptimalAgent(task, agents, core.NoOpLogger{})
	require.NoError(t, err)
	assert.Equal(t, "b", id)
}

func TestResearchSignalCheck(t *testing.T) {
	assert.True(t, researchSignalCheck(Task{Description: "please research the best library", Kind: KindDevelopment}))
	assert.False(t, researchSignalCheck(Task{Description: "please research this", Kind: KindResearch}))
	assert.False(t, researchSignalCheck(Task{Description: "implement login", Kind: KindDevelopment}))
}

func TestPotentialDependencies(t *testing.T) {
	deps := potentialDependencies("Add a new API endpoint and update the database schema")
	assert.Contains(t, deps, "backend_api")
	assert.Contains(t, deps, "database_schema")
}

func TestSimilarTasksCompletedCapsAtTen(t *testing.T) {
	history := make(map[string][]ReviewHistoryEntry)
	for i := 0; i < 15; i++ {
		history[taskIDFor(i)] = nil
	}
	out := similarTasksCompleted(history, KindDevelopment)
	assert.LessOrEqual(t, len(out), 10)
}

func taskIDFor(i int) string {
	return "development-task-" + string(rune('a'+i))
}

func TestDecorateTaskAttachesOrchestrationContext(t *testing.T) {
	task := Task{ID: "t1", Description: "add API endpoint", Kind: KindDevelopment, Priority: PriorityHigh}
	decorated := decorateTask(task, "master-1", identity.RoleBackend, 80, nil)

	ctx, ok := decorated.Metadata["orchestration_context"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "master-1", ctx["master_id"])
	assert.Equal(t, "Backend", ctx["required_role"])
}
