package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swarmforge/swarmctl/agentrt"
	"github.com/swarmforge/swarmctl/bus"
	"github.com/swarmforge/swarmctl/core"
	"github.com/swarmforge/swarmctl/orchestrator"
)

// reviewInterval is the sweep cadence, per spec.md §4.5.
const reviewInterval = 30 * time.Second

// historyWindow is how many of an agent's most recent successful task
// entries the sweep inspects per tick, per spec.md §4.5.
const historyWindow = 5

// MaxRemediationIterations caps the remediation chain per parent task id
// (SPEC_FULL.md §D.2's Open Question decision): the review loop refuses to
// enqueue a 6th remediation and escalates instead.
const MaxRemediationIterations = 5

const remediationDuration = 1800 * time.Second
const reviewTaskDuration = 600 * time.Second
const assistanceDuration = 1800 * time.Second
const escalationDuration = 900 * time.Second

// historySource is the slice of agentrt.Worker the loop needs to inspect
// task history; *agentrt.Worker satisfies it, and orchestrator.AgentHandle
// values are type-asserted against it since the orchestrator package's own
// AgentHandle interface doesn't carry History (it must stay judge-agnostic).
type historySource interface {
	History() []agentrt.HistoryEntry
}

// Loop is spec.md §4.5's quality-review and remediation loop.
type Loop struct {
	orch   *orchestrator.Orchestrator
	judge  Judge
	logger core.Logger

	evaluated map[string]bool // taskID -> already evaluated this lifetime
}

// NewLoop builds a review Loop bound to orch and judge.
func NewLoop(orch *orchestrator.Orchestrator, judge Judge, logger core.Logger) *Loop {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Loop{orch: orch, judge: judge, logger: logger, evaluated: make(map[string]bool)}
}

// Run implements orchestrator.ReviewRunner: it sweeps every reviewInterval
// until ctx is cancelled, and separately drains RequestAssistance and
// remediation-completion messages from the bus as they arrive via
// drainBus.
func (l *Loop) Run(ctx context.Context) {
	go l.drainBus(ctx)

	ticker := time.NewTicker(reviewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep(ctx)
		}
	}
}

// drainBus blocks on bus.Receive until ctx is cancelled, handing every
// message to HandleBusMessage. This is what makes the re-review flow (a
// remediation's TaskCompleted) and the assistance-escalation flow
// (RequestAssistance) actually fire at runtime rather than only under
// tests that call HandleBusMessage directly.
func (l *Loop) drainBus(ctx context.Context) {
	b := l.orch.Bus()
	if b == nil {
		return
	}
	for {
		msg, err := b.Receive(ctx)
		if err != nil {
			return
		}
		l.HandleBusMessage(ctx, msg)
	}
}

// HandleBusMessage processes one bus message relevant to the review loop:
// a remediation task's TaskCompleted (re-review flow) or a
// RequestAssistance (assistance/escalation flow). Callers are expected to
// dispatch every received message here; messages of other kinds are
// ignored.
func (l *Loop) HandleBusMessage(ctx context.Context, msg bus.Message) {
	switch msg.Kind {
	case bus.KindTaskCompleted:
		if msg.TaskCompleted != nil {
			l.handleRemediationCompletion(ctx, msg.TaskCompleted.TaskID)
		}
	case bus.KindRequestAssistance:
		if msg.RequestAssistance != nil {
			l.handleAssistanceRequest(ctx, msg.RequestAssistance)
		}
	}
}

// sweep inspects the last historyWindow successful entries per agent and
// evaluates any not yet evaluated.
func (l *Loop) sweep(ctx context.Context) {
	for agentID, handle := range l.orch.Agents() {
		src, ok := handle.(historySource)
		if !ok {
			continue
		}
		entries := src.History()
		successful := filterSuccessful(entries)
		if len(successful) > historyWindow {
			successful = successful[len(successful)-historyWindow:]
		}

		for _, entry := range successful {
			if l.evaluated[entry.Task.ID] {
				continue
			}
			l.evaluateTask(ctx, agentID, handle, entry)
		}
	}
}

func filterSuccessful(entries []agentrt.HistoryEntry) []agentrt.HistoryEntry {
	var out []agentrt.HistoryEntry
	for _, e := range entries {
		if e.Result.Success {
			out = append(out, e)
		}
	}
	return out
}

// evaluateTask calls the judge for one history entry and, on fail, builds
// and enqueues a remediation task; on judge transport error, the task is
// logged and skipped (it remains eligible next sweep).
func (l *Loop) evaluateTask(ctx context.Context, agentID string, handle orchestrator.AgentHandle, entry agentrt.HistoryEntry) {
	snapshot := TaskSnapshot{
		TaskID:        entry.Task.ID,
		Description:   entry.Task.Description,
		Output:        entry.Result.Output,
		Role:          string(handle.Identity().Role),
		WorkspacePath: handle.Identity().WorkspacePath,
	}

	eval, err := l.judge.Evaluate(ctx, snapshot)
	if err != nil {
		l.logger.Warn("judge evaluation failed, skipping", map[string]interface{}{"task_id": entry.Task.ID, "error": err.Error()})
		return
	}

	l.evaluated[entry.Task.ID] = true

	quality := l.orch.QualityStandards()
	if eval.Passes(quality.MinTestCoverage) {
		l.orch.State().AppendReview(entry.Task.ID, orchestrator.ReviewHistoryEntry{
			TaskID:     entry.Task.ID,
			AgentID:    agentID,
			ReviewedAt: time.Now(),
			Pass:       true,
			Iteration:  len(l.orch.State().ReviewHistory(entry.Task.ID)) + 1,
		})
		return
	}

	l.enqueueRemediation(agentID, entry.Task.ID, eval.Issues)
}

// enqueueRemediation constructs and enqueues a Remediation task per
// spec.md §4.5 step 2-4, capped at MaxRemediationIterations.
func (l *Loop) enqueueRemediation(agentID, parentTaskID string, issues []QualityIssue) {
	existing := l.orch.State().ReviewHistory(parentTaskID)
	iteration := len(existing) + 1

	if iteration > MaxRemediationIterations {
		l.enqueueEscalation(parentTaskID, "remediation chain exceeded the configured iteration cap")
		return
	}

	remediationID := fmt.Sprintf("remediate-%s-%s", parentTaskID, uuid.NewString())
	orchIssues := toOrchestratorIssues(issues)

	task := orchestrator.Task{
		ID:                remediationID,
		Description:       BuildRemediationInstructions(issues),
		Priority:          orchestrator.PriorityHigh,
		Kind:              orchestrator.KindRemediation,
		AssignedTo:        agentID,
		ParentTaskID:      parentTaskID,
		QualityIssues:     orchIssues,
		EstimatedDuration: remediationDuration,
	}

	if err := l.orch.AddTask(task); err != nil {
		l.logger.Warn("enqueue remediation failed", map[string]interface{}{"task_id": remediationID, "error": err.Error()})
		return
	}

	l.orch.State().AppendReview(parentTaskID, orchestrator.ReviewHistoryEntry{
		TaskID:            parentTaskID,
		AgentID:           agentID,
		ReviewedAt:        time.Now(),
		Issues:            orchIssues,
		RemediationTaskID: remediationID,
		Pass:              false,
		Iteration:         iteration,
	})
}

// handleRemediationCompletion implements spec.md §4.5's re-review flow:
// when a remediation task's TaskCompleted arrives, locate the parent id via
// review history, mark that entry's pass=true, and enqueue a Review task.
func (l *Loop) handleRemediationCompletion(ctx context.Context, remediationTaskID string) {
	if !isRemediationTaskID(remediationTaskID) {
		return
	}

	parentTaskID := parentFromRemediationID(remediationTaskID)
	if parentTaskID == "" {
		return
	}

	if !l.orch.State().MarkRemediationPassed(parentTaskID, remediationTaskID) {
		return
	}

	reviewTask := orchestrator.Task{
		ID:                fmt.Sprintf("review-%s-%s", parentTaskID, uuid.NewString()),
		Description:       fmt.Sprintf("Re-review remediated task %s", parentTaskID),
		Priority:          orchestrator.PriorityHigh,
		Kind:              orchestrator.KindReview,
		ParentTaskID:      parentTaskID,
		EstimatedDuration: reviewTaskDuration,
	}
	if err := l.orch.AddTask(reviewTask); err != nil {
		l.logger.Warn("enqueue re-review failed", map[string]interface{}{"parent_task_id": parentTaskID, "error": err.Error()})
	}
}

// handleAssistanceRequest implements spec.md §4.5's assistance flow: if
// another Available agent shares the requester's role, emit an Assistance
// task to them; otherwise escalate for master-level review.
func (l *Loop) handleAssistanceRequest(ctx context.Context, req *bus.RequestAssistance) {
	agents := l.orch.Agents()
	requester, ok := agents[req.AgentID]
	if !ok {
		return
	}
	role := requester.Identity().Role

	for id, handle := range agents {
		if id == req.AgentID {
			continue
		}
		if handle.Identity().Role != role || handle.Status().Kind() != agentrt.StatusAvailable {
			continue
		}

		task := orchestrator.Task{
			ID:                fmt.Sprintf("assist-%s-%s", req.TaskID, uuid.NewString()),
			Description:       fmt.Sprintf("Assist with task %s: %s", req.TaskID, req.Reason),
			Priority:          orchestrator.PriorityHigh,
			Kind:              orchestrator.KindAssistance,
			AssignedTo:        id,
			ParentTaskID:      req.TaskID,
			EstimatedDuration: assistanceDuration,
		}
		if err := l.orch.AddTask(task); err != nil {
			l.logger.Warn("enqueue assistance failed", map[string]interface{}{"task_id": task.ID, "error": err.Error()})
		}
		return
	}

	l.enqueueEscalation(req.TaskID, req.Reason)
}

func (l *Loop) enqueueEscalation(parentTaskID, reason string) {
	task := orchestrator.Task{
		ID:                fmt.Sprintf("escalate-%s-%s", parentTaskID, uuid.NewString()),
		Description:       fmt.Sprintf("Escalation for %s: %s", parentTaskID, reason),
		Priority:          orchestrator.PriorityCritical,
		Kind:              orchestrator.KindReview,
		ParentTaskID:      parentTaskID,
		EstimatedDuration: escalationDuration,
	}
	if err := l.orch.AddTask(task); err != nil {
		l.logger.Warn("enqueue escalation failed", map[string]interface{}{"task_id": task.ID, "error": err.Error()})
	}
}

func toOrchestratorIssues(issues []QualityIssue) []orchestrator.QualityIssue {
	out := make([]orchestrator.QualityIssue, len(issues))
	for i, iss := range issues {
		out[i] = orchestrator.QualityIssue{
			Severity:         string(iss.Severity),
			Category:         string(iss.Category),
			Description:      iss.Description,
			SuggestedFix:     iss.SuggestedFix,
			AffectedAreas:    iss.AffectedAreas,
			FixEffortMinutes: iss.FixEffortMinutes,
		}
	}
	return out
}

const remediationPrefix = "remediate-"

func isRemediationTaskID(id string) bool {
	return len(id) > len(remediationPrefix) && id[:len(remediationPrefix)] == remediationPrefix
}

// parentFromRemediationID extracts <parent> from "remediate-<parent>-<uuid>".
// The uuid is always the last '-'-delimited segment (36 chars, itself
// containing hyphens), so we trim it from the end rather than split
// naively on '-'.
func parentFromRemediationID(id string) string {
	rest := id[len(remediationPrefix):]
	const uuidLen = 36
	if len(rest) <= uuidLen+1 {
		return ""
	}
	return rest[:len(rest)-uuidLen-1]
}
