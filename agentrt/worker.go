package agentrt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/swarmforge/swarmctl/core"
	"github.com/swarmforge/swarmctl/identity"
	"github.com/swarmforge/swarmctl/workspace"
)

// Task is the minimal shape a Worker needs from an orchestrator task: just
// enough to execute it and record history, without importing the
// orchestrator package (which in turn depends on agentrt) and creating a
// cycle.
type Task struct {
	ID          string
	Description string
	Details     string
	Kind        string
	Metadata    map[string]interface{}
}

// Result is a task's outcome, mirroring spec.md's TaskResult.
type Result struct {
	Success  bool
	Output   interface{}
	Error    string
	Elapsed  time.Duration
}

// TaskSession is the narrow slice of session.Session a Worker depends on.
// Declared here rather than imported so agentrt stays independent of the
// session package's implementation; session.Session satisfies it
// structurally.
type TaskSession interface {
	ExecuteTask(ctx context.Context, identity identity.AgentIdentity, description, details string) (string, error)
	Close(ctx context.Context) error
}

// HistoryEntry records one executed (Task, Result) pair.
type HistoryEntry struct {
	Task   Task
	Result Result
}

// Worker is the Agent of spec.md §4.2: it owns exactly one workspace and at
// most one session, executes at most one task at a time, and exposes the
// Status state machine as its externally observable lifecycle.
type Worker struct {
	mu sync.Mutex

	identity identity.AgentIdentity
	status   Status
	current  *Task
	history  []HistoryEntry
	lastSeen time.Time

	workspaceMgr workspace.Manager
	session      TaskSession
	logger       core.Logger
}

// NewWorker builds a Worker for the given identity, backed by workspaceMgr
// for isolation and session for LLM execution. The worker starts
// Initializing; call Initialize to move it to Available.
func NewWorker(id identity.AgentIdentity, workspaceMgr workspace.Manager, session TaskSession, logger core.Logger) *Worker {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Worker{
		identity:     id,
		status:       Initializing(),
		workspaceMgr: workspaceMgr,
		session:      session,
		logger:       logger,
		lastSeen:     time.Now(),
	}
}

// Initialize ensures the workspace exists for this agent and transitions
// Initializing → Available.
func (w *Worker) Initialize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.workspaceMgr != nil {
		info, err := w.workspaceMgr.Create(ctx, w.identity.AgentID)
		if err != nil {
			w.status = ErrorStatus(err.Error())
			return fmt.Errorf("agentrt: initialize workspace: %w", err)
		}
		w.identity.WorkspacePath = info.Path
	}

	w.status = Available()
	w.lastSeen = time.Now()
	w.logger.Info("agent initialized", map[string]interface{}{"agent_id": w.identity.AgentID, "role": string(w.identity.Role)})
	return nil
}

// Status returns the worker's current status.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Identity returns the worker's identity.
func (w *Worker) Identity() identity.AgentIdentity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.identity
}

// LastActivity returns the timestamp of the worker's last status change or
// completed task, used by the orchestrator's health loop and tie-break
// logic.
func (w *Worker) LastActivity() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// History returns a copy of the worker's executed (Task, Result) history.
func (w *Worker) History() []HistoryEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]HistoryEntry, len(w.history))
	copy(out, w.history)
	return out
}

// ExecuteTask runs task through the bound session. Precondition: status ==
// Available. On return, status becomes WaitingForReview; the orchestrator
// is responsible for acknowledging back to Available once it has recorded
// the result.
func (w *Worker) ExecuteTask(ctx context.Context, task Task) (Result, error) {
	w.mu.Lock()
	if w.status.Kind() != StatusAvailable {
		status := w.status
		w.mu.Unlock()
		return Result{}, fmt.Errorf("agentrt: %w: agent %s is %s", core.ErrAgentNotReady, w.identity.AgentID, status)
	}
	w.status = Working()
	w.current = &task
	w.mu.Unlock()

	start := time.Now()
	output, err := w.session.ExecuteTask(ctx, w.identity, task.Description, task.Details)
	elapsed := time.Since(start)

	result := Result{Elapsed: elapsed}
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		w.mu.Lock()
		w.status = ErrorStatus(err.Error())
		w.current = nil
		w.lastSeen = time.Now()
		w.history = append(w.history, HistoryEntry{Task: task, Result: result})
		w.mu.Unlock()
		return result, nil
	}

	result.Success = true
	result.Output = output

	w.mu.Lock()
	w.status = WaitingForReview()
	w.current = nil
	w.lastSeen = time.Now()
	w.history = append(w.history, HistoryEntry{Task: task, Result: result})
	w.mu.Unlock()

	return result, nil
}

// Acknowledge moves a WaitingForReview worker back to Available, called by
// the orchestrator once it has recorded the task's completion.
func (w *Worker) Acknowledge() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.status.Kind() == StatusWaitingForReview {
		w.status = Available()
	}
}

// EstablishIdentity is idempotent: it is only meaningful the first time (or
// after recovery from Error), since the session itself tracks whether it
// has already emitted the identity prompt. Worker delegates entirely to the
// session; it just surfaces the result as a status transition on failure.
func (w *Worker) EstablishIdentity(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.session.ExecuteTask(ctx, w.identity, "identity establishment", ""); err != nil {
		w.status = ErrorStatus(err.Error())
		return fmt.Errorf("agentrt: establish identity: %w", err)
	}
	w.lastSeen = time.Now()
	return nil
}

// Recover transitions an Error worker back to Available by re-running
// identity establishment, per the orchestrator's health-loop contract.
func (w *Worker) Recover(ctx context.Context) error {
	if err := w.EstablishIdentity(ctx); err != nil {
		return err
	}
	w.mu.Lock()
	w.status = Available()
	w.lastSeen = time.Now()
	w.mu.Unlock()
	return nil
}

// Shutdown transitions to ShuttingDown and closes the bound session.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	w.status = ShuttingDown()
	w.mu.Unlock()

	if w.session != nil {
		return w.session.Close(ctx)
	}
	return nil
}
