package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/swarmforge/swarmctl/agentrt"
	"github.com/swarmforge/swarmctl/bus"
	"github.com/swarmforge/swarmctl/core"
	"github.com/swarmforge/swarmctl/workspace"
)

// healthCheckInterval is the main loop's tick period, per spec.md §4.4.
const healthCheckInterval = 10 * time.Second

// unhealthyLagThreshold marks an agent unhealthy once its last-activity lag
// exceeds this, per spec.md §4.4's health loop.
const unhealthyLagThreshold = 300 * time.Second

// taskChannelCapacity is the bound on the orchestrator's task channel, per
// spec.md §4.4 and §5.
const taskChannelCapacity = 1000

// QualityStandards holds the thresholds the orchestrator decorates tasks
// with and the review loop enforces.
type QualityStandards struct {
	MinTestCoverage float64 // percentage, e.g. 80.0
	MaxComplexity   int
}

// Objective is a high-level goal registered via SetObjective, consumed by
// the proactive analyzer.
type Objective struct {
	ID       string
	Title    string
	Desc     string
	Deadline *time.Time
}

// Milestone is registered via AddMilestone against an objective.
type Milestone struct {
	ID          string
	ObjectiveID string
	Title       string
	Done        bool
}

// ReviewRunner is the quality-review loop's external contract: the
// orchestrator starts it as one of its cooperative background tasks
// without depending on its concrete implementation (which in turn depends
// on orchestrator.Task/State types, so the dependency runs one way only).
type ReviewRunner interface {
	Run(ctx context.Context)
}

// Orchestrator is the master controller of spec.md §4.4.
type Orchestrator struct {
	mu sync.RWMutex

	agents       map[string]AgentHandle
	taskCh       chan Task
	quality      QualityStandards
	state        *State
	bus          bus.Bus
	workspaceMgr workspace.Manager
	logger       core.Logger

	masterID string
	review   ReviewRunner

	objectives map[string]Objective
	milestones map[string]Milestone
	nextObjID  int

	restartBudget *restartBudget

	cancel context.CancelFunc
}

// New builds an Orchestrator around bus b, using workspaceMgr for agent
// isolation.
func New(masterID string, quality QualityStandards, b bus.Bus, workspaceMgr workspace.Manager, logger core.Logger) *Orchestrator {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &Orchestrator{
		agents:        make(map[string]AgentHandle),
		taskCh:        make(chan Task, taskChannelCapacity),
		quality:       quality,
		state:         NewState(),
		bus:           b,
		workspaceMgr:  workspaceMgr,
		logger:        logger,
		masterID:      masterID,
		objectives:    make(map[string]Objective),
		milestones:    make(map[string]Milestone),
		restartBudget: newRestartBudget(),
	}
}

// SetReviewRunner registers the quality-review loop to be started alongside
// the main coordination loop.
func (o *Orchestrator) SetReviewRunner(r ReviewRunner) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.review = r
}

// RegisterAgent adds an agent to the orchestrator's dispatch table.
func (o *Orchestrator) RegisterAgent(id string, agent AgentHandle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[id] = agent
	var ids []string
	for k := range o.agents {
		ids = append(ids, k)
	}
	o.state.SetActiveAgents(ids)
}

// State exposes the shared OrchestratorState for the review loop and
// external inspection.
func (o *Orchestrator) State() *State { return o.state }

// Bus exposes the bound coordination bus.
func (o *Orchestrator) Bus() bus.Bus { return o.bus }

// Agents returns a snapshot of the agent dispatch table, for the review
// loop's per-agent history sweep.
func (o *Orchestrator) Agents() map[string]AgentHandle {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]AgentHandle, len(o.agents))
	for k, v := range o.agents {
		out[k] = v
	}
	return out
}

// QualityStandards returns the orchestrator's configured quality
// thresholds.
func (o *Orchestrator) QualityStandards() QualityStandards { return o.quality }

// AddTask enqueues task onto the bounded task channel and records it
// pending, per spec.md §4.4.
func (o *Orchestrator) AddTask(task Task) error {
	select {
	case o.taskCh <- task:
		o.state.AddPending(task)
		return nil
	default:
		return fmt.Errorf("orchestrator: %w", core.ErrQueueFull)
	}
}

// SetObjective registers a high-level goal for the proactive analyzer,
// returning its id.
func (o *Orchestrator) SetObjective(title, desc string, deadline *time.Time) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextObjID++
	id := fmt.Sprintf("obj-%d", o.nextObjID)
	o.objectives[id] = Objective{ID: id, Title: title, Desc: desc, Deadline: deadline}
	return id
}

// AddMilestone registers a milestone against objectiveID, returning its id.
func (o *Orchestrator) AddMilestone(objectiveID, title string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextObjID++
	id := fmt.Sprintf("ms-%d", o.nextObjID)
	o.milestones[id] = Milestone{ID: id, ObjectiveID: objectiveID, Title: title}
	return id
}

// StartCoordination runs the main loop until state == ShuttingDown, per
// spec.md §4.4's step list: receive one task or tick every 10s; dispatch on
// task, check_agent_health on tick; re-check state and exit if
// ShuttingDown. Also starts the two proactive loops and the registered
// review runner as independent cooperative tasks; the health check runs
// inline on this loop's tick.
func (o *Orchestrator) StartCoordination(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()

	o.state.SetStatus(LifecycleRunning)

	// The three background loops (review sweeps, two proactive cadences)
	// are cooperative and share one shutdown signal via ctx, so an
	// errgroup.Group replaces a bare sync.WaitGroup here: it still joins
	// all three on exit, but also surfaces the first non-nil return
	// instead of discarding it.
	var g errgroup.Group
	o.mu.RLock()
	review := o.review
	o.mu.RUnlock()
	if review != nil {
		g.Go(func() error {
			review.Run(ctx)
			return nil
		})
	}

	g.Go(func() error {
		o.runProactiveLoop(ctx, proactiveStandardInterval)
		return nil
	})
	g.Go(func() error {
		o.runProactiveLoop(ctx, proactiveHighFrequencyInterval)
		return nil
	})

	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		if o.state.Status() == LifecycleShuttingDown {
			return g.Wait()
		}

		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case task := <-o.taskCh:
			o.dispatch(ctx, task)
		case <-ticker.C:
			o.checkAgentHealth(ctx)
		}
	}
}

// dispatch implements spec.md §4.4's dispatch algorithm.
func (o *Orchestrator) dispatch(ctx context.Context, task Task) {
	if researchSignalCheck(task) {
		o.mu.RLock()
		b := o.bus
		o.mu.RUnlock()
		if b != nil {
			_ = b.Send(ctx, bus.Message{
				Kind: bus.KindCoordination,
				Coordination: &bus.Coordination{
					FromAgent: o.masterID,
					ToAgent:   "search",
					Type:      "research_request",
					Payload:   map[string]interface{}{"task_id": task.ID, "description": task.Description},
				},
			})
		}
	}

	o.mu.RLock()
	agents := make(map[string]AgentHandle, len(o.agents))
	for k, v := range o.agents {
		agents[k] = v
	}
	o.mu.RUnlock()

	agentID, err := selectOptimalAgent(task, agents, o.logger)
	if err != nil {
		o.logger.Error("dispatch failed", map[string]interface{}{"task_id": task.ID, "error": err.Error()})
		o.state.RecordFailure()
		return
	}

	agent := agents[agentID]
	role := agent.Identity().Role
	decorated := decorateTask(task, o.masterID, role, o.quality.MinTestCoverage, o.state.AllReviewHistory())

	runtimeTask := agentrt.Task{
		ID:          decorated.ID,
		Description: decorated.Description,
		Details:     decorated.Details,
		Kind:        string(decorated.Kind),
		Metadata:    decorated.Metadata,
	}

	result, err := agent.ExecuteTask(ctx, runtimeTask)
	taskResult := TaskResult{TaskID: decorated.ID}
	if err != nil {
		taskResult.Success = false
		taskResult.Error = err.Error()
		o.state.RecordFailure()
	} else {
		taskResult.Success = result.Success
		taskResult.Output = result.Output
		taskResult.Error = result.Error
		taskResult.Elapsed = result.Elapsed
		if result.Success {
			o.state.RecordSuccess()
		} else {
			o.state.RecordFailure()
		}
	}

	// ExecuteTask leaves the agent at WaitingForReview regardless of outcome;
	// acknowledge it back to Available now that the result is recorded, per
	// spec.md §4.2, so selectOptimalAgent can dispatch to it again.
	agent.Acknowledge()

	o.mu.RLock()
	b := o.bus
	o.mu.RUnlock()
	if b != nil {
		_ = b.Send(ctx, bus.Message{
			Kind: bus.KindTaskCompleted,
			TaskCompleted: &bus.TaskCompleted{
				AgentID: agentID,
				TaskID:  decorated.ID,
				Result:  map[string]interface{}{"success": taskResult.Success, "output": taskResult.Output, "error": taskResult.Error},
			},
		})
	}

	o.state.RemovePending(decorated.ID)
}

// checkAgentHealth implements spec.md §4.4's health loop: any agent whose
// last-activity lag exceeds unhealthyLagThreshold, or whose status is
// Error, is restarted (identity re-established, status reset to
// Available) — unless it has already exhausted its restartBudget, in
// which case the tick is logged and skipped (SPEC_FULL.md §C).
func (o *Orchestrator) checkAgentHealth(ctx context.Context) {
	o.mu.RLock()
	agents := make(map[string]AgentHandle, len(o.agents))
	for k, v := range o.agents {
		agents[k] = v
	}
	o.mu.RUnlock()

	now := time.Now()
	for id, agent := range agents {
		unhealthy := agent.Status().Kind() == agentrt.StatusError || now.Sub(agent.LastActivity()) > unhealthyLagThreshold
		if !unhealthy {
			continue
		}
		if recoverable, ok := agent.(interface{ Recover(context.Context) error }); ok {
			if !o.restartBudget.allow(id, now) {
				o.logger.Warn("agent restart budget exhausted, skipping restart", map[string]interface{}{"agent_id": id})
				continue
			}
			if err := recoverable.Recover(ctx); err != nil {
				o.logger.Warn("agent restart failed", map[string]interface{}{"agent_id": id, "error": err.Error()})
				continue
			}
			o.logger.Info("agent restarted", map[string]interface{}{"agent_id": id})
		}
	}
}

// Shutdown sets status = ShuttingDown, asks every agent to shut down, and
// closes the bus.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.state.SetStatus(LifecycleShuttingDown)

	o.mu.RLock()
	cancel := o.cancel
	agents := make(map[string]AgentHandle, len(o.agents))
	for k, v := range o.agents {
		agents[k] = v
	}
	b := o.bus
	o.mu.RUnlock()

	for id, agent := range agents {
		if shutter, ok := agent.(interface{ Shutdown(context.Context) error }); ok {
			if err := shutter.Shutdown(ctx); err != nil {
				o.logger.Warn("agent shutdown failed", map[string]interface{}{"agent_id": id, "error": err.Error()})
			}
		}
	}

	if cancel != nil {
		cancel()
	}

	if b != nil {
		return b.Close()
	}
	return nil
}
