package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/swarmforge/swarmctl/agentrt"
	"github.com/swarmforge/swarmctl/core"
	"github.com/swarmforge/swarmctl/identity"
)

// AgentHandle is the narrow slice of agentrt.Worker the orchestrator
// depends on for dispatch. Declared here (rather than importing the
// concrete type directly into every signature) so tests can substitute a
// stub; *agentrt.Worker satisfies it structurally.
type AgentHandle interface {
	Identity() identity.AgentIdentity
	Status() agentrt.Status
	LastActivity() time.Time
	ExecuteTask(ctx context.Context, task agentrt.Task) (agentrt.Result, error)
	Acknowledge()
}

// selectOptimalAgent implements spec.md §4.4 step 2: honor an explicit
// Remediation assignee, otherwise derive the required role and pick the
// least-recently-active Available agent in that role, falling back to any
// Available agent (logged as a mismatch) if none match the role.
func selectOptimalAgent(task Task, agents map[string]AgentHandle, logger core.Logger) (string, error) {
	if task.Kind == KindRemediation && task.AssignedTo != "" {
		if _, ok := agents[task.AssignedTo]; ok {
			return task.AssignedTo, nil
		}
	}

	requiredRole := identity.RoleForTask(string(task.Kind), task.Description)

	eligible := availableAgentsWithRole(agents, requiredRole)
	if len(eligible) == 0 {
		eligible = availableAgentsWithRole(agents, "")
		if len(eligible) > 0 {
			logger.Warn("role mismatch: falling back to any available agent", map[string]interface{}{
				"task_id":       task.ID,
				"required_role": string(requiredRole),
			})
		}
	}
	if len(eligible) == 0 {
		return "", fmt.Errorf("orchestrator: %w for task %s", core.ErrNoAvailableAgents, task.ID)
	}

	sort.Slice(eligible, func(i, j int) bool {
		return agents[eligible[i]].LastActivity().Before(agents[eligible[j]].LastActivity())
	})
	return eligible[0], nil
}

// availableAgentsWithRole returns the ids of every Available agent whose
// role matches role, or every Available agent if role is empty.
func availableAgentsWithRole(agents map[string]AgentHandle, role identity.Role) []string {
	var ids []string
	for id, a := range agents {
		if a.Status().Kind() != agentrt.StatusAvailable {
			continue
		}
		if role != "" && a.Identity().Role != role {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// researchSignalCheck reports whether task should first be routed through
// the Search agent, per spec.md §4.4 step 1: research-signal keywords
// present and kind isn't already Research.
func researchSignalCheck(task Task) bool {
	if task.Kind == KindResearch {
		return false
	}
	return identity.HasResearchSignal(task.Description) || identity.HasResearchSignal(task.Details)
}

// taskComplexity classifies a task's complexity from its kind, for
// proactive-insight decoration.
func taskComplexity(kind Kind) string {
	switch kind {
	case KindInfrastructure, KindRemediation:
		return "high"
	case KindDevelopment, KindFeature, KindBugfix:
		return "medium"
	default:
		return "low"
	}
}

// recommendedApproach classifies a task's recommended approach from its
// priority, for proactive-insight decoration.
func recommendedApproach(priority Priority) string {
	switch priority {
	case PriorityCritical:
		return "immediate, single-focus execution"
	case PriorityHigh:
		return "prioritize ahead of queued medium/low work"
	case PriorityLow:
		return "batch with related low-priority work"
	default:
		return "standard sequential execution"
	}
}

// potentialDependencyKeywords maps description keywords to the dependency
// categories spec.md §4.4's proactive insights name.
var potentialDependencyKeywords = map[string]string{
	"api":        "backend_api",
	"endpoint":   "backend_api",
	"ui":         "frontend_components",
	"component":  "frontend_components",
	"schema":     "database_schema",
	"database":   "database_schema",
	"deploy":     "deployment_pipeline",
	"pipeline":   "deployment_pipeline",
	"infrastructure": "deployment_pipeline",
}

// potentialDependencies scans a description for the keywords above,
// returning the distinct set of dependency categories found.
func potentialDependencies(description string) []string {
	lower := strings.ToLower(description)
	seen := make(map[string]bool)
	var out []string
	for kw, category := range potentialDependencyKeywords {
		if strings.Contains(lower, kw) && !seen[category] {
			seen[category] = true
			out = append(out, category)
		}
	}
	sort.Strings(out)
	return out
}

// similarTasksCompleted returns up to 10 task ids from review history whose
// id contains kind's name, per spec.md §4.4's proactive insights.
func similarTasksCompleted(history map[string][]ReviewHistoryEntry, kind Kind) []string {
	needle := strings.ToLower(string(kind))
	var out []string
	for taskID := range history {
		if strings.Contains(strings.ToLower(taskID), needle) {
			out = append(out, taskID)
		}
	}
	sort.Strings(out)
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// decorateTask attaches spec.md §4.4's orchestration_context metadata:
// master id, required role, quality thresholds, and proactive insights.
func decorateTask(task Task, masterID string, role identity.Role, minTestCoverage float64, history map[string][]ReviewHistoryEntry) Task {
	if task.Metadata == nil {
		task.Metadata = make(map[string]interface{})
	}
	task.Metadata["orchestration_context"] = map[string]interface{}{
		"master_id":          masterID,
		"required_role":      string(role),
		"min_test_coverage":  minTestCoverage,
		"proactive_insights": map[string]interface{}{
			"task_complexity":          taskComplexity(task.Kind),
			"recommended_approach":     recommendedApproach(task.Priority),
			"potential_dependencies":   potentialDependencies(task.Description),
			"similar_tasks_completed":  similarTasksCompleted(history, task.Kind),
		},
	}
	return task
}
