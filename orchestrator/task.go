// Package orchestrator implements the master controller of spec.md §4.4:
// the task/result data model, the shared OrchestratorState, the dispatch
// algorithm (including proactive-insight decoration), and the health/
// proactive-analysis loops. Grounded on gomind's orchestration/orchestrator.go
// request-correlation idiom and task_worker.go's ticker-driven loop shape.
package orchestrator

import "time"

// Priority is a Task's urgency, per spec.md §3.
type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// Kind is a Task's category, per spec.md §3, governing role derivation and
// review/remediation routing.
type Kind string

const (
	KindDevelopment    Kind = "Development"
	KindTesting        Kind = "Testing"
	KindInfrastructure Kind = "Infrastructure"
	KindDocumentation  Kind = "Documentation"
	KindFeature        Kind = "Feature"
	KindBugfix         Kind = "Bugfix"
	KindReview         Kind = "Review"
	KindRemediation    Kind = "Remediation"
	KindAssistance     Kind = "Assistance"
	KindResearch       Kind = "Research"
	KindCoordination   Kind = "Coordination"
)

// QualityIssue mirrors the judge's per-issue output, carried on a
// Remediation task so the agent sees what must be fixed. Kept here (rather
// than importing review) to avoid a review ↔ orchestrator import cycle;
// review.QualityIssue and this type share the same field shape by
// convention.
type QualityIssue struct {
	Severity        string
	Category        string
	Description     string
	SuggestedFix    string
	AffectedAreas   []string
	FixEffortMinutes int
}

// Task is spec.md §3's Task: immutable after enqueue except for the
// assignee/metadata the orchestrator adds during dispatch.
type Task struct {
	ID                string
	Description       string
	Details           string
	Priority          Priority
	Kind              Kind
	AssignedTo        string
	ParentTaskID      string
	QualityIssues     []QualityIssue
	EstimatedDuration time.Duration
	Metadata          map[string]interface{}
}

// TaskResult is spec.md §3's TaskResult.
type TaskResult struct {
	TaskID  string
	Success bool
	Output  interface{}
	Error   string
	Elapsed time.Duration
}
