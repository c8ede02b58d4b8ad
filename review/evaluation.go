// Package review implements the quality-review and remediation loop of
// spec.md §4.5: it sweeps recently completed tasks, calls an LLM judge,
// and turns a failing evaluation into a remediation task. Grounded on
// orchestration/task_worker.go's periodic-processing loop shape, re-targeted
// from generic task handlers at judge calls, and on spec.md's GLOSSARY for
// the literal remediation instruction templates.
package review

import "context"

// Severity is a QualityIssue's severity, per spec.md §3.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Category is a QualityIssue's category, governing which remediation
// instruction template is used.
type Category string

const (
	CategoryTestCoverage   Category = "TestCoverage"
	CategoryCodeComplexity Category = "CodeComplexity"
	CategorySecurity       Category = "Security"
	CategoryDocumentation  Category = "Documentation"
	CategoryErrorHandling  Category = "ErrorHandling"
	CategoryBestPractices  Category = "BestPractices"
)

// QualityIssue is the judge's per-finding output, per spec.md §3.
type QualityIssue struct {
	Severity         Severity
	Category         Category
	Description      string
	SuggestedFix     string
	AffectedAreas    []string
	FixEffortMinutes int
}

// Evaluation is the judge's output, per spec.md §3's QualityEvaluation.
type Evaluation struct {
	OverallScore float64
	PassFlag     bool
	Confidence   float64
	Feedback     string
	Issues       []QualityIssue
}

// Passes reports whether the evaluation clears the review loop's pass
// condition: pass_flag && overall_score >= min_test_coverage/100, per
// spec.md §4.5.
func (e Evaluation) Passes(minTestCoverage float64) bool {
	return e.PassFlag && e.OverallScore >= minTestCoverage/100
}

// TaskSnapshot is the minimal task/result context a Judge needs, kept
// independent of the orchestrator package's concrete Task/TaskResult types
// so review has no import-cycle dependency on orchestrator; the loop's
// caller adapts orchestrator.Task/TaskResult into this shape.
type TaskSnapshot struct {
	TaskID        string
	Description   string
	Output        interface{}
	Role          string
	WorkspacePath string
}

// Judge evaluates a completed task's output against quality standards.
// Transport errors from a Judge are logged and skip the task for the
// current sweep; the task remains eligible on the next one (spec.md §4.5's
// failure semantics).
type Judge interface {
	Evaluate(ctx context.Context, task TaskSnapshot) (Evaluation, error)
}
