// Package bus implements the coordination bus: a typed, in-memory pub/sub
// channel backed by a durable append-only log. spec.md §4.1/§6 name the
// contract; this package is grounded on gomind's redis_task_queue.go for the
// enqueue/dequeue retry shape and on ccswarm's ai_message_bus.rs (see
// original_source/) for the envelope-with-sequence-number persistence model.
package bus

import "time"

// Kind discriminates the closed Message sum type named in spec.md §6.
type Kind string

const (
	KindRegistration      Kind = "Registration"
	KindStatusUpdate      Kind = "StatusUpdate"
	KindTaskAssignment    Kind = "TaskAssignment"
	KindTaskProgress      Kind = "TaskProgress"
	KindTaskCompleted     Kind = "TaskCompleted"
	KindRequestAssistance Kind = "RequestAssistance"
	KindQualityIssue      Kind = "QualityIssue"
	KindTaskGenerated     Kind = "TaskGenerated"
	KindHelpRequest       Kind = "HelpRequest"
	KindHeartbeat         Kind = "Heartbeat"
	KindCoordination      Kind = "Coordination"
	KindCustom            Kind = "Custom"
)

// Message is the closed sum type every bus participant publishes and
// receives. Exactly one Kind-named field is populated per Kind; this mirrors
// a tagged union the way encoding/json naturally represents one in Go,
// trading a few unused pointers for a single wire-compatible struct instead
// of an interface-plus-twelve-structs hierarchy every subscriber would need
// a type switch to unwrap.
type Message struct {
	Kind Kind `json:"kind"`

	Registration      *Registration      `json:"registration,omitempty"`
	StatusUpdate      *StatusUpdate      `json:"status_update,omitempty"`
	TaskAssignment    *TaskAssignment    `json:"task_assignment,omitempty"`
	TaskProgress      *TaskProgress      `json:"task_progress,omitempty"`
	TaskCompleted     *TaskCompleted     `json:"task_completed,omitempty"`
	RequestAssistance *RequestAssistance `json:"request_assistance,omitempty"`
	QualityIssue      *QualityIssueMsg   `json:"quality_issue,omitempty"`
	TaskGenerated     *TaskGenerated     `json:"task_generated,omitempty"`
	HelpRequest       *HelpRequest       `json:"help_request,omitempty"`
	Heartbeat         *Heartbeat         `json:"heartbeat,omitempty"`
	Coordination      *Coordination      `json:"coordination,omitempty"`
	Custom            *Custom            `json:"custom,omitempty"`
}

type Registration struct {
	AgentID      string                 `json:"agent_id"`
	Capabilities []string               `json:"capabilities"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type StatusUpdate struct {
	AgentID string                 `json:"agent_id"`
	Status  string                 `json:"status"`
	Metrics map[string]interface{} `json:"metrics,omitempty"`
}

type TaskAssignment struct {
	TaskID   string                 `json:"task_id"`
	AgentID  string                 `json:"agent_id"`
	TaskData map[string]interface{} `json:"task_data,omitempty"`
}

// TaskProgress carries a fractional completion estimate. Progress is clamped
// to [0,1] at publication time rather than rejected — see SPEC_FULL.md §D's
// Open Question decision — because a transient out-of-range estimate from an
// agent is a cosmetic glitch, not a protocol violation worth failing a task
// over.
type TaskProgress struct {
	AgentID  string  `json:"agent_id"`
	TaskID   string  `json:"task_id"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message,omitempty"`
}

type TaskCompleted struct {
	AgentID string                 `json:"agent_id"`
	TaskID  string                 `json:"task_id"`
	Result  map[string]interface{} `json:"result,omitempty"`
}

type RequestAssistance struct {
	AgentID string `json:"agent_id"`
	TaskID  string `json:"task_id"`
	Reason  string `json:"reason"`
}

// QualityIssueMsg is the bus-message rendering of one or more review.QualityIssue
// values (the full struct shape lives in the review package; the bus only
// needs summary fields for routing and logging).
type QualityIssueMsg struct {
	AgentID string        `json:"agent_id"`
	TaskID  string        `json:"task_id"`
	Issues  []IssueDigest `json:"issues"`
}

// IssueDigest is a flattened view of a review.QualityIssue, kept dependency-
// free so bus doesn't import review.
type IssueDigest struct {
	Severity    string   `json:"severity"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	SuggestedFix string  `json:"suggested_fix,omitempty"`
	Areas       []string `json:"affected_areas,omitempty"`
	FixEffortMin int      `json:"fix_effort_minutes,omitempty"`
}

type TaskGenerated struct {
	TaskID      string `json:"task_id"`
	Description string `json:"description"`
	Reasoning   string `json:"reasoning,omitempty"`
}

type HelpRequest struct {
	AgentID  string `json:"agent_id"`
	Context  string `json:"context"`
	Priority string `json:"priority,omitempty"`
}

type Heartbeat struct {
	AgentID   string    `json:"agent_id"`
	Timestamp time.Time `json:"timestamp"`
}

type Coordination struct {
	FromAgent string                 `json:"from_agent"`
	ToAgent   string                 `json:"to_agent"`
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}

type Custom struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data,omitempty"`
}

// Envelope wraps a Message with the sequence number and timestamp assigned
// at persistence time, so load_persisted() callers can verify FIFO ordering
// without re-deriving it from log position alone. Grounded on ccswarm's
// ai_message_bus.rs envelope-with-seq design (original_source/).
type Envelope struct {
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	Message   Message   `json:"message"`
}

// clampProgress bounds p to [0,1], reporting whether it had to clamp.
func clampProgress(p float64) (float64, bool) {
	if p < 0 {
		return 0, true
	}
	if p > 1 {
		return 1, true
	}
	return p, false
}
