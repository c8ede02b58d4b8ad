// Package agentrt implements the Agent/Worker runtime: the AgentStatus
// state machine and the Worker that owns one workspace and at most one
// session. Grounded on gomind's agent.go lifecycle pattern
// (Initializing/Running/Stopped transitions guarded by a mutex), extended
// with the richer Working/WaitingForReview states this runtime's task loop
// needs.
package agentrt

import "fmt"

// Status is the AgentStatus state machine: Initializing → Available ⇄
// Working → WaitingForReview → Available, with Error(reason) reachable
// from any state and ShuttingDown terminal.
type Status struct {
	kind   StatusKind
	reason string
}

type StatusKind string

const (
	StatusInitializing     StatusKind = "Initializing"
	StatusAvailable        StatusKind = "Available"
	StatusWorking          StatusKind = "Working"
	StatusWaitingForReview StatusKind = "WaitingForReview"
	StatusError            StatusKind = "Error"
	StatusShuttingDown     StatusKind = "ShuttingDown"
)

func Initializing() Status { return Status{kind: StatusInitializing} }
func Available() Status    { return Status{kind: StatusAvailable} }
func Working() Status      { return Status{kind: StatusWorking} }
func WaitingForReview() Status { return Status{kind: StatusWaitingForReview} }
func ShuttingDown() Status { return Status{kind: StatusShuttingDown} }

// ErrorStatus builds an Error(reason) status, reachable from any state.
func ErrorStatus(reason string) Status {
	return Status{kind: StatusError, reason: reason}
}

func (s Status) Kind() StatusKind { return s.kind }
func (s Status) Reason() string   { return s.reason }

func (s Status) String() string {
	if s.kind == StatusError && s.reason != "" {
		return fmt.Sprintf("Error(%s)", s.reason)
	}
	return string(s.kind)
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next. Error is reachable from every state; ShuttingDown is terminal
// and accepts no further transitions.
func (s Status) CanTransitionTo(next Status) bool {
	if s.kind == StatusShuttingDown {
		return false
	}
	if next.kind == StatusError || next.kind == StatusShuttingDown {
		return true
	}

	switch s.kind {
	case StatusInitializing:
		return next.kind == StatusAvailable
	case StatusAvailable:
		return next.kind == StatusWorking
	case StatusWorking:
		return next.kind == StatusWaitingForReview
	case StatusWaitingForReview:
		return next.kind == StatusAvailable
	case StatusError:
		return next.kind == StatusAvailable
	default:
		return false
	}
}
