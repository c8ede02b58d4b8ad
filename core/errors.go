package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison via errors.Is(). These map directly onto
// the error taxonomy named in the runtime's design: bounded-channel
// backpressure, agent selection failures, session pool exhaustion, bus
// lifecycle, and identity drift.
var (
	// ErrQueueFull is returned when the bounded task channel has no capacity.
	ErrQueueFull = errors.New("task queue full")

	// ErrNoAvailableAgents is returned when no agent can be selected for a task.
	ErrNoAvailableAgents = errors.New("no available agents")

	// ErrNotRegistered is returned when a delegation target is unknown.
	ErrNotRegistered = errors.New("agent not registered")

	// ErrSessionTimeout is returned when the pool cannot provide a session
	// within its wait-for-availability window.
	ErrSessionTimeout = errors.New("session acquisition timeout")

	// ErrBusClosed is returned by a closed bus for any further send.
	ErrBusClosed = errors.New("bus closed")

	// ErrIdentityViolation is returned when a session's response lacks its
	// identity markers for a second time within the same task.
	ErrIdentityViolation = errors.New("identity violation")

	// ErrConfigInvalid is returned for startup-time configuration problems.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrAgentNotFound indicates an agent id has no corresponding worker.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAgentNotReady indicates the agent exists but is not in a dispatchable state.
	ErrAgentNotReady = errors.New("agent not ready")

	// ErrTaskNotFound indicates a task id has no corresponding pending task.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAlreadyStarted indicates a double-start of a singleton loop.
	ErrAlreadyStarted = errors.New("already started")

	// ErrNotInitialized indicates use of a component before Initialize.
	ErrNotInitialized = errors.New("not initialized")

	// ErrTimeout is a generic operation timeout.
	ErrTimeout = errors.New("operation timeout")

	// ErrConnectionFailed wraps transient network/transport failures.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrMaxIterationsExceeded indicates a remediation chain hit its cap.
	ErrMaxIterationsExceeded = errors.New("maximum remediation iterations exceeded")

	// ErrCircuitBreakerOpen is returned by a breaker in the open state.
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")

	// ErrContextCanceled mirrors context.Canceled for classifiers that want to
	// compare against a core-owned sentinel instead of importing "context".
	ErrContextCanceled = errors.New("context canceled")
)

// FrameworkError carries structured context about a failure: the operation
// that failed, a coarse kind, an optional entity id, and the wrapped cause.
type FrameworkError struct {
	Op      string
	Kind    string
	ID      string
	Message string
	Err     error
}

func (e *FrameworkError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap enables errors.Is/As to see through to the underlying cause.
func (e *FrameworkError) Unwrap() error { return e.Err }

// NewFrameworkError constructs a FrameworkError wrapping err.
func NewFrameworkError(op, kind string, err error) *FrameworkError {
	return &FrameworkError{Op: op, Kind: kind, Err: err}
}

// IsRetryable reports whether err represents a transient condition worth
// retrying (queue-full, timeouts, connection failures, session timeouts).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrQueueFull) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed) ||
		errors.Is(err, ErrSessionTimeout)
}

// IsNotFound reports whether err represents a missing-entity condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAgentNotFound) ||
		errors.Is(err, ErrTaskNotFound) ||
		errors.Is(err, ErrNotRegistered)
}

// IsConfigurationError reports whether err is a startup/config problem.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfigInvalid)
}

// IsStateError reports whether err is an invalid-state-transition problem.
func IsStateError(err error) bool {
	return errors.Is(err, ErrAlreadyStarted) ||
		errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrAgentNotReady)
}
