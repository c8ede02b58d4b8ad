// This file defines the CircuitBreaker contract, which the resilience
// package implements and llm.ResilientClient uses for the LLM transport. The
// concrete implementation lives in the resilience package so that core
// stays free of sync/atomic bookkeeping and remains a pure interface layer,
// mirroring how the teacher framework splits circuit_breaker.go (interface)
// from resilience/circuit_breaker.go (implementation).
package core

import (
	"context"
	"time"
)

// CircuitBreaker protects a downstream dependency (LLM transport, Redis,
// workspace git operations) from cascading failure by failing fast once a
// failure threshold is crossed.
type CircuitBreaker interface {
	// Execute runs fn under circuit breaker protection.
	Execute(ctx context.Context, fn func() error) error

	// ExecuteWithTimeout runs fn under both circuit breaker protection and a
	// deadline.
	ExecuteWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error

	// GetState returns "closed", "open", or "half-open".
	GetState() string

	// GetMetrics returns point-in-time counters for observability.
	GetMetrics() map[string]interface{}

	// Reset forces the breaker back to closed, clearing counters.
	Reset()

	// CanExecute reports whether a call would currently be allowed through.
	CanExecute() bool
}

// CircuitBreakerParams bundles the dependencies a concrete implementation
// needs beyond the bare threshold configuration.
type CircuitBreakerParams struct {
	Name      string
	Config    CircuitBreakerConfig
	Logger    Logger
	Telemetry Telemetry
}

// DefaultCircuitBreakerParams returns conservative production defaults for
// a breaker named name.
func DefaultCircuitBreakerParams(name string) CircuitBreakerParams {
	return CircuitBreakerParams{
		Name: name,
		Config: CircuitBreakerConfig{
			Enabled:          true,
			Threshold:        5,
			Timeout:          30 * time.Second,
			HalfOpenRequests: 3,
		},
	}
}
