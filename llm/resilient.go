package llm

import (
	"context"

	"github.com/swarmforge/swarmctl/resilience"
)

// ResilientClient wraps a Client with a circuit breaker, so a run of LLM
// transport failures (provider outage, rate limiting) trips open and fails
// fast instead of letting every session's ExecuteTask pile up retries
// against a downed provider.
type ResilientClient struct {
	inner   Client
	breaker *resilience.CircuitBreaker
}

// NewResilientClient wraps inner with a circuit breaker built from config
// (resilience.DefaultConfig(name) if config is nil).
func NewResilientClient(inner Client, config *resilience.Config) (*ResilientClient, error) {
	breaker, err := resilience.New(config)
	if err != nil {
		return nil, err
	}
	return &ResilientClient{inner: inner, breaker: breaker}, nil
}

// Complete executes the call through the circuit breaker.
func (r *ResilientClient) Complete(ctx context.Context, model string, messages []Message, system string, maxTokens int) (*Response, error) {
	var resp *Response
	err := r.breaker.Execute(ctx, func() error {
		var innerErr error
		resp, innerErr = r.inner.Complete(ctx, model, messages, system, maxTokens)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// State reports the breaker's current state, for health/metrics surfacing.
func (r *ResilientClient) State() string {
	return r.breaker.GetState()
}

var _ Client = (*ResilientClient)(nil)
