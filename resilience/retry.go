package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/swarmforge/swarmctl/core"
)

// ErrMaxRetriesExceeded is returned once Retry exhausts its attempt budget.
var ErrMaxRetriesExceeded = fmt.Errorf("max retry attempts exceeded")

// Retry runs fn, retrying with exponential backoff and jitter according to
// cfg, up to cfg.MaxAttempts times. It stops early if ctx is cancelled.
func Retry(ctx context.Context, cfg core.RetryConfig, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg = core.DefaultResilienceConfig().Retry
	}

	var lastErr error
	delay := cfg.InitialInterval

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		if attempt > 1 {
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxInterval {
				delay = cfg.MaxInterval
			}
		}

		// Jitter avoids synchronized retries across concurrent callers
		// (sessions retrying the same LLM provider at once).
		jitter := time.Duration(float64(delay) * 0.1 * (2*rand.Float64() - 1))
		waitFor := delay + jitter

		timer := time.NewTimer(waitFor)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("attempts=%d last=%v: %w", cfg.MaxAttempts, lastErr, ErrMaxRetriesExceeded)
}

// RetryWithCircuitBreaker combines Retry with a circuit breaker check,
// failing fast without consuming a retry attempt's backoff delay when the
// breaker is already open.
func RetryWithCircuitBreaker(ctx context.Context, cfg core.RetryConfig, cb *CircuitBreaker, fn func() error) error {
	if !cb.CanExecute() {
		return fmt.Errorf("circuit breaker '%s' is open: %w", cb.config.Name, core.ErrCircuitBreakerOpen)
	}
	return Retry(ctx, cfg, func() error {
		return cb.Execute(ctx, fn)
	})
}
