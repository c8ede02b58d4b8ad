package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/swarmforge/swarmctl/core"
)

// BaseClient bundles the HTTP plumbing common to every hand-rolled provider:
// a timeout-bound http.Client, retry-with-backoff, structured request/
// response logging, and span instrumentation. Concrete providers (openai.go,
// anthropichttp.go) embed it the way gomind's provider family embeds
// providers.BaseClient.
type BaseClient struct {
	HTTPClient *http.Client
	Logger     core.Logger
	Telemetry  core.Telemetry

	MaxRetries int
	RetryDelay time.Duration

	DefaultModel     string
	DefaultMaxTokens int
}

// NewBaseClient builds a BaseClient with a bounded-timeout http.Client.
func NewBaseClient(timeout time.Duration, logger core.Logger, telemetry core.Telemetry) *BaseClient {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = core.NoOpTelemetry{}
	}
	return &BaseClient{
		HTTPClient:       &http.Client{Timeout: timeout},
		Logger:           logger,
		Telemetry:        telemetry,
		MaxRetries:       3,
		RetryDelay:       time.Second,
		DefaultMaxTokens: 1024,
	}
}

// StartSpan is a thin pass-through so providers can instrument a request
// without holding their own Telemetry reference.
func (b *BaseClient) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	return b.Telemetry.StartSpan(ctx, name)
}

// ExecuteWithRetry performs req with exponential backoff on transient
// (429/5xx/network) failures. Non-retryable 4xx responses return
// immediately so callers can surface the precise API error.
func (b *BaseClient) ExecuteWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= b.MaxRetries; attempt++ {
		clone := req.Clone(ctx)

		resp, err := b.HTTPClient.Do(clone)
		if err == nil && resp.StatusCode < 400 {
			return resp, nil
		}
		if err == nil && resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			resp.Body.Close()
		}

		if attempt < b.MaxRetries {
			shift := attempt
			if shift > 31 {
				shift = 31
			}
			delay := b.RetryDelay * time.Duration(1<<uint(shift))
			b.Logger.Debug("retrying llm request", map[string]interface{}{
				"attempt": attempt + 1,
				"delay":   delay.String(),
				"error":   lastErr.Error(),
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("llm request failed after %d retries: %w", b.MaxRetries, lastErr)
}

// HandleError turns an HTTP error response into a descriptive error,
// distinguishing auth/rate-limit/validation failures from opaque 5xx noise.
func (b *BaseClient) HandleError(provider string, statusCode int, body []byte) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: invalid or missing API key", provider)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: rate limit exceeded", provider)
	case http.StatusBadRequest:
		return fmt.Errorf("%s: invalid request: %s", provider, strings.TrimSpace(string(body)))
	default:
		return fmt.Errorf("%s: API error (status %d): %s", provider, statusCode, strings.TrimSpace(string(body)))
	}
}

// applyDefaults fills model/maxTokens if the caller left them at zero value.
func (b *BaseClient) applyDefaults(model string, maxTokens int) (string, int) {
	if model == "" {
		model = b.DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = b.DefaultMaxTokens
	}
	return model, maxTokens
}
