package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/swarmforge/swarmctl/core"
)

// AnthropicHTTPDefaultBaseURL is the native Messages API endpoint.
const AnthropicHTTPDefaultBaseURL = "https://api.anthropic.com/v1"

// anthropicHTTPAPIVersion is the required Anthropic API version header.
const anthropicHTTPAPIVersion = "2023-06-01"

// AnthropicHTTPClient is a hand-rolled provider against Anthropic's native
// Messages API, for deployments that want direct control over request
// shaping instead of the SDK's own retry/transport stack.
type AnthropicHTTPClient struct {
	*BaseClient
	apiKey  string
	baseURL string
}

// NewAnthropicHTTPClient builds the hand-rolled Anthropic provider.
func NewAnthropicHTTPClient(apiKey, baseURL string, logger core.Logger, telemetry core.Telemetry) *AnthropicHTTPClient {
	if baseURL == "" {
		baseURL = AnthropicHTTPDefaultBaseURL
	}
	base := NewBaseClient(30*time.Second, logger, telemetry)
	base.DefaultModel = DefaultAnthropicModel
	return &AnthropicHTTPClient{BaseClient: base, apiKey: apiKey, baseURL: baseURL}
}

type anthropicHTTPMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicHTTPRequest struct {
	Model     string                 `json:"model"`
	Messages  []anthropicHTTPMessage `json:"messages"`
	System    string                 `json:"system,omitempty"`
	MaxTokens int                    `json:"max_tokens"`
}

type anthropicHTTPContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicHTTPUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicHTTPResponse struct {
	Model   string                      `json:"model"`
	Content []anthropicHTTPContentBlock `json:"content"`
	Usage   anthropicHTTPUsage          `json:"usage"`
}

// Complete issues a single-turn (or multi-turn) request to the Messages API.
func (c *AnthropicHTTPClient) Complete(ctx context.Context, model string, messages []Message, system string, maxTokens int) (*Response, error) {
	ctx, span := c.StartSpan(ctx, "llm.anthropichttp.complete")
	defer span.End()

	if c.apiKey == "" {
		err := fmt.Errorf("anthropic API key not configured")
		span.RecordError(err)
		return nil, err
	}

	model, maxTokens = c.applyDefaults(model, maxTokens)
	span.SetAttribute("llm.model", model)

	reqMessages := make([]anthropicHTTPMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, anthropicHTTPMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(anthropicHTTPRequest{
		Model:     model,
		Messages:  reqMessages,
		System:    system,
		MaxTokens: maxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("build anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicHTTPAPIVersion)

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("send anthropic request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read anthropic response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := c.HandleError("anthropic", resp.StatusCode, respBody)
		span.RecordError(apiErr)
		return nil, apiErr
	}

	var parsed anthropicHTTPResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("parse anthropic response: %w", err)
	}

	var content string
	for _, block := range parsed.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		err := fmt.Errorf("anthropic response contained no text content")
		span.RecordError(err)
		return nil, err
	}

	return &Response{
		Content: content,
		Model:   parsed.Model,
		Usage: Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}

var _ Client = (*AnthropicHTTPClient)(nil)
