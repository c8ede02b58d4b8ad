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

// OpenAIDefaultBaseURL is the Chat Completions API endpoint.
const OpenAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient is a hand-rolled provider against the Chat Completions API,
// grounded on gomind's ai/providers/openai package (the other pack repos
// name OpenAI-compatible endpoints but none wrap them directly).
type OpenAIClient struct {
	*BaseClient
	apiKey  string
	baseURL string
}

// NewOpenAIClient builds the OpenAI provider.
func NewOpenAIClient(apiKey, baseURL string, logger core.Logger, telemetry core.Telemetry) *OpenAIClient {
	if baseURL == "" {
		baseURL = OpenAIDefaultBaseURL
	}
	base := NewBaseClient(30*time.Second, logger, telemetry)
	base.DefaultModel = "gpt-4o"
	return &OpenAIClient{BaseClient: base, apiKey: apiKey, baseURL: baseURL}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIResponse struct {
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
}

// Complete issues a Chat Completions request, prepending system as a
// "system" role message the way the Chat Completions API expects it (unlike
// Anthropic's dedicated top-level System field).
func (c *OpenAIClient) Complete(ctx context.Context, model string, messages []Message, system string, maxTokens int) (*Response, error) {
	ctx, span := c.StartSpan(ctx, "llm.openai.complete")
	defer span.End()

	if c.apiKey == "" {
		err := fmt.Errorf("openai API key not configured")
		span.RecordError(err)
		return nil, err
	}

	model, maxTokens = c.applyDefaults(model, maxTokens)
	span.SetAttribute("llm.model", model)

	reqMessages := make([]openAIMessage, 0, len(messages)+1)
	if system != "" {
		reqMessages = append(reqMessages, openAIMessage{Role: "system", Content: system})
	}
	for _, m := range messages {
		reqMessages = append(reqMessages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(openAIRequest{Model: model, Messages: reqMessages, MaxTokens: maxTokens})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("build openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.ExecuteWithRetry(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("send openai request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read openai response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := c.HandleError("openai", resp.StatusCode, respBody)
		span.RecordError(apiErr)
		return nil, apiErr
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("parse openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		err := fmt.Errorf("openai response contained no choices")
		span.RecordError(err)
		return nil, err
	}

	return &Response{
		Content: parsed.Choices[0].Message.Content,
		Model:   parsed.Model,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

var _ Client = (*OpenAIClient)(nil)
