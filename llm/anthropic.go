package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/swarmforge/swarmctl/core"
)

// DefaultAnthropicModel is used whenever a session's model config omits one.
const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

// AnthropicClient wraps the official anthropic-sdk-go Messages API. This is
// the "real SDK" provider, kept alongside AnthropicHTTPClient (hand-rolled
// HTTP) so the runtime can pick whichever transport matches its deployment
// — the SDK for its own retry/backoff handling, the hand-rolled client when
// an operator wants to drive request shaping directly.
type AnthropicClient struct {
	sdk       anthropic.Client
	logger    core.Logger
	telemetry core.Telemetry
}

// NewAnthropicClient builds a provider backed by anthropic-sdk-go.
func NewAnthropicClient(apiKey string, logger core.Logger, telemetry core.Telemetry) *AnthropicClient {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if telemetry == nil {
		telemetry = core.NoOpTelemetry{}
	}
	return &AnthropicClient{
		sdk:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		logger:    logger,
		telemetry: telemetry,
	}
}

// Complete satisfies llm.Client by issuing a single-turn (or multi-turn)
// Messages.New call and flattening the text content blocks of the reply.
func (c *AnthropicClient) Complete(ctx context.Context, model string, messages []Message, system string, maxTokens int) (*Response, error) {
	ctx, span := c.telemetry.StartSpan(ctx, "llm.anthropic.complete")
	defer span.End()

	if model == "" {
		model = DefaultAnthropicModel
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	span.SetAttribute("llm.model", model)
	span.SetAttribute("llm.message_count", len(messages))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  toAnthropicMessages(messages),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("anthropic completion failed", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}

	var content string
	for _, block := range msg.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		err := fmt.Errorf("anthropic response contained no text content")
		span.RecordError(err)
		return nil, err
	}

	usage := Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	span.SetAttribute("llm.prompt_tokens", usage.PromptTokens)
	span.SetAttribute("llm.completion_tokens", usage.CompletionTokens)

	return &Response{Content: content, Model: string(msg.Model), Usage: usage}, nil
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

var _ Client = (*AnthropicClient)(nil)
