// Package llm defines the transport-agnostic contract sessions use to talk
// to a language model, plus a small set of concrete providers. spec.md names
// the LLM transport as an external collaborator ("a client exposing
// complete(model, messages, system, max_tokens) -> text"); this package is
// that collaborator's home, modeled on gomind's ai.AIClient shape.
package llm

import (
	"context"
	"time"
)

// Message is one turn in a conversation sent to the model.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Usage reports token accounting for a single completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is the result of a single completion call.
type Response struct {
	Content string
	Model   string
	Usage   Usage
}

// Client is the contract every LLM provider implements. It is the Go-native
// rendering of spec.md's assumed transport:
// complete(model, messages, system, max_tokens) -> text.
type Client interface {
	Complete(ctx context.Context, model string, messages []Message, system string, maxTokens int) (*Response, error)
}

// Options configures a single Complete call beyond the positional
// model/messages/system/maxTokens arguments.
type Options struct {
	Temperature float32
	Timeout     time.Duration
}
