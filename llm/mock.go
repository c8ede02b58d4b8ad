package llm

import (
	"context"
	"errors"
	"sync"
)

// MockClient returns a configurable sequence of canned responses. It backs
// both development.mock_ai and the test suites for session/orchestrator/
// review, which all need deterministic LLM output.
type MockClient struct {
	mu        sync.Mutex
	Responses []string
	Err       error

	CallCount   int
	LastPrompt  string
	LastModel   string
	LastSystem  string
	LastHistory []Message
}

// NewMockClient builds a mock seeded with the given canned responses, served
// in order and then repeating the final one.
func NewMockClient(responses ...string) *MockClient {
	if len(responses) == 0 {
		responses = []string{"mock response"}
	}
	return &MockClient{Responses: responses}
}

// Complete returns the next canned response (or the configured error).
func (m *MockClient) Complete(ctx context.Context, model string, messages []Message, system string, maxTokens int) (*Response, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.CallCount++
	m.LastModel = model
	m.LastSystem = system
	m.LastHistory = messages
	if len(messages) > 0 {
		m.LastPrompt = messages[len(messages)-1].Content
	}

	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return nil, errors.New("mock client: no responses configured")
	}

	idx := m.CallCount - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	content := m.Responses[idx]

	return &Response{
		Content: content,
		Model:   model,
		Usage:   Usage{PromptTokens: len(m.LastPrompt) / 4, CompletionTokens: len(content) / 4, TotalTokens: (len(m.LastPrompt) + len(content)) / 4},
	}, nil
}

var _ Client = (*MockClient)(nil)
