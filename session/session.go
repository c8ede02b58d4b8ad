package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/swarmforge/swarmctl/core"
	"github.com/swarmforge/swarmctl/identity"
	"github.com/swarmforge/swarmctl/llm"
)

// ModelConfig names the model a session talks to and its generation
// parameters.
type ModelConfig struct {
	Model       string
	MaxTokens   int
	Temperature float32
	SystemPrompt string
}

// Session owns one LLM conversation bound to a single agent identity, per
// spec.md §4.3. It is not safe for concurrent ExecuteTask calls from
// multiple goroutines; the pool and worker both treat a session as
// single-owner for the duration of one task.
type Session struct {
	mu sync.Mutex

	id            string
	identity      identity.AgentIdentity
	workDir       string
	model         ModelConfig
	client        llm.Client
	logger        core.Logger
	createdAt     time.Time
	lastActivity  time.Time
	active        bool
	history       *history
	identityDone  bool
}

// New builds a Session bound to id, talking to client using model.
func New(id string, agentIdentity identity.AgentIdentity, workDir string, model ModelConfig, client llm.Client, historyCap int, logger core.Logger) *Session {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	now := time.Now()
	return &Session{
		id:           id,
		identity:     agentIdentity,
		workDir:      workDir,
		model:        model,
		client:       client,
		logger:       logger,
		createdAt:    now,
		lastActivity: now,
		active:       true,
		history:      newHistory(historyCap),
	}
}

func (s *Session) ID() string               { return s.id }
func (s *Session) CreatedAt() time.Time      { return s.createdAt }
func (s *Session) LastActivity() time.Time   { s.mu.Lock(); defer s.mu.Unlock(); return s.lastActivity }
func (s *Session) Active() bool              { s.mu.Lock(); defer s.mu.Unlock(); return s.active }
func (s *Session) HistoryLen() int           { s.mu.Lock(); defer s.mu.Unlock(); return s.history.len() }
func (s *Session) History() []ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.all()
}

// ExecuteTask implements spec.md §4.3's execute_task: establish identity
// once if not yet done, build a prompt from the last ≤3 relevant messages
// plus the new task description, send it, verify identity markers on the
// response, append the exchange to history (trimming to cap), and return
// the response content. A missing identity marker is a soft failure: the
// first occurrence within this call retries once with a DriftReminder
// prepended; a second occurrence within the same call fails the task with
// core.ErrIdentityViolation (spec.md §9).
func (s *Session) ExecuteTask(ctx context.Context, id identity.AgentIdentity, description, details string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return "", fmt.Errorf("session: %s is closed", s.id)
	}

	var leading string
	if !s.identityDone {
		leading = identity.EstablishmentPrompt(id)
		s.identityDone = true
	}

	taskPrompt := description
	if details != "" {
		taskPrompt = fmt.Sprintf("%s\n\n%s", description, details)
	}

	content, err := s.completeWithDriftRetry(ctx, id, leading, s.historyContext(), taskPrompt)
	if err != nil {
		return "", err
	}

	now := time.Now()
	s.history.append(ConversationMessage{Timestamp: now, Kind: KindTaskPrompt, Content: taskPrompt})
	s.history.append(ConversationMessage{Timestamp: now, Kind: KindResponse, Content: content})
	s.lastActivity = now

	return content, nil
}

// historyContext renders the last ≤3 history entries as prompt lines.
func (s *Session) historyContext() []string {
	recent := s.history.recent(3)
	out := make([]string, len(recent))
	for i, m := range recent {
		out[i] = fmt.Sprintf("[%s] %s", m.Kind, m.Content)
	}
	return out
}

// completeWithDriftRetry sends taskPrompt (preceded by leading, if set, and
// historyContext) and verifies the reply's identity markers. A miss is
// corrected with a single retry carrying identity.DriftReminder; a second
// miss in the same call returns core.ErrIdentityViolation instead of a
// third attempt, per the per-task drift counter spec.md §9 describes.
func (s *Session) completeWithDriftRetry(ctx context.Context, id identity.AgentIdentity, leading string, historyContext []string, taskPrompt string) (string, error) {
	var driftReminder string
	for attempt := 0; attempt < 2; attempt++ {
		var parts []string
		if leading != "" {
			parts = append(parts, leading)
		}
		if driftReminder != "" {
			parts = append(parts, driftReminder)
		}
		parts = append(parts, historyContext...)
		parts = append(parts, taskPrompt)

		messages := []llm.Message{{Role: "user", Content: joinPrompt(parts)}}

		resp, err := s.client.Complete(ctx, s.model.Model, messages, s.model.SystemPrompt, s.model.MaxTokens)
		if err != nil {
			return "", fmt.Errorf("session: complete: %w", err)
		}

		if identity.VerifyAcknowledgement(resp.Content) {
			return resp.Content, nil
		}

		s.logger.Warn("identity marker missing from response", map[string]interface{}{"session_id": s.id, "attempt": attempt + 1})
		driftReminder = identity.DriftReminder(id)
	}

	return "", fmt.Errorf("session: %s: %w", s.id, core.ErrIdentityViolation)
}

// ExecuteTaskBatch runs each task sequentially in the same context,
// establishing identity once and bracketing the run with BatchStart/
// BatchEnd history markers, saving the per-task identity cost.
func (s *Session) ExecuteTaskBatch(ctx context.Context, id identity.AgentIdentity, descriptions []string) ([]string, error) {
	s.mu.Lock()
	s.history.append(ConversationMessage{Timestamp: time.Now(), Kind: KindBatchStart})
	s.mu.Unlock()

	results := make([]string, 0, len(descriptions))
	for _, desc := range descriptions {
		out, err := s.ExecuteTask(ctx, id, desc, "")
		if err != nil {
			return results, err
		}
		results = append(results, out)
	}

	s.mu.Lock()
	s.history.append(ConversationMessage{Timestamp: time.Now(), Kind: KindBatchEnd})
	s.mu.Unlock()

	return results, nil
}

// Close marks the session inactive. Idempotent.
func (s *Session) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	return nil
}

func joinPrompt(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}
