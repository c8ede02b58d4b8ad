// Package session implements the Persistent Session and Session Pool of
// spec.md §4.3: a bounded-history LLM conversation bound to one agent
// identity, multiplexed by role across a pool with configurable scaling and
// selection strategies. Grounded on gomind's ai/providers/base.go request
// lifecycle and the teacher's orchestration/task_worker.go for the
// sequential, single-owner execution discipline a session enforces.
package session

import "time"

// MessageKind discriminates a ConversationMessage's role in the history
// ring buffer.
type MessageKind string

const (
	KindIdentityEstablishment MessageKind = "IdentityEstablishment"
	KindTaskPrompt            MessageKind = "TaskPrompt"
	KindResponse              MessageKind = "Response"
	KindIdentityReminder      MessageKind = "IdentityReminder"
	KindBatchStart            MessageKind = "BatchStart"
	KindBatchEnd              MessageKind = "BatchEnd"
)

// ConversationMessage is one entry in a session's bounded history.
type ConversationMessage struct {
	Timestamp time.Time
	Kind      MessageKind
	Content   string
	TaskID    string
}

// DefaultHistoryCap is the ring buffer's default capacity per spec.md §3.
const DefaultHistoryCap = 50

// history is a fixed-capacity FIFO ring buffer of ConversationMessage,
// evicting the oldest entry once full.
type history struct {
	cap     int
	entries []ConversationMessage
}

func newHistory(cap int) *history {
	if cap <= 0 {
		cap = DefaultHistoryCap
	}
	return &history{cap: cap, entries: make([]ConversationMessage, 0, cap)}
}

// append adds msg, evicting the oldest entry first if at capacity.
func (h *history) append(msg ConversationMessage) {
	if len(h.entries) >= h.cap {
		h.entries = h.entries[1:]
	}
	h.entries = append(h.entries, msg)
}

// recent returns up to n of the most recent entries, oldest first.
func (h *history) recent(n int) []ConversationMessage {
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	start := len(h.entries) - n
	out := make([]ConversationMessage, n)
	copy(out, h.entries[start:])
	return out
}

func (h *history) all() []ConversationMessage {
	out := make([]ConversationMessage, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *history) len() int { return len(h.entries) }
