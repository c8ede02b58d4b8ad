package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swarmforge/swarmctl/core"
)

// Persister durably records every envelope sent through a Bus. Implementations
// (file-backed JSONL, Redis lists) only need to support append and full
// replay — the bus itself owns sequencing and in-memory delivery.
type Persister interface {
	Append(ctx context.Context, env Envelope) error
	LoadAll(ctx context.Context) ([]Envelope, error)
	Close() error
}

// Bus is the coordination channel named in spec.md §4.1: a non-blocking,
// best-effort-persisted, FIFO message channel.
type Bus interface {
	// Send is non-blocking; it appends m to the log and offers it to the
	// in-memory channel. Returns core.ErrQueueFull if the channel has no
	// capacity (the log entry is still written); core.ErrBusClosed if the
	// bus is closed.
	Send(ctx context.Context, m Message) error

	// Receive awaits the next message in FIFO order, or returns ctx.Err()
	// if ctx is cancelled first.
	Receive(ctx context.Context) (Message, error)

	// TryReceive is a non-blocking receive, returning ok=false if the
	// channel is currently empty.
	TryReceive() (Message, bool)

	// LoadPersisted returns the full append log in insertion order.
	LoadPersisted(ctx context.Context) ([]Envelope, error)

	// Close is idempotent; subsequent Sends fail with core.ErrBusClosed.
	Close() error
}

// InMemoryBus is the default Bus: a buffered channel for at-most-once
// in-process delivery plus a pluggable Persister for the durable log.
// Grounded on orchestration/task_worker.go's dequeue-loop shape (a buffered
// channel drained by one or more consumers) generalized from a single task
// queue to a fan-in pub/sub channel, and on redis_task_queue.go's
// Enqueue/Dequeue retry structure for Send's non-blocking-offer behavior.
type InMemoryBus struct {
	ch        chan Message
	persister Persister
	logger    core.Logger

	seq    atomic.Uint64
	mu     sync.RWMutex
	closed bool
}

// Option configures an InMemoryBus at construction.
type Option func(*InMemoryBus)

// WithPersister installs a durable backend. Without one, Send still
// succeeds (it simply has nothing durable to write to), matching the
// "persistence is optional but errors, when present, propagate" contract.
func WithPersister(p Persister) Option {
	return func(b *InMemoryBus) { b.persister = p }
}

// WithLogger attaches a logger for send-rejection and close events.
func WithLogger(logger core.Logger) Option {
	return func(b *InMemoryBus) { b.logger = logger }
}

// NewInMemoryBus builds a bus with the given channel capacity.
func NewInMemoryBus(capacity int, opts ...Option) *InMemoryBus {
	if capacity <= 0 {
		capacity = 256
	}
	b := &InMemoryBus{
		ch:     make(chan Message, capacity),
		logger: core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Send appends m to the persisted log (if any) and offers it to the
// in-memory channel without blocking.
func (b *InMemoryBus) Send(ctx context.Context, m Message) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return core.ErrBusClosed
	}

	if m.Kind == KindTaskProgress && m.TaskProgress != nil {
		clamped, didClamp := clampProgress(m.TaskProgress.Progress)
		if didClamp {
			b.logger.Warn("task progress clamped to [0,1]", map[string]interface{}{
				"agent_id": m.TaskProgress.AgentID,
				"task_id":  m.TaskProgress.TaskID,
				"original": m.TaskProgress.Progress,
				"clamped":  clamped,
			})
			m.TaskProgress.Progress = clamped
		}
	}

	env := Envelope{
		Seq:       b.seq.Add(1),
		Timestamp: time.Now(),
		Message:   m,
	}

	if b.persister != nil {
		if err := b.persister.Append(ctx, env); err != nil {
			return fmt.Errorf("bus: persist message: %w", err)
		}
	}

	select {
	case b.ch <- m:
		return nil
	default:
		return core.ErrQueueFull
	}
}

// Receive awaits the next message in FIFO order.
func (b *InMemoryBus) Receive(ctx context.Context) (Message, error) {
	select {
	case m, ok := <-b.ch:
		if !ok {
			return Message{}, core.ErrBusClosed
		}
		return m, nil
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

// TryReceive is a non-blocking receive.
func (b *InMemoryBus) TryReceive() (Message, bool) {
	select {
	case m, ok := <-b.ch:
		if !ok {
			return Message{}, false
		}
		return m, true
	default:
		return Message{}, false
	}
}

// LoadPersisted returns the full append log in insertion order.
func (b *InMemoryBus) LoadPersisted(ctx context.Context) ([]Envelope, error) {
	if b.persister == nil {
		return nil, nil
	}
	return b.persister.LoadAll(ctx)
}

// Close is idempotent; it stops accepting sends and closes the channel so
// blocked receivers unblock with core.ErrBusClosed.
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.ch)
	if b.persister != nil {
		return b.persister.Close()
	}
	return nil
}

var _ Bus = (*InMemoryBus)(nil)
