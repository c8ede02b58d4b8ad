package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisPersister is the durable-backend alternative to FilePersister, for
// deployments that already run Redis for discovery/coordination (per the
// teacher's core/redis_discovery.go) and would rather centralize bus
// durability there than on local disk. Grounded on
// orchestration/redis_task_queue.go's list-based enqueue/dequeue pattern,
// adapted from a consumable queue to an append-only, non-consuming log (the
// bus always keeps every entry — RPUSH, never LPOP).
type RedisPersister struct {
	client *redis.Client
	key    string
}

// NewRedisPersister builds a persister writing to the Redis list named key.
func NewRedisPersister(client *redis.Client, key string) *RedisPersister {
	if key == "" {
		key = "swarmctl:bus:log"
	}
	return &RedisPersister{client: client, key: key}
}

// Append RPUSHes the JSON-encoded envelope onto the log list.
func (p *RedisPersister) Append(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("bus: marshal envelope: %w", err)
	}
	if err := p.client.RPush(ctx, p.key, data).Err(); err != nil {
		return fmt.Errorf("bus: redis rpush: %w", err)
	}
	return nil
}

// LoadAll returns every entry in the list, in insertion order.
func (p *RedisPersister) LoadAll(ctx context.Context) ([]Envelope, error) {
	raw, err := p.client.LRange(ctx, p.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("bus: redis lrange: %w", err)
	}

	envs := make([]Envelope, 0, len(raw))
	for _, item := range raw {
		var env Envelope
		if err := json.Unmarshal([]byte(item), &env); err != nil {
			return nil, fmt.Errorf("bus: parse redis entry: %w", err)
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// Close is a no-op: the *redis.Client is owned by whoever constructed it
// and may be shared with discovery/other subsystems.
func (p *RedisPersister) Close() error { return nil }

var _ Persister = (*RedisPersister)(nil)
