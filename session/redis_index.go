package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/swarmforge/swarmctl/identity"
)

// RedisSessionIndex gives every orchestrator process a view of how many
// sessions its peers are running per role, the way gomind's RedisRegistry
// lets one instance discover services registered by another: each process
// announces its own per-role session count under a TTL-bound key, and a
// stale process simply falls out of Discover once its key expires, instead
// of requiring an explicit deregistration step. Grounded on
// core/redis_discovery.go + core/redis_registry.go's TTL-refresh pattern,
// trimmed from capability/name/type index sets down to the one dimension
// this pool cares about (role -> session count).
type RedisSessionIndex struct {
	client    *redis.Client
	namespace string
	processID string
}

// NewRedisSessionIndex builds an index under namespace (defaulting to
// "swarmctl") tagged with processID, which should be stable for the
// lifetime of one orchestrator process (a hostname+pid or a uuid).
func NewRedisSessionIndex(client *redis.Client, namespace, processID string) *RedisSessionIndex {
	if namespace == "" {
		namespace = "swarmctl"
	}
	return &RedisSessionIndex{client: client, namespace: namespace, processID: processID}
}

func (idx *RedisSessionIndex) key(role identity.Role) string {
	return fmt.Sprintf("%s:sessions:%s:%s", idx.namespace, role, idx.processID)
}

// Announce publishes this process's current session count for role, valid
// for ttl. Callers re-announce on every pool size change (scale up/down,
// cleanup) so the TTL never lapses on an active role.
func (idx *RedisSessionIndex) Announce(ctx context.Context, role identity.Role, count int, ttl time.Duration) error {
	if err := idx.client.Set(ctx, idx.key(role), count, ttl).Err(); err != nil {
		return fmt.Errorf("session: announce %s: %w", role, err)
	}
	return nil
}

// Withdraw removes this process's announcement for role, used on shutdown
// so peers stop counting sessions this process no longer holds.
func (idx *RedisSessionIndex) Withdraw(ctx context.Context, role identity.Role) error {
	if err := idx.client.Del(ctx, idx.key(role)).Err(); err != nil {
		return fmt.Errorf("session: withdraw %s: %w", role, err)
	}
	return nil
}

// Discover sums every live process's announced session count for role.
// A process whose key has expired (crashed, or cleanly withdrawn) is
// silently absent from the scan rather than reported as zero.
func (idx *RedisSessionIndex) Discover(ctx context.Context, role identity.Role) (int, error) {
	pattern := fmt.Sprintf("%s:sessions:%s:*", idx.namespace, role)

	var cursor uint64
	total := 0
	for {
		keys, next, err := idx.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return 0, fmt.Errorf("session: discover %s: %w", role, err)
		}
		for _, k := range keys {
			val, err := idx.client.Get(ctx, k).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return 0, fmt.Errorf("session: discover %s: %w", role, err)
			}
			n, err := strconv.Atoi(val)
			if err != nil {
				continue
			}
			total += n
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return total, nil
}
