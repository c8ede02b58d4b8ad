package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmctl/identity"
)

func newSessionIndexTestClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestRedisSessionIndexDiscoverSumsAcrossProcesses(t *testing.T) {
	client, _ := newSessionIndexTestClient(t)
	ctx := context.Background()

	idxA := NewRedisSessionIndex(client, "testns", "proc-a")
	idxB := NewRedisSessionIndex(client, "testns", "proc-b")

	require.NoError(t, idxA.Announce(ctx, identity.RoleBackend, 3, time.Minute))
	require.NoError(t, idxB.Announce(ctx, identity.RoleBackend, 2, time.Minute))

	total, err := idxA.Discover(ctx, identity.RoleBackend)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
}

func TestRedisSessionIndexWithdrawRemovesAnnouncement(t *testing.T) {
	client, _ := newSessionIndexTestClient(t)
	ctx := context.Background()
	idx := NewRedisSessionIndex(client, "testns", "proc-a")

	require.NoError(t, idx.Announce(ctx, identity.RoleQA, 4, time.Minute))
	require.NoError(t, idx.Withdraw(ctx, identity.RoleQA))

	total, err := idx.Discover(ctx, identity.RoleQA)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestRedisSessionIndexExpiredAnnouncementDropsOut(t *testing.T) {
	client, mr := newSessionIndexTestClient(t)
	ctx := context.Background()
	idx := NewRedisSessionIndex(client, "testns", "proc-a")

	require.NoError(t, idx.Announce(ctx, identity.RoleDevOps, 7, time.Second))
	mr.FastForward(2 * time.Second)

	total, err := idx.Discover(ctx, identity.RoleDevOps)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestRedisSessionIndexDiscoverWithNoAnnouncementsReturnsZero(t *testing.T) {
	client, _ := newSessionIndexTestClient(t)
	idx := NewRedisSessionIndex(client, "testns", "proc-a")

	total, err := idx.Discover(context.Background(), identity.RoleSearch)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestNewRedisSessionIndexDefaultsNamespace(t *testing.T) {
	client, _ := newSessionIndexTestClient(t)
	idx := NewRedisSessionIndex(client, "", "proc-a")
	assert.Equal(t, "swarmctl:sessions:Backend:proc-a", idx.key(identity.RoleBackend))
}
