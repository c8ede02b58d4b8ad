package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmforge/swarmctl/core"
)

func TestInMemoryBusSendReceiveFIFO(t *testing.T) {
	b := NewInMemoryBus(8)
	ctx := context.Background()

	require.NoError(t, b.Send(ctx, Message{Kind: KindHeartbeat, Heartbeat: &Heartbeat{AgentID: "a1"}}))
	require.NoError(t, b.Send(ctx, Message{Kind: KindHeartbeat, Heartbeat: &Heartbeat{AgentID: "a2"}}))

	m1, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a1", m1.Heartbeat.AgentID)

	m2, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a2", m2.Heartbeat.AgentID)
}

func TestInMemoryBusQueueFull(t *testing.T) {
	b := NewInMemoryBus(1)
	ctx := context.Background()

	require.NoError(t, b.Send(ctx, Message{Kind: KindHeartbeat, Heartbeat: &Heartbeat{AgentID: "a1"}}))
	err := b.Send(ctx, Message{Kind: KindHeartbeat, Heartbeat: &Heartbeat{AgentID: "a2"}})
	assert.ErrorIs(t, err, core.ErrQueueFull)
}

func TestInMemoryBusTryReceiveEmpty(t *testing.T) {
	b := NewInMemoryBus(4)
	_, ok := b.TryReceive()
	assert.False(t, ok)
}

func TestInMemoryBusCloseIsIdempotentAndRejectsSends(t *testing.T) {
	b := NewInMemoryBus(4)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	err := b.Send(context.Background(), Message{Kind: KindHeartbeat})
	assert.ErrorIs(t, err, core.ErrBusClosed)
}

func TestInMemoryBusReceiveHonorsContextCancellation(t *testing.T) {
	b := NewInMemoryBus(1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := b.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInMemoryBusClampsOutOfRangeProgress(t *testing.T) {
	b := NewInMemoryBus(4)
	ctx := context.Background()

	require.NoError(t, b.Send(ctx, Message{
		Kind:         KindTaskProgress,
		TaskProgress: &TaskProgress{AgentID: "a1", TaskID: "t1", Progress: 1.5},
	}))

	m, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.TaskProgress.Progress)
}

func TestInMemoryBusPersistsAndLoadsInOrder(t *testing.T) {
	dir := t.TempDir()
	persister, err := NewFilePersister(dir + "/log.jsonl")
	require.NoError(t, err)

	b := NewInMemoryBus(8, WithPersister(persister))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Send(ctx, Message{Kind: KindHeartbeat, Heartbeat: &Heartbeat{AgentID: "a"}}))
	}

	envs, err := b.LoadPersisted(ctx)
	require.NoError(t, err)
	require.Len(t, envs, 5)
	for i, env := range envs {
		assert.Equal(t, uint64(i+1), env.Seq)
	}

	require.NoError(t, b.Close())
}
