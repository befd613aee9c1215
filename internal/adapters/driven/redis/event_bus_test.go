package redis

import (
	"context"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_DeliversToOwnerOnly(t *testing.T) {
	client, _ := setupTestRedis(t)
	bus := NewEventBus(client, "", nil)
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceEvents, stopAlice, err := bus.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer stopAlice()
	bobEvents, stopBob, err := bus.Subscribe(ctx, "bob")
	require.NoError(t, err)
	defer stopBob()

	require.NoError(t, bus.Publish(ctx, domain.DocumentEvent{
		DocumentID: "doc-1",
		OwnerID:    "alice",
		Name:       "policy.txt",
		Status:     domain.DocumentStatusCompleted,
		ChunkCount: 3,
	}))

	select {
	case event := <-aliceEvents:
		assert.Equal(t, "doc-1", event.DocumentID)
		assert.Equal(t, domain.DocumentStatusCompleted, event.Status)
		assert.Equal(t, 3, event.ChunkCount)
	case <-ctx.Done():
		t.Fatal("alice did not receive her event")
	}

	select {
	case event := <-bobEvents:
		t.Fatalf("bob received alice's event: %+v", event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventBus_CancelClosesChannel(t *testing.T) {
	client, _ := setupTestRedis(t)
	bus := NewEventBus(client, "", nil)

	events, stop, err := bus.Subscribe(context.Background(), "alice")
	require.NoError(t, err)
	stop()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
	require.NoError(t, bus.Close())
}

func TestEventBus_CloseEndsSubscriptions(t *testing.T) {
	client, _ := setupTestRedis(t)
	bus := NewEventBus(client, "", nil)

	events, stop, err := bus.Subscribe(context.Background(), "alice")
	require.NoError(t, err)
	defer stop()

	require.NoError(t, bus.Close())
	_, ok := <-events
	assert.False(t, ok)
}
