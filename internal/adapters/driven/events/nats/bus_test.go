package nats

import (
	"context"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestServer runs an embedded NATS server on a random port
func startTestServer(t *testing.T) *natsserver.Server {
	t.Helper()
	server, err := natsserver.NewServer(&natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go server.Start()
	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})
	return server
}

func newBus(t *testing.T) *Bus {
	t.Helper()
	server := startTestServer(t)
	conn, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	t.Cleanup(conn.Close)

	b := New(conn, nil)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSubject_EncodesOwner(t *testing.T) {
	assert.Equal(t, "sercha.documents.612e62", subject("a.b"))
	assert.NotEqual(t, subject("alice"), subject("bob"))
}

func TestBus_OwnerIsolation(t *testing.T) {
	b := newBus(t)
	ctx := context.Background()

	alice, stopA, err := b.Subscribe(ctx, "alice")
	require.NoError(t, err)
	defer stopA()
	bob, stopB, err := b.Subscribe(ctx, "bob")
	require.NoError(t, err)
	defer stopB()

	require.NoError(t, b.Publish(ctx, domain.DocumentEvent{
		OwnerID: "alice", DocumentID: "d1", Status: domain.DocumentStatusCompleted, ChunkCount: 3,
	}))

	select {
	case e := <-alice:
		assert.Equal(t, "d1", e.DocumentID)
		assert.Equal(t, domain.DocumentStatusCompleted, e.Status)
		assert.Equal(t, 3, e.ChunkCount)
	case <-time.After(2 * time.Second):
		t.Fatal("alice received nothing")
	}

	select {
	case e := <-bob:
		t.Fatalf("bob received %+v", e)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	b := newBus(t)

	ch, cancel, err := b.Subscribe(context.Background(), "alice")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}
