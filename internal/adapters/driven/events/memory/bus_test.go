package memory

import (
	"context"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

func recv(t *testing.T, ch <-chan domain.DocumentEvent) (domain.DocumentEvent, bool) {
	t.Helper()
	select {
	case e, ok := <-ch:
		return e, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return domain.DocumentEvent{}, false
	}
}

func TestBus_DeliversToOwnerOnly(t *testing.T) {
	b := New()
	defer b.Close()
	ctx := context.Background()

	alice, stopA, err := b.Subscribe(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	defer stopA()
	bob, stopB, _ := b.Subscribe(ctx, "bob")
	defer stopB()

	_ = b.Publish(ctx, domain.DocumentEvent{OwnerID: "alice", DocumentID: "d1", Status: domain.DocumentStatusProcessing})

	e, ok := recv(t, alice)
	if !ok || e.DocumentID != "d1" {
		t.Fatalf("alice got %+v, %v", e, ok)
	}
	select {
	case e := <-bob:
		t.Fatalf("bob received alice's event %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_CancelClosesChannel(t *testing.T) {
	b := New()
	defer b.Close()

	ch, cancel, _ := b.Subscribe(context.Background(), "alice")
	cancel()
	cancel()

	if _, ok := recv(t, ch); ok {
		t.Fatal("expected closed channel")
	}
}

func TestBus_ContextEndsSubscription(t *testing.T) {
	b := New()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, _, _ := b.Subscribe(ctx, "alice")
	cancel()

	if _, ok := recv(t, ch); ok {
		t.Fatal("expected closed channel")
	}
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := New()
	defer b.Close()
	ctx := context.Background()

	_, stop, _ := b.Subscribe(ctx, "alice")
	defer stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < buffer*3; i++ {
			_ = b.Publish(ctx, domain.DocumentEvent{OwnerID: "alice"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestBus_CloseEndsSubscriptions(t *testing.T) {
	b := New()
	ch, stop, _ := b.Subscribe(context.Background(), "alice")
	defer stop()

	_ = b.Close()
	if _, ok := recv(t, ch); ok {
		t.Fatal("expected closed channel")
	}

	late, _, _ := b.Subscribe(context.Background(), "alice")
	if _, ok := recv(t, late); ok {
		t.Fatal("subscription after Close should be closed")
	}
}
