package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

var _ driven.EventBus = (*EventBus)(nil)

// eventBuffer is the per-subscriber channel capacity. Events beyond it are
// dropped for that subscriber; clients reconcile with GET /documents.
const eventBuffer = 32

// EventBus fans document events out through Redis pub/sub, one channel per
// owner, so API replicas see transitions made by any worker.
type EventBus struct {
	client *redis.Client
	keys   keyspace
	logger *slog.Logger

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// NewEventBus creates a Redis pub/sub event bus
func NewEventBus(client *redis.Client, namespace string, logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		client: client,
		keys:   newKeyspace(namespace),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Publish sends the event to the owner's channel
func (b *EventBus) Publish(ctx context.Context, event domain.DocumentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, b.keys.events(event.OwnerID), data).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe listens on the owner's channel until ctx ends or cancel is called
func (b *EventBus) Subscribe(ctx context.Context, ownerID string) (<-chan domain.DocumentEvent, func(), error) {
	ps := b.client.Subscribe(ctx, b.keys.events(ownerID))
	// Wait for the subscription confirmation so no event published after
	// Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, fmt.Errorf("subscribe events: %w", err)
	}

	subCtx, stop := context.WithCancel(ctx)
	out := make(chan domain.DocumentEvent, eventBuffer)
	messages := ps.Channel()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(out)
		defer ps.Close()

		for {
			select {
			case <-subCtx.Done():
				return
			case <-b.done:
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var event domain.DocumentEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.logger.Warn("dropping undecodable event", "channel", msg.Channel, "error", err)
					continue
				}
				select {
				case out <- event:
				default:
					b.logger.Debug("subscriber slow, dropping event", "owner_id", ownerID, "document_id", event.DocumentID)
				}
			}
		}
	}()

	return out, stop, nil
}

// Close ends every subscription and waits for them to drain. The client is
// owned by the caller.
func (b *EventBus) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	b.wg.Wait()
	return nil
}
