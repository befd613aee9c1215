// Package nats is an EventBus on NATS core pub/sub, one subject per owner.
package nats

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/nats-io/nats.go"
)

var _ driven.EventBus = (*Bus)(nil)

const (
	subjectPrefix = "sercha.documents."
	buffer        = 32
	flushTimeout  = 5 * time.Second
)

// Bus publishes and subscribes document events over NATS
type Bus struct {
	conn   *nats.Conn
	owned  bool
	logger *slog.Logger

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// Connect dials url and returns a bus that closes the connection on Close
func Connect(url string, logger *slog.Logger) (*Bus, error) {
	conn, err := nats.Connect(url,
		nats.Name("sercha-corpus"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	b := New(conn, logger)
	b.owned = true
	return b, nil
}

// New wraps an existing connection, which stays owned by the caller
func New(conn *nats.Conn, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		conn:   conn,
		logger: logger.With("component", "nats_events"),
		done:   make(chan struct{}),
	}
}

// subject hex-encodes the owner so IDs never collide with NATS tokens
func subject(ownerID string) string {
	return subjectPrefix + hex.EncodeToString([]byte(ownerID))
}

// Publish sends the event on the owner's subject
func (b *Bus) Publish(ctx context.Context, event domain.DocumentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.conn.Publish(subject(event.OwnerID), data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe listens on the owner's subject until ctx ends or cancel is called
func (b *Bus) Subscribe(ctx context.Context, ownerID string) (<-chan domain.DocumentEvent, func(), error) {
	msgs := make(chan *nats.Msg, buffer)
	sub, err := b.conn.ChanSubscribe(subject(ownerID), msgs)
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe events: %w", err)
	}
	// Make sure the server has the interest before returning
	if err := b.conn.FlushTimeout(flushTimeout); err != nil {
		_ = sub.Unsubscribe()
		return nil, nil, fmt.Errorf("subscribe events: %w", err)
	}

	subCtx, stop := context.WithCancel(ctx)
	out := make(chan domain.DocumentEvent, buffer)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()

		for {
			select {
			case <-subCtx.Done():
				return
			case <-b.done:
				return
			case msg := <-msgs:
				var event domain.DocumentEvent
				if err := json.Unmarshal(msg.Data, &event); err != nil {
					b.logger.Warn("dropping undecodable event", "subject", msg.Subject, "error", err)
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

// Close ends every subscription and, for buses created by Connect, drains
// the connection
func (b *Bus) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	b.wg.Wait()
	if b.owned {
		return b.conn.Drain()
	}
	return nil
}
