package driven

import (
	"context"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// EventBus carries document status events to subscribers of one owner.
type EventBus interface {
	// Publish sends an event to the owner's subscribers. Delivery is best effort.
	Publish(ctx context.Context, event domain.DocumentEvent) error

	// Subscribe returns a channel of the owner's events. The channel is
	// closed once ctx is done or the returned cancel func is called.
	Subscribe(ctx context.Context, ownerID string) (<-chan domain.DocumentEvent, func(), error)

	// Close releases resources
	Close() error
}
