// Package memory is an in-process EventBus for single-binary deployments.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.EventBus = (*Bus)(nil)

// buffer is the per-subscriber channel capacity; a full subscriber misses
// events rather than stalling the publisher
const buffer = 32

// Bus fans events out to the subscribers of each owner
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
}

type subscriber struct {
	ch   chan domain.DocumentEvent
	once sync.Once
}

// New creates an empty bus
func New() *Bus {
	return &Bus{subs: make(map[string]map[*subscriber]struct{})}
}

// Publish delivers to every current subscriber of the owner
func (b *Bus) Publish(ctx context.Context, event domain.DocumentEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs[event.OwnerID] {
		select {
		case s.ch <- event:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx ends or cancel is called
func (b *Bus) Subscribe(ctx context.Context, ownerID string) (<-chan domain.DocumentEvent, func(), error) {
	s := &subscriber{ch: make(chan domain.DocumentEvent, buffer)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}, nil
	}
	if b.subs[ownerID] == nil {
		b.subs[ownerID] = make(map[*subscriber]struct{})
	}
	b.subs[ownerID][s] = struct{}{}
	b.mu.Unlock()

	stop := make(chan struct{})
	var stopOnce sync.Once
	cancel := func() {
		stopOnce.Do(func() { close(stop) })
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		b.remove(ownerID, s)
	}()

	return s.ch, cancel, nil
}

func (b *Bus) remove(ownerID string, s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[ownerID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(b.subs, ownerID)
		}
	}
	s.once.Do(func() { close(s.ch) })
}

// Close ends every subscription
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for ownerID, set := range b.subs {
		for s := range set {
			s.once.Do(func() { close(s.ch) })
		}
		delete(b.subs, ownerID)
	}
	return nil
}
