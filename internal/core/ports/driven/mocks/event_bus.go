package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.EventBus = (*MockEventBus)(nil)

// MockEventBus records published events and fans them out to subscribers
type MockEventBus struct {
	mu          sync.Mutex
	events      []domain.DocumentEvent
	subscribers map[string][]chan domain.DocumentEvent
}

// NewMockEventBus creates a new MockEventBus
func NewMockEventBus() *MockEventBus {
	return &MockEventBus{
		subscribers: make(map[string][]chan domain.DocumentEvent),
	}
}

func (m *MockEventBus) Publish(ctx context.Context, event domain.DocumentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	for _, ch := range m.subscribers[event.OwnerID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (m *MockEventBus) Subscribe(ctx context.Context, ownerID string) (<-chan domain.DocumentEvent, func(), error) {
	ch := make(chan domain.DocumentEvent, 16)
	m.mu.Lock()
	m.subscribers[ownerID] = append(m.subscribers[ownerID], ch)
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			subs := m.subscribers[ownerID]
			for i, c := range subs {
				if c == ch {
					m.subscribers[ownerID] = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, cancel, nil
}

func (m *MockEventBus) Close() error {
	return nil
}

// Events returns every published event, oldest first
func (m *MockEventBus) Events() []domain.DocumentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.DocumentEvent(nil), m.events...)
}

// Statuses returns the status sequence published for a document
func (m *MockEventBus) Statuses(documentID string) []domain.DocumentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	var statuses []domain.DocumentStatus
	for _, e := range m.events {
		if e.DocumentID == documentID {
			statuses = append(statuses, e.Status)
		}
	}
	return statuses
}
