package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.DocumentStore = (*MockDocumentStore)(nil)

// MockDocumentStore is an in-memory DocumentStore for testing.
// It enforces the conditional status updates of the real stores.
type MockDocumentStore struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
	payloads  map[string][]byte
	history   map[string][]domain.DocumentStatus

	// Error injection (optional)
	CreateErr       error
	GetErr          error
	UpdateStatusErr error
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		documents: make(map[string]*domain.Document),
		payloads:  make(map[string][]byte),
		history:   make(map[string][]domain.DocumentStatus),
	}
}

func (m *MockDocumentStore) Create(ctx context.Context, doc *domain.Document, payload []byte) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.documents[doc.ID]; ok {
		return domain.ErrAlreadyExists
	}
	copied := *doc
	m.documents[doc.ID] = &copied
	m.payloads[doc.ID] = append([]byte(nil), payload...)
	m.history[doc.ID] = []domain.DocumentStatus{doc.Status}
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *doc
	return &copied, nil
}

func (m *MockDocumentStore) GetForOwner(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	doc, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *MockDocumentStore) GetPayload(ctx context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.payloads[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return payload, nil
}

func (m *MockDocumentStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []*domain.Document
	for _, doc := range m.documents {
		if doc.OwnerID == ownerID {
			copied := *doc
			docs = append(docs, &copied)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	if offset >= len(docs) {
		return []*domain.Document{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(docs) {
		end = len(docs)
	}
	return docs[offset:end], nil
}

func (m *MockDocumentStore) CountByStatus(ctx context.Context, ownerID string, status domain.DocumentStatus) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, doc := range m.documents {
		if doc.OwnerID == ownerID && doc.Status == status {
			count++
		}
	}
	return count, nil
}

func (m *MockDocumentStore) UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) (*domain.Document, error) {
	if m.UpdateStatusErr != nil {
		return nil, m.UpdateStatusErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if doc.Status != update.From || !update.From.CanTransitionTo(update.To) {
		return nil, domain.ErrInvalidTransition
	}

	now := time.Now()
	doc.Status = update.To
	doc.UpdatedAt = now
	switch update.To {
	case domain.DocumentStatusCompleted:
		doc.ChunkCount = update.ChunkCount
		doc.Error = ""
		doc.CompletedAt = &now
	case domain.DocumentStatusFailed:
		doc.Error = update.Error
		doc.CompletedAt = &now
	}
	m.history[id] = append(m.history[id], update.To)

	copied := *doc
	return &copied, nil
}

func (m *MockDocumentStore) ListStalled(ctx context.Context, before time.Time, limit int) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []*domain.Document
	for _, doc := range m.documents {
		if doc.Status.IsTerminal() || !doc.UpdatedAt.Before(before) {
			continue
		}
		copied := *doc
		docs = append(docs, &copied)
		if limit > 0 && len(docs) == limit {
			break
		}
	}
	return docs, nil
}

func (m *MockDocumentStore) ListCompleted(ctx context.Context, afterID string, limit int) ([]*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var docs []*domain.Document
	for _, doc := range m.documents {
		if doc.Status != domain.DocumentStatusCompleted || doc.ID <= afterID {
			continue
		}
		copied := *doc
		docs = append(docs, &copied)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok || doc.OwnerID != ownerID {
		return domain.ErrNotFound
	}
	delete(m.documents, id)
	delete(m.payloads, id)
	return nil
}

// Helper methods for testing

// History returns every status the document has held, oldest first
func (m *MockDocumentStore) History(id string) []domain.DocumentStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.DocumentStatus(nil), m.history[id]...)
}

// SetUpdatedAt backdates a document for stalled-ingestion tests
func (m *MockDocumentStore) SetUpdatedAt(id string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.documents[id]; ok {
		doc.UpdatedAt = at
	}
}

func (m *MockDocumentStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents)
}
