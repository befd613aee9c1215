package mocks

import (
	"context"
	"math"
	"sync"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.CorpusIndex = (*MockCorpusIndex)(nil)

// MockCorpusIndex is a brute-force CorpusIndex for testing
type MockCorpusIndex struct {
	mu     sync.RWMutex
	chunks map[string]map[string][]*domain.Chunk // owner -> document -> chunks

	// Error injection (optional)
	InsertErr error
	SearchErr error
	DeleteErr error
}

// NewMockCorpusIndex creates a new MockCorpusIndex
func NewMockCorpusIndex() *MockCorpusIndex {
	return &MockCorpusIndex{
		chunks: make(map[string]map[string][]*domain.Chunk),
	}
}

func (m *MockCorpusIndex) Insert(ctx context.Context, ownerID string, chunks []*domain.Chunk) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	if len(chunks) == 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	docs, ok := m.chunks[ownerID]
	if !ok {
		docs = make(map[string][]*domain.Chunk)
		m.chunks[ownerID] = docs
	}
	docs[chunks[0].DocumentID] = append([]*domain.Chunk(nil), chunks...)
	return nil
}

func (m *MockCorpusIndex) Search(ctx context.Context, ownerID string, vector []float32, k int) ([]*domain.ScoredChunk, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var results []*domain.ScoredChunk
	for _, chunks := range m.chunks[ownerID] {
		for _, c := range chunks {
			results = append(results, &domain.ScoredChunk{
				Chunk: c,
				Score: domain.SimilarityToScore(cosine(vector, c.Embedding)),
			})
		}
	}
	domain.SortScoredChunks(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MockCorpusIndex) DeleteDocument(ctx context.Context, ownerID, documentID string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chunks[ownerID], documentID)
	return nil
}

func (m *MockCorpusIndex) Count(ctx context.Context, ownerID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, chunks := range m.chunks[ownerID] {
		n += len(chunks)
	}
	return n, nil
}

func (m *MockCorpusIndex) Ping(ctx context.Context) error {
	return nil
}

func (m *MockCorpusIndex) Close() error {
	return nil
}

// DocumentChunks returns the indexed chunks of a document (for test assertions)
func (m *MockCorpusIndex) DocumentChunks(ownerID, documentID string) []*domain.Chunk {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.chunks[ownerID][documentID]
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
