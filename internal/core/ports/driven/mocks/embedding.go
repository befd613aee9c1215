package mocks

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.Embedder = (*MockEmbedder)(nil)

// MockEmbedder is a deterministic Embedder for testing.
// Texts sharing words map to nearby vectors, so retrieval order is meaningful.
type MockEmbedder struct {
	mu         sync.Mutex
	dimensions int
	model      string
	failures   int
	calls      int

	// EmbedFn overrides Embed when set
	EmbedFn func(ctx context.Context, text string) ([]float32, error)
}

// NewMockEmbedder creates a new MockEmbedder
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		dimensions: 64,
		model:      "mock-embedding-model",
	}
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFn != nil {
		return m.EmbedFn(ctx, text)
	}
	m.mu.Lock()
	m.calls++
	if m.failures > 0 {
		m.failures--
		m.mu.Unlock()
		return nil, domain.ErrEmbeddingUnavailable
	}
	m.mu.Unlock()
	return m.generateEmbedding(text), nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbedder) Model() string {
	return m.model
}

func (m *MockEmbedder) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbedder) Close() error {
	return nil
}

// generateEmbedding hashes each word into a bucket and normalises the result
func (m *MockEmbedder) generateEmbedding(text string) []float32 {
	embedding := make([]float32, m.dimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		embedding[h.Sum32()%uint32(m.dimensions)]++
	}

	var norm float64
	for _, v := range embedding {
		norm += float64(v * v)
	}
	if norm == 0 {
		embedding[0] = 1
		return embedding
	}
	norm = math.Sqrt(norm)
	for i := range embedding {
		embedding[i] = float32(float64(embedding[i]) / norm)
	}
	return embedding
}

// Helper methods for testing

// FailNext makes the next n Embed calls return ErrEmbeddingUnavailable
func (m *MockEmbedder) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// Calls returns how many times Embed was invoked
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockEmbedder) SetDimensions(dim int) {
	m.dimensions = dim
}
