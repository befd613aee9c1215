package mocks

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

var _ driven.TextGenerator = (*MockTextGenerator)(nil)

// MockTextGenerator is a mock implementation of TextGenerator for testing
type MockTextGenerator struct {
	mu      sync.Mutex
	prompts []driven.Prompt

	GenerateFn func(ctx context.Context, prompt driven.Prompt) (string, error)
	PingFn     func(ctx context.Context) error
}

// NewMockTextGenerator creates a generator that always answers with answer
func NewMockTextGenerator(answer string) *MockTextGenerator {
	return &MockTextGenerator{
		GenerateFn: func(ctx context.Context, prompt driven.Prompt) (string, error) {
			return answer, nil
		},
	}
}

func (m *MockTextGenerator) Generate(ctx context.Context, prompt driven.Prompt) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, prompt)
	}
	return "", nil
}

func (m *MockTextGenerator) Model() string {
	return "mock-generator"
}

func (m *MockTextGenerator) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn(ctx)
	}
	return nil
}

func (m *MockTextGenerator) Close() error {
	return nil
}

// Prompts returns every prompt received, oldest first
func (m *MockTextGenerator) Prompts() []driven.Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]driven.Prompt(nil), m.prompts...)
}
