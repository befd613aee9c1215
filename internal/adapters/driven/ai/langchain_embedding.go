package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

// Ensure LangchainEmbedding implements Embedder
var _ driven.Embedder = (*LangchainEmbedding)(nil)

// LangchainEmbedding adapts a langchaingo embedder (Ollama, OpenAI or any
// OpenAI-compatible server) to the Embedder port
type LangchainEmbedding struct {
	embedder   embeddings.Embedder
	model      string
	dimensions int
}

// NewLangchainEmbedding wraps a langchaingo embeddings client
func NewLangchainEmbedding(client embeddings.EmbedderClient, model string, dimensions, batchSize int) (*LangchainEmbedding, error) {
	opts := []embeddings.Option{embeddings.WithStripNewLines(false)}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}

	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &LangchainEmbedding{
		embedder:   embedder,
		model:      model,
		dimensions: dimensions,
	}, nil
}

func (e *LangchainEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return vec, nil
}

func (e *LangchainEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrEmbeddingUnavailable, len(texts), len(vectors))
	}
	return vectors, nil
}

func (e *LangchainEmbedding) Dimensions() int {
	return e.dimensions
}

func (e *LangchainEmbedding) Model() string {
	return e.model
}

func (e *LangchainEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.Embed(ctx, "health check")
	return err
}

func (e *LangchainEmbedding) Close() error {
	return nil
}
