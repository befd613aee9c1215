package driven

import (
	"context"
)

// Embedder maps text to a fixed-length vector.
// Failures to reach the underlying model are reported as
// domain.ErrEmbeddingUnavailable.
type Embedder interface {
	// Embed generates the embedding of a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for texts, in input order.
	// It is equivalent to calling Embed for each text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// Model returns the model name being used
	Model() string

	// HealthCheck verifies the embedder is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedder
	Close() error
}
