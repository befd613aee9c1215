package driving

import (
	"context"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// QueryRequest asks a question of the owner's corpus
type QueryRequest struct {
	Question string `json:"question"`
	// TopK is the number of chunks to retrieve. Nil means the configured default.
	TopK *int `json:"top_k,omitempty"`
}

// QueryService answers questions from an owner's corpus
type QueryService interface {
	// Ask retrieves relevant chunks and synthesizes a grounded answer.
	// A *domain.GenerationError carries the citations when only generation failed.
	Ask(ctx context.Context, ownerID string, req QueryRequest) (*domain.QueryResult, error)
}
