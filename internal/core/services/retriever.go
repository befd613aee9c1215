package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

const (
	// DefaultMaxTopK bounds k when no limit is configured
	DefaultMaxTopK = 50

	// keywordPoolSize caps the chunks a keyword fallback reads
	keywordPoolSize = 1000
)

// RetrieverConfig holds the collaborators of the retriever.
type RetrieverConfig struct {
	Documents driven.DocumentStore
	Index     driven.CorpusIndex
	Embedder  driven.Embedder
	Keywords  driven.KeywordRanker // Optional
	MaxTopK   int
	Logger    *slog.Logger
}

// Retriever ranks an owner's chunks against a question.
// It never retries: embedder and index failures surface immediately.
type Retriever struct {
	documents driven.DocumentStore
	index     driven.CorpusIndex
	embedder  driven.Embedder
	keywords  driven.KeywordRanker
	maxTopK   int
	logger    *slog.Logger
}

// NewRetriever creates a retriever.
func NewRetriever(cfg RetrieverConfig) *Retriever {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxTopK := cfg.MaxTopK
	if maxTopK <= 0 {
		maxTopK = DefaultMaxTopK
	}
	return &Retriever{
		documents: cfg.Documents,
		index:     cfg.Index,
		embedder:  cfg.Embedder,
		keywords:  cfg.Keywords,
		maxTopK:   maxTopK,
		logger:    logger.With("component", "retriever"),
	}
}

// Retrieve returns up to k of the owner's chunks, best first.
// It fails with ErrEmptyCorpus when the owner has no completed document and
// with ErrIndexFailure when completed documents have nothing indexed.
func (r *Retriever) Retrieve(ctx context.Context, ownerID, question string, k int) ([]*domain.ScoredChunk, error) {
	// Validate input
	if strings.TrimSpace(ownerID) == "" {
		return nil, domain.Invalid("owner is required")
	}
	if strings.TrimSpace(question) == "" {
		return nil, domain.Invalid("question must not be blank")
	}
	if k <= 0 || k > r.maxTopK {
		return nil, domain.Invalid("top_k must be between 1 and %d, got %d", r.maxTopK, k)
	}

	completed, err := r.documents.CountByStatus(ctx, ownerID, domain.DocumentStatusCompleted)
	if err != nil {
		return nil, err
	}
	if completed == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	// Completed documents without chunks mean the index lost them
	indexed, err := r.index.Count(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if indexed == 0 {
		r.logger.Error("completed documents have no indexed chunks", "owner_id", ownerID, "completed", completed)
		return nil, fmt.Errorf("%w: %d completed documents have no indexed chunks", domain.ErrIndexFailure, completed)
	}

	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	if r.keywords != nil && isZeroVector(vector) {
		return r.keywordSearch(ctx, ownerID, question, vector, min(indexed, keywordPoolSize), k)
	}

	results, err := r.index.Search(ctx, ownerID, vector, k)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("chunks retrieved", "owner_id", ownerID, "k", k, "results", len(results))
	return results, nil
}

// keywordSearch ranks a pool of the owner's chunks by term overlap. A zero
// vector scores every chunk alike, so the index order alone means nothing.
func (r *Retriever) keywordSearch(ctx context.Context, ownerID, question string, vector []float32, pool, k int) ([]*domain.ScoredChunk, error) {
	candidates, err := r.index.Search(ctx, ownerID, vector, pool)
	if err != nil {
		return nil, err
	}
	results := r.keywords.Rank(question, candidates, k)

	r.logger.Debug("chunks retrieved by keyword", "owner_id", ownerID, "k", k, "pool", len(candidates), "results", len(results))
	return results, nil
}

func isZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
