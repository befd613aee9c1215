package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven/mocks"
)

func TestRateLimitedEmbedding_Delegates(t *testing.T) {
	inner := mocks.NewMockEmbedder()
	emb := NewRateLimitedEmbedding(inner, 1000, 10)

	vecs, err := emb.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("expected 2 vectors, got %d", len(vecs))
	}
	if emb.Dimensions() != inner.Dimensions() || emb.Model() != inner.Model() {
		t.Error("metadata not delegated")
	}
}

func TestRateLimitedEmbedding_WaitHonoursContext(t *testing.T) {
	inner := mocks.NewMockEmbedder()
	// One token, refilled every 100 seconds
	emb := NewRateLimitedEmbedding(inner, 0.01, 1)

	if _, err := emb.Embed(context.Background(), "first"); err != nil {
		t.Fatalf("first call should pass: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := emb.Embed(ctx, "second")
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Errorf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if inner.Calls() != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.Calls())
	}
}
