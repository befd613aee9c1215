package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

// Ensure RateLimitedEmbedding implements Embedder
var _ driven.Embedder = (*RateLimitedEmbedding)(nil)

// RateLimitedEmbedding throttles calls to a remote embedder.
// One batch counts as one request.
type RateLimitedEmbedding struct {
	next    driven.Embedder
	limiter *rate.Limiter
}

// NewRateLimitedEmbedding wraps next with a token bucket of perSecond
// requests and the given burst
func NewRateLimitedEmbedding(next driven.Embedder, perSecond float64, burst int) *RateLimitedEmbedding {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedEmbedding{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (r *RateLimitedEmbedding) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}

func (r *RateLimitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Embed(ctx, text)
}

func (r *RateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.next.EmbedBatch(ctx, texts)
}

func (r *RateLimitedEmbedding) Dimensions() int {
	return r.next.Dimensions()
}

func (r *RateLimitedEmbedding) Model() string {
	return r.next.Model()
}

func (r *RateLimitedEmbedding) HealthCheck(ctx context.Context) error {
	return r.next.HealthCheck(ctx)
}

func (r *RateLimitedEmbedding) Close() error {
	return r.next.Close()
}
