package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-corpus/internal/metrics"
)

// Ensure queryService implements QueryService
var _ driving.QueryService = (*queryService)(nil)

// DefaultTopK is the number of chunks retrieved when a request omits it
const DefaultTopK = 5

// QueryServiceConfig holds the dependencies of the query service.
type QueryServiceConfig struct {
	Retriever   *Retriever
	Synthesizer *Synthesizer
	DefaultTopK int
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// queryService runs retrieval then synthesis for one question
type queryService struct {
	retriever   *Retriever
	synthesizer *Synthesizer
	defaultTopK int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(cfg QueryServiceConfig) driving.QueryService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topK := cfg.DefaultTopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &queryService{
		retriever:   cfg.Retriever,
		synthesizer: cfg.Synthesizer,
		defaultTopK: topK,
		metrics:     cfg.Metrics,
		logger:      logger.With("component", "query"),
	}
}

// Ask answers a question from the owner's corpus
func (s *queryService) Ask(ctx context.Context, ownerID string, req driving.QueryRequest) (result *domain.QueryResult, err error) {
	start := time.Now()
	k := s.defaultTopK
	if req.TopK != nil {
		k = *req.TopK
	}

	defer func() {
		took := time.Since(start)
		code := domain.CodeOf(err)
		s.metrics.QueryFinished(took, string(code))
		if err != nil {
			s.logger.Warn("query failed", "owner_id", ownerID, "k", k, "code", code, "error", err)
			return
		}
		result.Took = took
		s.logger.Info("query answered",
			"owner_id", ownerID,
			"k", k,
			"sources", len(result.Sources),
			"duration", took,
		)
	}()

	retrieved, err := s.retriever.Retrieve(ctx, ownerID, req.Question, k)
	if err != nil {
		return nil, err
	}
	return s.synthesizer.Answer(ctx, ownerID, req.Question, retrieved)
}
