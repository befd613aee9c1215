package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-corpus/internal/metrics"
)

const (
	defaultEmbedBatchSize = 64
	defaultMaxEmbedDelay  = 30 * time.Second
	rebuildPageSize       = 100
)

// PipelineConfig holds the collaborators of the ingestion pipeline.
type PipelineConfig struct {
	Documents   driven.DocumentStore
	Index       driven.CorpusIndex
	Embedder    driven.Embedder
	Normalisers driven.NormaliserRegistry
	Chunker     driven.PostProcessorPipeline
	Events      driven.EventBus // Optional
	Metrics     *metrics.Metrics
	Logger      *slog.Logger

	// EmbedRetries is how many times an unavailable embedder is retried
	// before the document fails
	EmbedRetries int
	// EmbedBackoff is the first retry delay; it doubles up to MaxEmbedDelay
	EmbedBackoff  time.Duration
	MaxEmbedDelay time.Duration
	// EmbedBatchSize bounds the texts sent in one EmbedBatch call (default: 64)
	EmbedBatchSize int
}

// Pipeline turns a pending document into indexed chunks.
//
// A document moves pending -> processing -> completed | failed. Document
// level failures are recorded on the document and Process returns nil, so
// the task is acknowledged. Process returns an error only when the work
// could not be attempted (store unavailable, context cancelled); the
// document then stays in processing and a redelivered task resumes it.
type Pipeline struct {
	documents   driven.DocumentStore
	index       driven.CorpusIndex
	embedder    driven.Embedder
	normalisers driven.NormaliserRegistry
	chunker     driven.PostProcessorPipeline
	events      driven.EventBus
	metrics     *metrics.Metrics
	logger      *slog.Logger

	retries   int
	backoff   time.Duration
	maxDelay  time.Duration
	batchSize int
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates the ingestion pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	batchSize := cfg.EmbedBatchSize
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	maxDelay := cfg.MaxEmbedDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxEmbedDelay
	}
	retries := cfg.EmbedRetries
	if retries < 0 {
		retries = 0
	}

	return &Pipeline{
		documents:   cfg.Documents,
		index:       cfg.Index,
		embedder:    cfg.Embedder,
		normalisers: cfg.Normalisers,
		chunker:     cfg.Chunker,
		events:      cfg.Events,
		metrics:     cfg.Metrics,
		logger:      logger.With("component", "pipeline"),
		retries:     retries,
		backoff:     cfg.EmbedBackoff,
		maxDelay:    maxDelay,
		batchSize:   batchSize,
		sleep:       sleepContext,
	}
}

// Process ingests one document. Delivery for a terminal document is a
// no-op; delivery for a document already processing resumes it.
func (p *Pipeline) Process(ctx context.Context, documentID string) error {
	doc, err := p.documents.Get(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		p.logger.Warn("document no longer exists, skipping", "document_id", documentID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	switch doc.Status {
	case domain.DocumentStatusCompleted, domain.DocumentStatusFailed:
		p.logger.Debug("document already terminal", "document_id", doc.ID, "status", doc.Status)
		return nil
	case domain.DocumentStatusPending:
		doc, err = p.startProcessing(ctx, doc)
		if err != nil || doc == nil {
			return err
		}
	case domain.DocumentStatusProcessing:
		p.logger.Info("resuming document", "document_id", doc.ID)
	}

	start := time.Now()
	chunks, failure, err := p.build(ctx, doc)
	if err != nil {
		return err
	}
	if failure != nil {
		return p.fail(ctx, doc, failure, start)
	}

	if err := p.index.Insert(ctx, doc.OwnerID, chunks); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return p.fail(ctx, doc, err, start)
	}
	p.metrics.ChunksAdded(len(chunks))

	completed, err := p.transition(ctx, doc, domain.StatusUpdate{
		From:       domain.DocumentStatusProcessing,
		To:         domain.DocumentStatusCompleted,
		ChunkCount: len(chunks),
	})
	if errors.Is(err, domain.ErrInvalidTransition) {
		// Another delivery finished the document first
		return nil
	}
	if err != nil {
		return fmt.Errorf("complete document: %w", err)
	}

	p.metrics.IngestFinished(string(domain.DocumentStatusCompleted), time.Since(start))
	p.logger.Info("document ingested",
		"document_id", completed.ID,
		"owner_id", completed.OwnerID,
		"chunks", completed.ChunkCount,
		"duration", time.Since(start),
	)
	return nil
}

// Rebuild re-indexes every completed document from its stored payload. It
// restores an index that does not outlive the process, such as the memory
// backend, and leaves document statuses untouched. A document that can no
// longer be built is logged and skipped.
func (p *Pipeline) Rebuild(ctx context.Context) (int, error) {
	var (
		rebuilt int
		afterID string
	)
	for {
		docs, err := p.documents.ListCompleted(ctx, afterID, rebuildPageSize)
		if err != nil {
			return rebuilt, fmt.Errorf("list completed documents: %w", err)
		}
		if len(docs) == 0 {
			break
		}

		for _, doc := range docs {
			chunks, failure, err := p.build(ctx, doc)
			if err != nil {
				return rebuilt, err
			}
			if failure != nil {
				p.logger.Warn("document not rebuilt", "document_id", doc.ID, "error", failure)
				continue
			}
			if err := p.index.Insert(ctx, doc.OwnerID, chunks); err != nil {
				return rebuilt, fmt.Errorf("rebuild document %s: %w", doc.ID, err)
			}
			rebuilt++
		}
		afterID = docs[len(docs)-1].ID
	}

	p.logger.Info("index rebuilt", "documents", rebuilt)
	return rebuilt, nil
}

// startProcessing moves a pending document to processing. It returns a nil
// document when another worker already took it to a terminal status.
func (p *Pipeline) startProcessing(ctx context.Context, doc *domain.Document) (*domain.Document, error) {
	updated, err := p.transition(ctx, doc, domain.StatusUpdate{
		From: domain.DocumentStatusPending,
		To:   domain.DocumentStatusProcessing,
	})
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, domain.ErrInvalidTransition) {
		return nil, fmt.Errorf("start processing: %w", err)
	}

	current, err := p.documents.Get(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("reload document: %w", err)
	}
	if current.Status.IsTerminal() {
		return nil, nil
	}
	return current, nil
}

// build extracts, chunks and embeds the document. A non-nil failure is a
// document level error; a non-nil err means the attempt must be retried.
func (p *Pipeline) build(ctx context.Context, doc *domain.Document) (chunks []*domain.Chunk, failure, err error) {
	payload, err := p.documents.GetPayload(ctx, doc.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: source payload missing", domain.ErrMalformedDocument), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load payload: %w", err)
	}

	text, err := p.normalisers.Extract(payload, doc.MimeType)
	if err != nil {
		return nil, err, nil
	}

	pieces := p.chunker.Process(text)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("%w: no extractable text", domain.ErrMalformedDocument), nil
	}

	texts := make([]string, len(pieces))
	for i, piece := range pieces {
		texts[i] = piece.Content
	}
	vectors, err := p.embedAll(ctx, doc.ID, texts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, err, nil
	}

	now := time.Now()
	chunks = make([]*domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = &domain.Chunk{
			ID:           domain.GenerateID(),
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			OwnerID:      doc.OwnerID,
			Sequence:     i,
			Content:      piece.Content,
			Embedding:    vectors[i],
			StartOffset:  piece.StartOffset,
			EndOffset:    piece.EndOffset,
			CreatedAt:    now,
		}
	}
	return chunks, nil, nil
}

// embedAll embeds texts in batches, in order
func (p *Pipeline) embedAll(ctx context.Context, documentID string, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedWithRetry(ctx, documentID, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embedWithRetry retries ErrEmbeddingUnavailable with exponential backoff.
// Any other error is returned at once.
func (p *Pipeline) embedWithRetry(ctx context.Context, documentID string, texts []string) ([][]float32, error) {
	delay := p.backoff
	for attempt := 0; ; attempt++ {
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) || attempt >= p.retries {
			return nil, err
		}

		p.metrics.EmbedRetry()
		p.logger.Warn("embedding unavailable, retrying",
			"document_id", documentID,
			"attempt", attempt+1,
			"max_retries", p.retries,
			"delay", delay,
			"error", err,
		)
		if err := p.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay *= 2
		if delay > p.maxDelay {
			delay = p.maxDelay
		}
	}
}

// fail records cause on the document and acknowledges the work
func (p *Pipeline) fail(ctx context.Context, doc *domain.Document, cause error, start time.Time) error {
	_, err := p.transition(ctx, doc, domain.StatusUpdate{
		From:  domain.DocumentStatusProcessing,
		To:    domain.DocumentStatusFailed,
		Error: cause.Error(),
	})
	if errors.Is(err, domain.ErrInvalidTransition) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fail document: %w", err)
	}

	p.metrics.IngestFinished(string(domain.DocumentStatusFailed), time.Since(start))
	p.logger.Warn("document ingestion failed",
		"document_id", doc.ID,
		"owner_id", doc.OwnerID,
		"error", cause,
	)
	return nil
}

// transition applies a conditional status change and announces it
func (p *Pipeline) transition(ctx context.Context, doc *domain.Document, update domain.StatusUpdate) (*domain.Document, error) {
	updated, err := p.documents.UpdateStatus(ctx, doc.ID, update)
	if err != nil {
		return nil, err
	}
	p.metrics.DocumentTransition(string(update.To))
	publishDocument(ctx, p.events, p.logger, updated)
	return updated, nil
}

// publishDocument sends the document's current state to the event bus.
// Delivery is best effort.
func publishDocument(ctx context.Context, bus driven.EventBus, logger *slog.Logger, doc *domain.Document) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, domain.NewDocumentEvent(doc)); err != nil {
		logger.Warn("failed to publish document event",
			"document_id", doc.ID,
			"status", doc.Status,
			"error", err,
		)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
