// Package worker runs queued tasks: document ingestion plus the periodic
// maintenance tasks the scheduler enqueues.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-corpus/internal/core/services"
	"github.com/custodia-labs/sercha-corpus/internal/metrics"
)

const (
	// stalledBatchSize bounds how many documents one recovery task re-enqueues
	stalledBatchSize = 100

	dequeueRetryDelay = time.Second
)

// DocumentProcessor ingests one document. *services.Pipeline implements it.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID string) error
}

type taskHandler func(ctx context.Context, task *domain.Task, logger *slog.Logger) error

// WorkerConfig configures a Worker. Zero durations and counts select the
// defaults noted beside them.
type WorkerConfig struct {
	TaskQueue driven.TaskQueue
	Processor DocumentProcessor
	// Documents is read by recover_stalled
	Documents driven.DocumentStore
	// Scheduler is optional; when set it starts and stops with the worker
	Scheduler *services.Scheduler
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	Concurrency    int           // 1
	DequeueTimeout int           // 5 seconds
	StallAfter     time.Duration // 10 minutes
	PurgeOlderThan time.Duration // 7 days
	SampleEvery    time.Duration // 30 seconds
}

// Worker pulls tasks with Concurrency goroutines. Stop lets tasks already
// dequeued finish; cancelling the Start context aborts them.
type Worker struct {
	queue     driven.TaskQueue
	processor DocumentProcessor
	documents driven.DocumentStore
	scheduler *services.Scheduler
	metrics   *metrics.Metrics
	logger    *slog.Logger
	handlers  map[domain.TaskType]taskHandler

	concurrency    int
	dequeueTimeout int
	stallAfter     time.Duration
	purgeOlderThan time.Duration
	sampleEvery    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w := &Worker{
		queue:          cfg.TaskQueue,
		processor:      cfg.Processor,
		documents:      cfg.Documents,
		scheduler:      cfg.Scheduler,
		metrics:        cfg.Metrics,
		logger:         logger.With("component", "worker"),
		concurrency:    orDefault(cfg.Concurrency, 1),
		dequeueTimeout: orDefault(cfg.DequeueTimeout, 5),
		stallAfter:     orDefault(cfg.StallAfter, 10*time.Minute),
		purgeOlderThan: orDefault(cfg.PurgeOlderThan, 7*24*time.Hour),
		sampleEvery:    orDefault(cfg.SampleEvery, 30*time.Second),
	}
	w.handlers = map[domain.TaskType]taskHandler{
		domain.TaskTypeIngestDocument: w.ingestDocument,
		domain.TaskTypeRecoverStalled: w.recoverStalled,
		domain.TaskTypePurgeTasks:     w.purgeTasks,
	}
	return w
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// Start launches the loops and returns at once. Calling it on a running
// worker does nothing.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return nil
	}

	// loops watch runCtx; tasks run under ctx so Stop does not cut them short
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	w.logger.Info("worker starting", "concurrency", w.concurrency, "dequeue_timeout", w.dequeueTimeout)

	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("scheduler did not start", "error", err)
		}
	}

	var g errgroup.Group
	for id := range w.concurrency {
		g.Go(func() error {
			w.processLoop(ctx, runCtx, w.logger.With("worker_id", id))
			return nil
		})
	}
	g.Go(func() error {
		w.sampleLoop(runCtx)
		return nil
	})

	done := w.done
	go func() {
		_ = g.Wait()
		close(done)
	}()
	return nil
}

// Stop waits for in-flight tasks. It is safe to call more than once.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
	<-done

	w.mu.Lock()
	w.cancel = nil
	w.mu.Unlock()
	w.logger.Info("worker stopped")
}

func (w *Worker) processLoop(ctx, runCtx context.Context, logger *slog.Logger) {
	for runCtx.Err() == nil {
		task, err := w.queue.DequeueWithTimeout(runCtx, w.dequeueTimeout)
		switch {
		case runCtx.Err() != nil:
			return
		case err != nil:
			logger.Error("dequeue failed", "error", err)
			select {
			case <-time.After(dequeueRetryDelay):
			case <-runCtx.Done():
			}
		case task != nil:
			w.processTask(ctx, task, logger)
		}
	}
}

// processTask runs one task and settles it on the queue. Document-level
// failures are recorded on the document by the pipeline, so a nack means
// the task itself could not run.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "owner_id", task.OwnerID)
	start := time.Now()

	err := errors.New("unknown task type " + string(task.Type))
	if handle, ok := w.handlers[task.Type]; ok {
		err = handle(ctx, task, logger)
	}

	if err != nil {
		logger.Error("task failed", "duration", time.Since(start), "error", err)
		w.metrics.TaskProcessed(string(task.Type), "nack")
		if nackErr := w.queue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("nack failed", "error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", time.Since(start))
	w.metrics.TaskProcessed(string(task.Type), "ack")
	if ackErr := w.queue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("ack failed", "error", ackErr)
	}
}

func (w *Worker) ingestDocument(ctx context.Context, task *domain.Task, _ *slog.Logger) error {
	documentID := task.DocumentID()
	if documentID == "" {
		return errors.New("task payload has no document_id")
	}
	return w.processor.Process(ctx, documentID)
}

// recoverStalled re-enqueues documents that have not moved for stallAfter,
// which happens after a worker crash or a lost enqueue.
func (w *Worker) recoverStalled(ctx context.Context, _ *domain.Task, logger *slog.Logger) error {
	stalled, err := w.documents.ListStalled(ctx, time.Now().Add(-w.stallAfter), stalledBatchSize)
	if err != nil {
		return fmt.Errorf("list stalled documents: %w", err)
	}
	if len(stalled) == 0 {
		return nil
	}

	tasks := make([]*domain.Task, 0, len(stalled))
	for _, doc := range stalled {
		tasks = append(tasks, domain.NewIngestDocumentTask(doc.OwnerID, doc.ID))
	}
	if err := w.queue.EnqueueBatch(ctx, tasks); err != nil {
		return fmt.Errorf("re-enqueue stalled documents: %w", err)
	}
	logger.Warn("re-enqueued stalled documents", "count", len(tasks))
	return nil
}

func (w *Worker) purgeTasks(ctx context.Context, _ *domain.Task, logger *slog.Logger) error {
	purged, err := w.queue.PurgeTasks(ctx, int(w.purgeOlderThan.Seconds()))
	if err != nil {
		return fmt.Errorf("purge tasks: %w", err)
	}
	logger.Info("purged finished tasks", "count", purged)
	return nil
}

// sampleLoop publishes queue depth until ctx ends
func (w *Worker) sampleLoop(ctx context.Context) {
	ticker := time.NewTicker(w.sampleEvery)
	defer ticker.Stop()
	for {
		w.sample(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) sample(ctx context.Context) {
	h := w.Health(ctx)
	if !h.QueueHealth {
		if ctx.Err() == nil {
			w.logger.Warn("task queue unhealthy", "error", h.Error)
		}
		return
	}
	if h.Queue != nil {
		w.metrics.QueueSampled(h.Queue.PendingCount, h.Queue.ProcessingCount, h.Queue.FailedCount)
	}
}

// Health is a snapshot of the worker and its queue. Queue is nil when the
// queue could not report depth.
type Health struct {
	Running     bool               `json:"running"`
	QueueHealth bool               `json:"queue_health"`
	Queue       *driven.QueueStats `json:"queue,omitempty"`
	Error       string             `json:"error,omitempty"`
}

func (w *Worker) Health(ctx context.Context) Health {
	w.mu.Lock()
	h := Health{Running: w.cancel != nil}
	w.mu.Unlock()

	if err := w.queue.Ping(ctx); err != nil {
		h.Error = err.Error()
		return h
	}
	h.QueueHealth = true

	stats, err := w.queue.Stats(ctx)
	if err != nil {
		h.Error = err.Error()
		return h
	}
	h.Queue = stats
	return h
}
