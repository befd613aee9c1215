package driven

import (
	"context"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
)

// TaskQueue feeds ingestion and maintenance tasks to the workers.
// Redis streams and a Postgres table both implement it; delivery is at
// least once, so handlers must tolerate a task arriving twice.
type TaskQueue interface {
	// Enqueue schedules one task
	Enqueue(ctx context.Context, task *domain.Task) error

	// EnqueueBatch schedules tasks all or nothing
	EnqueueBatch(ctx context.Context, tasks []*domain.Task) error

	// Dequeue claims the next due task. Nil, nil means nothing is due.
	Dequeue(ctx context.Context) (*domain.Task, error)

	// DequeueWithTimeout waits up to timeout seconds for a due task.
	// Nil, nil means the wait ran out.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack marks a claimed task completed
	Ack(ctx context.Context, taskID string) error

	// Nack puts a claimed task back with backoff, or fails it once its
	// attempts are used up
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask returns a task or ErrNotFound
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// PurgeTasks drops finished tasks older than olderThan seconds and
	// returns how many went
	PurgeTasks(ctx context.Context, olderThan int) (int, error)

	// Stats reports queue depth for health checks
	Stats(ctx context.Context) (*QueueStats, error)

	Ping(ctx context.Context) error
	Close() error
}

// QueueStats is a point-in-time view of the queue
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	FailedCount     int64 `json:"failed_count"`
	// OldestPendingAge is in seconds; 0 when nothing waits
	OldestPendingAge int64 `json:"oldest_pending_age"`
}
