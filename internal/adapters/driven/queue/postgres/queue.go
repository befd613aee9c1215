package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

const (
	// pollInterval is how often a waiting Dequeue re-checks the table
	pollInterval = 500 * time.Millisecond

	// claimAfter is how long a task may stay processing before another
	// worker takes it over
	claimAfter = 5 * time.Minute
)

const taskColumns = `id, type, owner_id, payload, status, priority, attempts, max_attempts,
	error, created_at, updated_at, started_at, completed_at, scheduled_for`

var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue on the tasks table. Workers claim rows with
// FOR UPDATE SKIP LOCKED, so any number of them can poll concurrently.
// The table is created by the postgres adapter's schema.
type Queue struct {
	db *sql.DB
}

// NewQueue creates a Postgres-backed task queue
func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Enqueue inserts one task
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	return q.EnqueueBatch(ctx, []*domain.Task{task})
}

// EnqueueBatch inserts tasks with one multi-row INSERT, so either all
// of them land or none do
func (q *Queue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	var (
		values []string
		args   []any
	)
	for _, task := range tasks {
		if task == nil {
			continue
		}
		payload, err := json.Marshal(task.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload of %s: %w", task.ID, err)
		}
		n := len(args)
		placeholders := make([]string, 10)
		for i := range placeholders {
			placeholders[i] = "$" + strconv.Itoa(n+i+1)
		}
		values = append(values, "("+strings.Join(placeholders, ", ")+")")
		args = append(args,
			task.ID, string(task.Type), task.OwnerID, payload, string(task.Status),
			task.Priority, task.MaxAttempts, task.CreatedAt, task.UpdatedAt, task.ScheduledFor,
		)
	}
	if len(values) == 0 {
		return nil
	}

	query := `INSERT INTO tasks (id, type, owner_id, payload, status, priority, max_attempts,
		created_at, updated_at, scheduled_for) VALUES ` + strings.Join(values, ", ")
	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert tasks: %w", err)
	}
	return nil
}

// Dequeue waits until a task is claimed or ctx ends
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	for {
		task, err := q.claim(ctx)
		if err != nil || task != nil {
			return task, err
		}
		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(pollInterval):
		}
	}
}

// DequeueWithTimeout polls for up to timeout seconds
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if timeout <= 0 {
		return q.Dequeue(ctx)
	}
	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	task, err := q.Dequeue(waitCtx)
	if err != nil && waitCtx.Err() != nil && ctx.Err() == nil {
		// the wait ran out mid-query
		return nil, nil
	}
	return task, err
}

// claim atomically moves the best ready task to processing. Tasks left in
// processing longer than claimAfter count as ready again.
func (q *Queue) claim(ctx context.Context) (*domain.Task, error) {
	query := `
		UPDATE tasks SET
			status = 'processing',
			attempts = attempts + 1,
			started_at = NOW(),
			updated_at = NOW()
		WHERE id = (
			SELECT id FROM tasks
			WHERE (status = 'pending' AND scheduled_for <= NOW())
			   OR (status = 'processing' AND started_at < NOW() - $1::interval)
			ORDER BY priority DESC, scheduled_for ASC, created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + taskColumns

	task, err := scanTask(q.db.QueryRowContext(ctx, query, fmt.Sprintf("%d seconds", int(claimAfter.Seconds()))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		return nil, fmt.Errorf("claim task: %w", err)
	}
	return task, nil
}

// Ack marks a task completed
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	result, err := q.db.ExecContext(ctx, `
		UPDATE tasks SET status = 'completed', error = '', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, taskID)
	if err != nil {
		return fmt.Errorf("ack task: %w", err)
	}
	return oneRow(result, taskID)
}

// Nack schedules a retry with backoff, or fails the task once attempts
// are used up
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	var result sql.Result
	if task.CanRetry() {
		result, err = q.db.ExecContext(ctx, `
			UPDATE tasks SET status = 'pending', error = $2, updated_at = NOW(), scheduled_for = $3
			WHERE id = $1
		`, taskID, reason, time.Now().Add(domain.RetryBackoff(task.Attempts)))
	} else {
		result, err = q.db.ExecContext(ctx, `
			UPDATE tasks SET status = 'failed', error = $2, completed_at = NOW(), updated_at = NOW()
			WHERE id = $1
		`, taskID, reason)
	}
	if err != nil {
		return fmt.Errorf("nack task: %w", err)
	}
	return oneRow(result, taskID)
}

// GetTask retrieves a task by ID
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := scanTask(q.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	return task, err
}

// PurgeTasks deletes completed and failed tasks older than olderThan seconds
func (q *Queue) PurgeTasks(ctx context.Context, olderThan int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThan) * time.Second)
	result, err := q.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE status IN ('completed', 'failed') AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge tasks: %w", err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// Stats counts tasks per status and the age of the oldest pending one
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}
	var oldest sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			EXTRACT(EPOCH FROM (NOW() - MIN(created_at) FILTER (WHERE status = 'pending')))::bigint
		FROM tasks
	`).Scan(&stats.PendingCount, &stats.ProcessingCount, &stats.CompletedCount, &stats.FailedCount, &oldest)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	stats.OldestPendingAge = oldest.Int64
	return stats, nil
}

// Ping checks database connectivity
func (q *Queue) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to the caller
func (q *Queue) Close() error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task                   domain.Task
		taskType, status       string
		payload                []byte
		errText                sql.NullString
		startedAt, completedAt sql.NullTime
	)
	err := row.Scan(
		&task.ID, &taskType, &task.OwnerID, &payload, &status, &task.Priority,
		&task.Attempts, &task.MaxAttempts, &errText, &task.CreatedAt, &task.UpdatedAt,
		&startedAt, &completedAt, &task.ScheduledFor,
	)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, fmt.Errorf("decode payload of %s: %w", task.ID, err)
		}
	}
	task.Type = domain.TaskType(taskType)
	task.Status = domain.TaskStatus(status)
	task.Error = errText.String
	if startedAt.Valid {
		task.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return &task, nil
}

func oneRow(result sql.Result, taskID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	return nil
}
