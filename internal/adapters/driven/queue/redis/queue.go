package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

const (
	// claimAfter is how long a delivered message may stay unacknowledged
	// before another worker takes it over
	claimAfter = 5 * time.Minute

	// taskTTL bounds how long a task record survives without a purge
	taskTTL = 7 * 24 * time.Hour
)

var _ driven.TaskQueue = (*Queue)(nil)

// Queue implements TaskQueue with a Redis stream and one consumer group.
//
// Layout under the namespace:
//
//	<ns>:queue:stream         stream of {task_id} messages ready to run
//	<ns>:queue:delayed        zset of task IDs scored by ScheduledFor
//	<ns>:queue:finished       zset of completed/failed task IDs scored by finish time
//	<ns>:queue:task:<id>      hash {data: task JSON, msg: stream message ID}
type Queue struct {
	client   *redis.Client
	consumer string
	prefix   string
	logger   *slog.Logger
}

// Config configures a Redis queue
type Config struct {
	// Namespace prefixes every key (default "sercha-corpus")
	Namespace string
	// Consumer names this worker inside the consumer group
	Consumer string
	Logger   *slog.Logger
}

// NewQueue creates the queue and its consumer group
func NewQueue(ctx context.Context, client *redis.Client, cfg Config) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "sercha-corpus"
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "worker-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	q := &Queue{
		client:   client,
		consumer: cfg.Consumer,
		prefix:   cfg.Namespace + ":queue:",
		logger:   cfg.Logger,
	}

	err := client.XGroupCreateMkStream(ctx, q.stream(), q.group(), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return q, nil
}

func (q *Queue) stream() string { return q.prefix + "stream" }
func (q *Queue) group() string { return q.prefix + "workers" }
func (q *Queue) delayed() string { return q.prefix + "delayed" }
func (q *Queue) finished() string { return q.prefix + "finished" }
func (q *Queue) taskKey(id string) string { return q.prefix + "task:" + id }

// Enqueue stores the task and makes it visible now or at ScheduledFor
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	return q.EnqueueBatch(ctx, []*domain.Task{task})
}

// EnqueueBatch writes every task in one MULTI/EXEC
func (q *Queue) EnqueueBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	now := time.Now()

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, task := range tasks {
			if task == nil {
				continue
			}
			data, err := json.Marshal(task)
			if err != nil {
				return fmt.Errorf("marshal task %s: %w", task.ID, err)
			}
			pipe.HSet(ctx, q.taskKey(task.ID), "data", data)
			pipe.Expire(ctx, q.taskKey(task.ID), taskTTL)

			if task.ScheduledFor.After(now) {
				pipe.ZAdd(ctx, q.delayed(), redis.Z{Score: float64(task.ScheduledFor.Unix()), Member: task.ID})
			} else {
				pipe.XAdd(ctx, &redis.XAddArgs{Stream: q.stream(), Values: map[string]any{"task_id": task.ID}})
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return nil
}

// Dequeue blocks until a task is available or ctx ends
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return q.DequeueWithTimeout(ctx, 0)
}

// DequeueWithTimeout waits up to timeout seconds (0 blocks until ctx ends).
// It returns nil, nil when nothing arrived.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if err := q.promoteDue(ctx); err != nil {
		q.logger.Warn("promote delayed tasks", "error", err)
	}

	if task, err := q.claimStale(ctx); err != nil {
		q.logger.Debug("claim stale tasks", "error", err)
	} else if task != nil {
		return task, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group(),
		Consumer: q.consumer,
		Streams:  []string{q.stream(), ">"},
		Count:    1,
		Block:    time.Duration(timeout) * time.Second,
	}).Result()
	switch {
	case errors.Is(err, redis.Nil), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("read stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return q.take(ctx, streams[0].Messages[0])
}

// take loads the task behind a delivered message and marks it processing.
// Messages whose task is gone or no longer pending are acknowledged and
// dropped.
func (q *Queue) take(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	taskID, _ := msg.Values["task_id"].(string)
	task, err := q.GetTask(ctx, taskID)
	if errors.Is(err, domain.ErrNotFound) {
		q.client.XAck(ctx, q.stream(), q.group(), msg.ID)
		q.client.XDel(ctx, q.stream(), msg.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskStatusPending {
		// cancelled or already finished
		q.client.XAck(ctx, q.stream(), q.group(), msg.ID)
		q.client.XDel(ctx, q.stream(), msg.ID)
		return nil, nil
	}

	task.MarkProcessing()
	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	if err := q.client.HSet(ctx, q.taskKey(task.ID), "data", data, "msg", msg.ID).Err(); err != nil {
		return nil, fmt.Errorf("mark task processing: %w", err)
	}
	return task, nil
}

// Ack completes a task and removes its stream message
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	task, msgID, err := q.load(ctx, taskID)
	if err != nil {
		return err
	}
	task.MarkCompleted()
	return q.finish(ctx, task, msgID)
}

// Nack schedules a retry with backoff, or fails the task when attempts
// are exhausted
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, msgID, err := q.load(ctx, taskID)
	if err != nil {
		return err
	}

	if !task.CanRetry() {
		task.MarkFailed(reason)
		return q.finish(ctx, task, msgID)
	}

	task.Retry(reason)
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if msgID != "" {
			pipe.XAck(ctx, q.stream(), q.group(), msgID)
			pipe.XDel(ctx, q.stream(), msgID)
		}
		pipe.HSet(ctx, q.taskKey(taskID), "data", data)
		pipe.HDel(ctx, q.taskKey(taskID), "msg")
		pipe.ZAdd(ctx, q.delayed(), redis.Z{Score: float64(task.ScheduledFor.Unix()), Member: taskID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("nack task: %w", err)
	}
	return nil
}

// finish stores a terminal task and indexes it for purging
func (q *Queue) finish(ctx context.Context, task *domain.Task, msgID string) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if msgID != "" {
			pipe.XAck(ctx, q.stream(), q.group(), msgID)
			pipe.XDel(ctx, q.stream(), msgID)
		}
		pipe.HSet(ctx, q.taskKey(task.ID), "data", data)
		pipe.HDel(ctx, q.taskKey(task.ID), "msg")
		pipe.ZAdd(ctx, q.finished(), redis.Z{Score: float64(task.UpdatedAt.Unix()), Member: task.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("finish task %s: %w", task.ID, err)
	}
	return nil
}

func (q *Queue) load(ctx context.Context, taskID string) (*domain.Task, string, error) {
	fields, err := q.client.HMGet(ctx, q.taskKey(taskID), "data", "msg").Result()
	if err != nil {
		return nil, "", fmt.Errorf("load task: %w", err)
	}
	raw, _ := fields[0].(string)
	if raw == "" {
		return nil, "", fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	var task domain.Task
	if err := json.Unmarshal([]byte(raw), &task); err != nil {
		return nil, "", fmt.Errorf("decode task %s: %w", taskID, err)
	}
	msgID, _ := fields[1].(string)
	return &task, msgID, nil
}

// GetTask returns a task by ID or ErrNotFound
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	task, _, err := q.load(ctx, taskID)
	return task, err
}

// PurgeTasks deletes finished tasks older than olderThan seconds
func (q *Queue) PurgeTasks(ctx context.Context, olderThan int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThan) * time.Second).Unix()
	ids, err := q.client.ZRangeByScore(ctx, q.finished(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff, 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("list finished tasks: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	members := make([]any, len(ids))
	for i, id := range ids {
		keys[i] = q.taskKey(id)
		members[i] = id
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRem(ctx, q.finished(), members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("purge tasks: %w", err)
	}
	return len(ids), nil
}

// Stats reports queue depth. Completed and failed counts cover tasks not
// yet purged.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}

	ready, err := q.client.XLen(ctx, q.stream()).Result()
	if err != nil {
		return nil, fmt.Errorf("stream length: %w", err)
	}
	delayed, err := q.client.ZCard(ctx, q.delayed()).Result()
	if err != nil {
		return nil, fmt.Errorf("delayed count: %w", err)
	}

	pending, err := q.client.XPending(ctx, q.stream(), q.group()).Result()
	if err == nil {
		stats.ProcessingCount = pending.Count
	}
	stats.PendingCount = ready - stats.ProcessingCount + delayed

	ids, err := q.client.ZRange(ctx, q.finished(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("finished tasks: %w", err)
	}
	for _, id := range ids {
		task, err := q.GetTask(ctx, id)
		if err != nil {
			continue
		}
		if task.Status == domain.TaskStatusCompleted {
			stats.CompletedCount++
		} else {
			stats.FailedCount++
		}
	}
	return stats, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the client is shared.
func (q *Queue) Close() error {
	return nil
}

// promoteDue moves delayed tasks whose time has come onto the stream.
// ZREM decides which worker promotes a task when several race.
func (q *Queue) promoteDue(ctx context.Context) error {
	ids, err := q.client.ZRangeByScore(ctx, q.delayed(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		return err
	}
	for _, id := range ids {
		removed, err := q.client.ZRem(ctx, q.delayed(), id).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: q.stream(), Values: map[string]any{"task_id": id}}).Err(); err != nil {
			return err
		}
	}
	return nil
}

// claimStale takes over one message another consumer left unacknowledged
// for longer than claimAfter.
func (q *Queue) claimStale(ctx context.Context) (*domain.Task, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream(),
		Group:    q.group(),
		Consumer: q.consumer,
		MinIdle:  claimAfter,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return q.take(ctx, msgs[0])
}
