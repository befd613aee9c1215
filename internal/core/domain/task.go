package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID returns 128 random bits, URL-safe base64 encoded.
func GenerateID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

type TaskType string

const (
	TaskTypeIngestDocument TaskType = "ingest_document"
	// TaskTypeRecoverStalled re-enqueues documents stuck before a terminal status
	TaskTypeRecoverStalled TaskType = "recover_stalled"
	// TaskTypePurgeTasks drops finished tasks past the retention age
	TaskTypePurgeTasks TaskType = "purge_tasks"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

const (
	defaultMaxAttempts = 3
	maxRetryBackoff    = 5 * time.Minute
	payloadDocumentID  = "document_id"
)

// Task is one unit of queued work. OwnerID is empty for maintenance tasks.
// A task is only dequeued once ScheduledFor has passed.
type Task struct {
	ID       string            `json:"id"`
	Type     TaskType          `json:"type"`
	OwnerID  string            `json:"owner_id"`
	Payload  map[string]string `json:"payload"`
	Status   TaskStatus        `json:"status"`
	Priority int               `json:"priority"`

	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	Error       string `json:"error,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ScheduledFor time.Time  `json:"scheduled_for"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

func NewTask(taskType TaskType, ownerID string, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		OwnerID:      ownerID,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  defaultMaxAttempts,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

func NewIngestDocumentTask(ownerID, documentID string) *Task {
	return NewTask(TaskTypeIngestDocument, ownerID, map[string]string{payloadDocumentID: documentID})
}

// DocumentID is empty for tasks that do not target a document
func (t *Task) DocumentID() string {
	return t.Payload[payloadDocumentID]
}

func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// IsReady reports whether a pending task may be handed to a worker now
func (t *Task) IsReady() bool {
	return t.Status == TaskStatusPending && !time.Now().Before(t.ScheduledFor)
}

// MarkProcessing counts an attempt
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.Attempts++
	t.StartedAt = &now
	t.UpdatedAt = now
}

func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.Error = ""
	t.CompletedAt = &now
	t.UpdatedAt = now
}

func (t *Task) MarkFailed(reason string) {
	t.Status = TaskStatusFailed
	t.Error = reason
	t.UpdatedAt = time.Now()
}

// Retry returns the task to pending, due after RetryBackoff(Attempts)
func (t *Task) Retry(reason string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.Error = reason
	t.UpdatedAt = now
	t.ScheduledFor = now.Add(RetryBackoff(t.Attempts))
}

// RetryBackoff doubles from one second and stops growing at five minutes.
func RetryBackoff(attempts int) time.Duration {
	// 2^9 s already exceeds the cap
	if attempts >= 9 {
		return maxRetryBackoff
	}
	return min(time.Second<<max(attempts, 0), maxRetryBackoff)
}

// ScheduledTask is a recurring entry in the worker's maintenance schedule.
type ScheduledTask struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Type      TaskType      `json:"type"`
	Interval  time.Duration `json:"interval"`
	Enabled   bool          `json:"enabled"`
	NextRun   time.Time     `json:"next_run"`
	LastRun   *time.Time    `json:"last_run,omitempty"`
	LastError string        `json:"last_error,omitempty"`
}

// NewScheduledTask is first due one interval from now
func NewScheduledTask(id, name string, taskType TaskType, interval time.Duration) *ScheduledTask {
	return &ScheduledTask{
		ID:       id,
		Name:     name,
		Type:     taskType,
		Interval: interval,
		Enabled:  true,
		NextRun:  time.Now().Add(interval),
	}
}

func (s *ScheduledTask) IsDue(now time.Time) bool {
	return s.Enabled && !now.Before(s.NextRun)
}

// UpdateNextRun records a run at now
func (s *ScheduledTask) UpdateNextRun(now time.Time, lastErr string) {
	s.LastRun = &now
	s.LastError = lastErr
	s.NextRun = now.Add(s.Interval)
}

// DefaultSchedule is the maintenance schedule every worker runs
func DefaultSchedule(recoverEvery, purgeEvery time.Duration) []*ScheduledTask {
	return []*ScheduledTask{
		NewScheduledTask("recover-stalled", "Recover stalled ingestions", TaskTypeRecoverStalled, recoverEvery),
		NewScheduledTask("purge-tasks", "Purge finished tasks", TaskTypePurgeTasks, purgeEvery),
	}
}
