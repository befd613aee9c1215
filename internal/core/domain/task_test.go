package domain

import (
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if id1 == "" || id2 == "" {
		t.Error("expected non-empty IDs")
	}
	if id1 == id2 {
		t.Error("expected unique IDs")
	}
	// Base64 URL encoding of 16 bytes = 22 chars
	if len(id1) != 22 {
		t.Errorf("expected ID length 22, got %d", len(id1))
	}
}

func TestNewIngestDocumentTask(t *testing.T) {
	task := NewIngestDocumentTask("owner-1", "doc-1")

	if task.Type != TaskTypeIngestDocument {
		t.Errorf("expected type %s, got %s", TaskTypeIngestDocument, task.Type)
	}
	if task.OwnerID != "owner-1" {
		t.Errorf("expected owner-1, got %s", task.OwnerID)
	}
	if task.DocumentID() != "doc-1" {
		t.Errorf("expected doc-1, got %s", task.DocumentID())
	}
	if task.Status != TaskStatusPending || task.MaxAttempts != 3 {
		t.Errorf("unexpected defaults %+v", task)
	}
}

func TestTask_DocumentID_NilPayload(t *testing.T) {
	task := NewTask(TaskTypePurgeTasks, "", nil)
	if task.DocumentID() != "" {
		t.Errorf("expected empty document id, got %s", task.DocumentID())
	}
}

func TestTask_CanRetry(t *testing.T) {
	tests := []struct {
		name        string
		attempts    int
		maxAttempts int
		expected    bool
	}{
		{"no attempts yet", 0, 3, true},
		{"two attempts", 2, 3, true},
		{"max attempts reached", 3, 3, false},
		{"over max attempts", 4, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{Attempts: tt.attempts, MaxAttempts: tt.maxAttempts}
			if got := task.CanRetry(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestTask_IsReady(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name         string
		status       TaskStatus
		scheduledFor time.Time
		expected     bool
	}{
		{"pending and past scheduled", TaskStatusPending, past, true},
		{"pending and future scheduled", TaskStatusPending, future, false},
		{"processing", TaskStatusProcessing, past, false},
		{"completed", TaskStatusCompleted, past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{Status: tt.status, ScheduledFor: tt.scheduledFor}
			if got := task.IsReady(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestTask_Lifecycle(t *testing.T) {
	task := NewIngestDocumentTask("owner-1", "doc-1")

	task.MarkProcessing()
	if task.Status != TaskStatusProcessing || task.Attempts != 1 || task.StartedAt == nil {
		t.Fatalf("unexpected state after MarkProcessing: %+v", task)
	}

	task.Retry("embedder down")
	if task.Status != TaskStatusPending || task.Error != "embedder down" {
		t.Fatalf("unexpected state after Retry: %+v", task)
	}
	if !task.ScheduledFor.After(time.Now()) {
		t.Error("expected retry to be scheduled in the future")
	}

	task.MarkProcessing()
	task.MarkCompleted()
	if task.Status != TaskStatusCompleted || task.Error != "" || task.CompletedAt == nil {
		t.Fatalf("unexpected state after MarkCompleted: %+v", task)
	}

	task.MarkFailed("late failure")
	if task.Status != TaskStatusFailed || task.Error != "late failure" {
		t.Fatalf("unexpected state after MarkFailed: %+v", task)
	}
}

func TestRetryBackoff(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{9, 5 * time.Minute},
		{10, 5 * time.Minute},
		{64, 5 * time.Minute},
	}

	for _, tt := range tests {
		if got := RetryBackoff(tt.attempts); got != tt.want {
			t.Errorf("RetryBackoff(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestScheduledTask(t *testing.T) {
	st := NewScheduledTask("recover-stalled", "Recover", TaskTypeRecoverStalled, time.Minute)
	now := time.Now()

	if st.IsDue(now) {
		t.Error("expected new schedule not to be due immediately")
	}
	if !st.IsDue(now.Add(2 * time.Minute)) {
		t.Error("expected schedule to be due after its interval")
	}

	st.Enabled = false
	if st.IsDue(now.Add(2 * time.Minute)) {
		t.Error("expected disabled schedule never to be due")
	}

	st.UpdateNextRun(now, "lock held")
	if st.LastRun == nil || !st.NextRun.Equal(now.Add(time.Minute)) || st.LastError != "lock held" {
		t.Errorf("unexpected schedule after UpdateNextRun: %+v", st)
	}
}

func TestDefaultSchedule(t *testing.T) {
	schedule := DefaultSchedule(time.Minute, time.Hour)

	if len(schedule) != 2 {
		t.Fatalf("expected 2 scheduled tasks, got %d", len(schedule))
	}
	if schedule[0].Type != TaskTypeRecoverStalled || schedule[0].Interval != time.Minute {
		t.Errorf("unexpected first schedule %+v", schedule[0])
	}
	if schedule[1].Type != TaskTypePurgeTasks || schedule[1].Interval != time.Hour {
		t.Errorf("unexpected second schedule %+v", schedule[1])
	}
}
