package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/ports/driven"
)

const schedulerLockName = "scheduler"

// SchedulerConfig configures a Scheduler. Zero values select the defaults
// noted beside each field.
type SchedulerConfig struct {
	TaskQueue driven.TaskQueue
	// Lock elects one scheduler when several workers run; optional
	Lock     driven.DistributedLock
	Logger   *slog.Logger
	Schedule []*domain.ScheduledTask // DefaultSchedule(5m, 1h)

	PollInterval time.Duration // 30s
	LockTTL      time.Duration // 60s
	// LockRequired skips a cycle when the lock backend errors. It is
	// forced on whenever Lock is set.
	LockRequired bool
}

// Scheduler puts the maintenance tasks (stalled recovery and task purging)
// on the queue when they fall due. The schedule lives in memory, so a
// restarted worker runs each entry one interval after start.
type Scheduler struct {
	queue  driven.TaskQueue
	lock   driven.DistributedLock
	logger *slog.Logger
	now    func() time.Time

	interval     time.Duration
	lockTTL      time.Duration
	lockRequired bool

	mu       sync.RWMutex
	schedule []*domain.ScheduledTask
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// Apply defaults
	schedule := cfg.Schedule
	if schedule == nil {
		schedule = domain.DefaultSchedule(5*time.Minute, time.Hour)
	}

	s := &Scheduler{
		queue:        cfg.TaskQueue,
		lock:         cfg.Lock,
		logger:       logger.With("component", "scheduler"),
		now:          time.Now,
		interval:     cfg.PollInterval,
		lockTTL:      cfg.LockTTL,
		lockRequired: cfg.LockRequired || cfg.Lock != nil,
		schedule:     schedule,
	}
	if s.interval <= 0 {
		s.interval = 30 * time.Second
	}
	if s.lockTTL <= 0 {
		s.lockTTL = time.Minute
	}
	return s
}

// Start checks the schedule once right away, then every poll interval.
// A second Start while running is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	// Detach the loop so Stop can end it
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.logger.Info("scheduler starting", "poll_interval", s.interval, "tasks", len(s.schedule))

	go s.run(runCtx, s.done)
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	// Wait for the current cycle to finish
	cancel()
	<-done

	s.mu.Lock()
	s.cancel = nil
	s.mu.Unlock()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cancel != nil
}

func (s *Scheduler) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.checkAndEnqueue(ctx)

		// Wait for next tick or shutdown
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// checkAndEnqueue runs one cycle. With a lock configured only the holder
// enqueues; a due entry that fails to enqueue keeps its NextRun and is
// retried next cycle.
func (s *Scheduler) checkAndEnqueue(ctx context.Context) {
	// Only the lock holder schedules
	release, ok := s.elect(ctx)
	if !ok {
		return
	}
	if release != nil {
		defer release()
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.schedule {
		if !entry.IsDue(now) {
			continue
		}
		logger := s.logger.With("scheduled_id", entry.ID)

		// Enqueue the task
		task := domain.NewTask(entry.Type, "", nil)
		if err := s.queue.Enqueue(ctx, task); err != nil {
			logger.Error("scheduled task not enqueued", "error", err)
			entry.LastError = err.Error()
			continue
		}

		// Schedule next run
		entry.UpdateNextRun(now, "")
		logger.Info("enqueued scheduled task", "task_id", task.ID, "task_type", task.Type)
	}
}

// elect reports whether this instance may run the cycle. The returned
// func, when not nil, gives the lock back.
func (s *Scheduler) elect(ctx context.Context) (func(), bool) {
	if s.lock == nil {
		return nil, true
	}

	// Try to acquire the lock
	acquired, err := s.lock.Acquire(ctx, schedulerLockName, s.lockTTL)
	switch {
	case err != nil:
		s.logger.Warn("scheduler lock unavailable", "error", err)
		return nil, !s.lockRequired
	case !acquired:
		s.logger.Debug("another instance holds the scheduler lock")
		return nil, false
	}
	return func() {
		if err := s.lock.Release(ctx, schedulerLockName); err != nil {
			s.logger.Warn("scheduler lock not released", "error", err)
		}
	}, true
}

// ScheduledTasks returns copies of the schedule entries
func (s *Scheduler) ScheduledTasks() []domain.ScheduledTask {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ScheduledTask, 0, len(s.schedule))
	for _, entry := range s.schedule {
		out = append(out, *entry)
	}
	return out
}

// TriggerNow enqueues the entry with the given ID regardless of its
// NextRun and restarts its interval. Unknown IDs return ErrNotFound.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.schedule {
		if entry.ID != id {
			continue
		}
		task := domain.NewTask(entry.Type, "", nil)
		if err := s.queue.Enqueue(ctx, task); err != nil {
			return nil, err
		}
		entry.UpdateNextRun(s.now(), "")
		s.logger.Info("triggered scheduled task", "scheduled_id", entry.ID, "task_id", task.ID)
		return task, nil
	}
	return nil, domain.ErrNotFound
}
