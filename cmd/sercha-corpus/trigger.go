package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-corpus/internal/core/domain"
	"github.com/custodia-labs/sercha-corpus/internal/core/services"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <recover-stalled|purge-tasks>",
	Short: "Enqueue a maintenance task now",
	Long: `Put one maintenance task on the queue without waiting for the
scheduler. A running worker picks it up.

Examples:
  # Re-enqueue documents stuck in pending or processing
  sercha-corpus trigger recover-stalled

  # Drop finished tasks older than the purge age
  sercha-corpus trigger purge-tasks`,
	Args: cobra.ExactArgs(1),
	RunE: runTrigger,
}

func scheduleIDs() []string {
	var ids []string
	for _, entry := range domain.DefaultSchedule(time.Hour, time.Hour) {
		ids = append(ids, entry.ID)
	}
	return ids
}

func runTrigger(cmd *cobra.Command, args []string) error {
	id := args[0]
	if !slices.Contains(scheduleIDs(), id) {
		return fmt.Errorf("unknown task %q (want one of %v)", id, scheduleIDs())
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	a := &app{cfg: cfg, logger: logger}
	defer a.Close()
	if err := a.connectStores(ctx, false); err != nil {
		return err
	}

	scheduler := services.NewScheduler(services.SchedulerConfig{
		TaskQueue: a.taskQueue,
		Logger:    logger,
		Schedule:  domain.DefaultSchedule(cfg.Scheduler.RecoverEvery, cfg.Scheduler.PurgeEvery),
	})
	task, err := scheduler.TriggerNow(ctx, id)
	if err != nil {
		return fmt.Errorf("trigger %s: %w", id, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), task.ID)
	return nil
}
