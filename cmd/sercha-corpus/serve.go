package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sercha-corpus/internal/config"
)

// Run modes
const (
	modeAPI    = "api"
	modeWorker = "worker"
	modeAll    = "all"
)

var migrateOnStart bool

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "apply the database schema before serving")
}

var serveCmd = &cobra.Command{
	Use:   "serve [api|worker|all]",
	Short: "Run the HTTP API, the ingestion worker, or both",
	Long: `Run the service.

  api     HTTP API only; documents are queued for a separate worker
  worker  ingestion worker and scheduler only
  all     both in one process (default, or $RUN_MODE)

Examples:
  # Everything in one process
  sercha-corpus serve

  # Split deployment
  sercha-corpus serve api
  sercha-corpus serve worker`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{modeAPI, modeWorker, modeAll},
	RunE:      runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	mode := os.Getenv("RUN_MODE")
	if len(args) == 1 {
		mode = args[0]
	}
	if mode == "" {
		mode = modeAll
	}
	if mode != modeAPI && mode != modeWorker && mode != modeAll {
		return fmt.Errorf("unknown mode %q (use: api, worker or all)", mode)
	}

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err := checkSplitMode(mode, cfg); err != nil {
		return err
	}
	logger.Info("sercha-corpus starting", "version", version, "mode", mode)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, migrateOnStart)
	if err != nil {
		return err
	}
	defer a.Close()

	// The memory index starts empty while documents persist in Postgres
	if cfg.Index.Backend == backendMemory {
		if _, err := a.pipeline.Rebuild(ctx); err != nil {
			return fmt.Errorf("rebuild memory index: %w", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)

	if mode == modeWorker || mode == modeAll {
		group.Go(func() error {
			return a.runWorker(ctx)
		})
	}
	if mode == modeAPI || mode == modeAll {
		group.Go(func() error {
			return a.newServer().Start(ctx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("sercha-corpus stopped")
	return nil
}

// checkSplitMode rejects in-process backends when API and worker run as
// separate processes, since neither side would see the other's state.
func checkSplitMode(mode string, cfg *config.Config) error {
	if mode == modeAll {
		return nil
	}
	if cfg.Index.Backend == backendMemory {
		return fmt.Errorf("serve %s needs a shared index backend, got %q", mode, cfg.Index.Backend)
	}
	if cfg.Events.Backend == backendMemory {
		return fmt.Errorf("serve %s needs the redis or nats event backend, got %q", mode, cfg.Events.Backend)
	}
	return nil
}
