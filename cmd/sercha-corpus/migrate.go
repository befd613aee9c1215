package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-corpus/internal/adapters/driven/postgres"
)

var migrateTimeout time.Duration

func init() {
	migrateCmd.Flags().DurationVar(&migrateTimeout, "timeout", time.Minute, "maximum time to apply the schema")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the PostgreSQL schema",
	Long: `Apply the schema for users, sessions, documents and tasks.

The schema is idempotent and safe to run on every deploy. The pgvector
index creates its own table when it starts.

Examples:
  # Apply the schema to DATABASE_URL
  sercha-corpus migrate

  # Use a config file
  sercha-corpus migrate --config /etc/sercha/corpus.yaml`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
	defer cancel()

	db, err := postgres.Connect(ctx, postgresConfig(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	logger.Info("schema applied")
	return nil
}
