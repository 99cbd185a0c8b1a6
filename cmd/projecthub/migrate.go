package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"projecthub/internal/repository"
	"projecthub/pkg/db"
	"projecthub/pkg/logger"
)

var printSchema bool

func init() {
	migrateCmd.Flags().BoolVar(&printSchema, "print", false, "print the schema instead of applying it")
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the projects tables",
	Long: `Apply the embedded PostgreSQL schema. All statements are idempotent,
so running the command against an up-to-date database is a no-op.

Examples:
  # Apply against the database from config/local.yaml
  projecthub migrate

  # Show the DDL without connecting
  projecthub migrate --print`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if printSchema {
		fmt.Fprint(cmd.OutOrStdout(), repository.Schema())
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.NewLogger()
	defer log.Sync()

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		return fmt.Errorf("failed to init DB: %w", err)
	}
	defer dbConn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	return repository.Migrate(ctx, dbConn, log)
}
