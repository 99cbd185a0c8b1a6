package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed sql/schema.sql
var schemaSQL string

// Schema returns the DDL for the projects tables.
func Schema() string {
	return schemaSQL
}

// Migrate creates the projects tables if they do not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool, logger *zap.Logger) error {
	logger.Info("Applying database schema")
	// 无参数时 pgx 走 simple protocol，可以一次执行多条语句
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("Database schema applied")
	return nil
}
