package postgres

import (
	"context"
	_ "embed"
	"fmt"
)

// Schema holds every credential store table.
const Schema = "auth"

// schemaLockKey serializes schema setup when several replicas start together.
const schemaLockKey int64 = 0x616e6a656c61

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the auth schema and its tables when missing. The
// statements are idempotent and run in one transaction under an advisory lock.
func EnsureSchema(ctx context.Context, pool pgPool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", schemaLockKey); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("lock schema: %w", err)
	}
	if _, err := tx.Exec(ctx, schemaSQL); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("apply schema: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
