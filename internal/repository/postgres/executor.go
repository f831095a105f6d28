package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgPool is an executor that can also open transactions (*pgxpool.Pool, pgxmock pools).
type pgPool interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}
