package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository"
)

const recordFailureSQL = `
        INSERT INTO auth.login_attempts (email, ip, count, first_attempt_at, last_attempt_at, last_password_hint)
        VALUES ($1, $2, 1, $3, $3, $4)
        ON CONFLICT (email, ip) DO UPDATE
            SET count = auth.login_attempts.count + 1,
                last_attempt_at = EXCLUDED.last_attempt_at,
                last_password_hint = EXCLUDED.last_password_hint
        RETURNING email, ip, count, first_attempt_at, last_attempt_at, last_password_hint
    `

var lockoutColumns = []string{"token_hash", "email", "ip", "last_password_hint", "created_at"}

// LockoutRepository implements port.LockoutRepository using PostgreSQL.
type LockoutRepository struct {
	pool    pgPool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewLockoutRepository wires a PostgreSQL-backed lockout repository.
func NewLockoutRepository(pool pgPool) *LockoutRepository {
	return &LockoutRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ port.LockoutRepository = (*LockoutRepository)(nil)

// RecordFailure increments the counter for the pair, creating it on first failure.
func (r *LockoutRepository) RecordFailure(ctx context.Context, email, ip, passwordHint string, at time.Time) (domain.LoginAttempt, error) {
	var attempt domain.LoginAttempt
	row := r.exec.QueryRow(ctx, recordFailureSQL, email, ip, at.UTC(), passwordHint)
	if err := row.Scan(
		&attempt.Email,
		&attempt.IP,
		&attempt.Count,
		&attempt.FirstAttemptAt,
		&attempt.LastAttemptAt,
		&attempt.LastPasswordHint,
	); err != nil {
		return domain.LoginAttempt{}, fmt.Errorf("upsert login attempt: %w", err)
	}
	return attempt, nil
}

// GetAttempt returns the counter for the pair or repository.ErrNotFound.
func (r *LockoutRepository) GetAttempt(ctx context.Context, email, ip string) (*domain.LoginAttempt, error) {
	stmt, args, err := r.builder.
		Select("email", "ip", "count", "first_attempt_at", "last_attempt_at", "last_password_hint").
		From("auth.login_attempts").
		Where(squirrel.Eq{"email": email, "ip": ip}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select login attempt sql: %w", err)
	}

	var attempt domain.LoginAttempt
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&attempt.Email,
		&attempt.IP,
		&attempt.Count,
		&attempt.FirstAttemptAt,
		&attempt.LastAttemptAt,
		&attempt.LastPasswordHint,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan login attempt: %w", err)
	}
	return &attempt, nil
}

// ClearAttempts deletes the counter for the pair.
func (r *LockoutRepository) ClearAttempts(ctx context.Context, email, ip string) error {
	stmt, args, err := r.builder.
		Delete("auth.login_attempts").
		Where(squirrel.Eq{"email": email, "ip": ip}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete login attempt sql: %w", err)
	}
	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete login attempt: %w", err)
	}
	return nil
}

// ConvertToLockout removes the attempt row and inserts the lockout in one
// transaction. Only the caller whose DELETE removed the row inserts a lockout.
func (r *LockoutRepository) ConvertToLockout(ctx context.Context, lockout domain.Lockout) (bool, error) {
	deleteSQL, deleteArgs, err := r.builder.
		Delete("auth.login_attempts").
		Where(squirrel.Eq{"email": lockout.Email, "ip": lockout.IP}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete login attempt sql: %w", err)
	}

	insertSQL, insertArgs, err := r.builder.
		Insert("auth.login_lockouts").
		Columns(lockoutColumns...).
		Values(lockout.TokenHash, lockout.Email, lockout.IP, lockout.LastPasswordHint, lockout.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert lockout sql: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin lockout tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, deleteSQL, deleteArgs...)
	if err != nil {
		return false, fmt.Errorf("delete login attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, insertSQL, insertArgs...); err != nil {
		return false, fmt.Errorf("insert lockout: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit lockout tx: %w", err)
	}
	committed = true
	return true, nil
}

// FindActiveLockout returns the newest lockout for the email or the ip, or
// repository.ErrNotFound. A zero since disables the age filter.
func (r *LockoutRepository) FindActiveLockout(ctx context.Context, email, ip string, since time.Time) (*domain.Lockout, error) {
	query := r.builder.
		Select(lockoutColumns...).
		From("auth.login_lockouts").
		Where(squirrel.Or{squirrel.Eq{"email": email}, squirrel.Eq{"ip": ip}})
	if !since.IsZero() {
		query = query.Where(squirrel.GtOrEq{"created_at": since.UTC()})
	}

	stmt, args, err := query.OrderBy("created_at DESC").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select lockout sql: %w", err)
	}
	return scanLockout(r.exec.QueryRow(ctx, stmt, args...))
}

// ConsumeLockout deletes the lockout with tokenHash and returns it, or repository.ErrNotFound.
func (r *LockoutRepository) ConsumeLockout(ctx context.Context, tokenHash string) (*domain.Lockout, error) {
	if strings.TrimSpace(tokenHash) == "" {
		return nil, repository.ErrNotFound
	}

	stmt, args, err := r.builder.
		Delete("auth.login_lockouts").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Suffix("RETURNING " + strings.Join(lockoutColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build consume lockout sql: %w", err)
	}
	return scanLockout(r.exec.QueryRow(ctx, stmt, args...))
}

// ConsumeLockoutsFor deletes every lockout for the email or the ip and returns
// the removed rows. Empty arguments are left out of the match.
func (r *LockoutRepository) ConsumeLockoutsFor(ctx context.Context, email, ip string) ([]domain.Lockout, error) {
	match := squirrel.Or{}
	if email != "" {
		match = append(match, squirrel.Eq{"email": email})
	}
	if ip != "" {
		match = append(match, squirrel.Eq{"ip": ip})
	}
	if len(match) == 0 {
		return nil, nil
	}

	stmt, args, err := r.builder.
		Delete("auth.login_lockouts").
		Where(match).
		Suffix("RETURNING " + strings.Join(lockoutColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build consume lockouts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("delete lockouts: %w", err)
	}
	defer rows.Close()

	var removed []domain.Lockout
	for rows.Next() {
		lockout, err := scanLockout(rows)
		if err != nil {
			return nil, err
		}
		removed = append(removed, *lockout)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate removed lockouts: %w", err)
	}
	return removed, nil
}

// PurgeLockouts deletes lockouts created before the cutoff.
func (r *LockoutRepository) PurgeLockouts(ctx context.Context, before time.Time) (int64, error) {
	return r.purge(ctx, "auth.login_lockouts", "created_at", before)
}

// PurgeAttempts deletes counters whose last failure is before the cutoff.
func (r *LockoutRepository) PurgeAttempts(ctx context.Context, before time.Time) (int64, error) {
	return r.purge(ctx, "auth.login_attempts", "last_attempt_at", before)
}

func (r *LockoutRepository) purge(ctx context.Context, table, column string, before time.Time) (int64, error) {
	stmt, args, err := r.builder.
		Delete(table).
		Where(squirrel.Lt{column: before.UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge %s sql: %w", table, err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("purge %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func scanLockout(row pgx.Row) (*domain.Lockout, error) {
	var lockout domain.Lockout
	if err := row.Scan(
		&lockout.TokenHash,
		&lockout.Email,
		&lockout.IP,
		&lockout.LastPasswordHint,
		&lockout.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan lockout: %w", err)
	}
	return &lockout, nil
}
