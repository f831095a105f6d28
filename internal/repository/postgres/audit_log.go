package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
)

// AuditLogRepository stores audit entries in auth.audit_log.
type AuditLogRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditLogRepository wires a PostgreSQL-backed audit log.
func NewAuditLogRepository(exec pgExecutor) *AuditLogRepository {
	return &AuditLogRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var _ port.AuditLog = (*AuditLogRepository)(nil)

// Append inserts one entry, assigning an id and timestamp when missing.
func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.
		Insert("auth.audit_log").
		Columns("id", "action", "email", "ip", "user_agent", "detail", "created_at").
		Values(entry.ID, string(entry.Action), entry.Email, entry.IP, entry.UserAgent, entry.Detail, entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *AuditLogRepository) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	stmt, args, err := r.builder.
		Select("id", "action", "email", "ip", "user_agent", "detail", "created_at").
		From("auth.audit_log").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select audit entries sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0, limit)
	for rows.Next() {
		var (
			entry  domain.AuditEntry
			action string
		)
		if err := rows.Scan(&entry.ID, &action, &entry.Email, &entry.IP, &entry.UserAgent, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.Action = domain.AuditAction(action)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

// PurgeBefore deletes entries older than the cutoff.
func (r *AuditLogRepository) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	stmt, args, err := r.builder.
		Delete("auth.audit_log").
		Where(squirrel.Lt{"created_at": before.UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge audit sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
