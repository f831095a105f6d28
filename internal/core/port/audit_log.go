package port

import (
	"context"
	"time"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
)

// AuditLog stores append-only security audit entries.
type AuditLog interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
	PurgeBefore(ctx context.Context, before time.Time) (int64, error)
}
