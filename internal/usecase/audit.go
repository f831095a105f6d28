package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
)

const (
	DefaultAuditPageSize = 100
	MaxAuditPageSize     = 500
)

// AuditService records security actions. Write failures are logged and never
// fail the calling flow.
type AuditService struct {
	log    port.AuditLog
	logger *zap.Logger
	now    func() time.Time
}

// NewAuditService constructs the service. A nil log disables recording.
func NewAuditService(log port.AuditLog, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		log:    log,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record appends an entry.
func (s *AuditService) Record(ctx context.Context, entry domain.AuditEntry) {
	if s == nil || s.log == nil {
		return
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	if err := s.log.Append(ctx, entry); err != nil {
		s.logger.Warn("audit append failed", zap.String("action", string(entry.Action)), zap.Error(err))
	}
}

// Recent returns the newest entries. limit is clamped to [1, MaxAuditPageSize]
// and defaults to DefaultAuditPageSize.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if s == nil || s.log == nil {
		return []domain.AuditEntry{}, nil
	}
	switch {
	case limit <= 0:
		limit = DefaultAuditPageSize
	case limit > MaxAuditPageSize:
		limit = MaxAuditPageSize
	}

	entries, err := s.log.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	return entries, nil
}

// PurgeBefore removes entries older than the cutoff.
func (s *AuditService) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.log == nil {
		return 0, nil
	}
	removed, err := s.log.PurgeBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("purge audit entries: %w", err)
	}
	return removed, nil
}
