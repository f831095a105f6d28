package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
)

// AuditLog keeps entries in insertion order.
type AuditLog struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

// NewAuditLog creates an empty audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

var _ port.AuditLog = (*AuditLog)(nil)

func (l *AuditLog) Append(_ context.Context, entry domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *AuditLog) Recent(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 {
		return nil, nil
	}
	if limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]domain.AuditEntry, 0, limit)
	for i := len(l.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

func (l *AuditLog) PurgeBefore(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.entries[:0]
	var removed int64
	for _, entry := range l.entries {
		if entry.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	l.entries = kept
	return removed, nil
}
