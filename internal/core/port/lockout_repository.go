package port

import (
	"context"
	"time"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
)

// LockoutRepository persists failed-login counters and lockout records.
type LockoutRepository interface {
	// RecordFailure upserts the (email, ip) counter, incrementing it atomically, and returns the stored row.
	RecordFailure(ctx context.Context, email, ip, passwordHint string, at time.Time) (domain.LoginAttempt, error)
	GetAttempt(ctx context.Context, email, ip string) (*domain.LoginAttempt, error)
	ClearAttempts(ctx context.Context, email, ip string) error
	// ConvertToLockout deletes the attempt row and stores the lockout in one transaction.
	// It reports false when no attempt row existed, meaning another caller already converted it.
	ConvertToLockout(ctx context.Context, lockout domain.Lockout) (bool, error)
	// FindActiveLockout returns a lockout matching the email or the ip created at or after since.
	FindActiveLockout(ctx context.Context, email, ip string, since time.Time) (*domain.Lockout, error)
	// ConsumeLockout deletes the lockout with the given token hash and returns it.
	ConsumeLockout(ctx context.Context, tokenHash string) (*domain.Lockout, error)
	// ConsumeLockoutsFor deletes every lockout whose email or ip matches and returns them.
	// An empty email or ip is not matched.
	ConsumeLockoutsFor(ctx context.Context, email, ip string) ([]domain.Lockout, error)
	PurgeLockouts(ctx context.Context, before time.Time) (int64, error)
	PurgeAttempts(ctx context.Context, before time.Time) (int64, error)
}
