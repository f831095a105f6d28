package memory

import (
	"context"
	"sync"
	"time"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository"
)

type pairKey struct {
	email string
	ip    string
}

// LockoutRepository keeps attempt counters and lockouts in process memory.
type LockoutRepository struct {
	mu       sync.Mutex
	attempts map[pairKey]*domain.LoginAttempt
	lockouts map[string]*domain.Lockout
}

// NewLockoutRepository creates an empty repository.
func NewLockoutRepository() *LockoutRepository {
	return &LockoutRepository{
		attempts: make(map[pairKey]*domain.LoginAttempt),
		lockouts: make(map[string]*domain.Lockout),
	}
}

var _ port.LockoutRepository = (*LockoutRepository)(nil)

func (r *LockoutRepository) RecordFailure(_ context.Context, email, ip, passwordHint string, at time.Time) (domain.LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{email: email, ip: ip}
	attempt, ok := r.attempts[key]
	if !ok {
		attempt = &domain.LoginAttempt{Email: email, IP: ip, FirstAttemptAt: at}
		r.attempts[key] = attempt
	}
	attempt.Count++
	attempt.LastAttemptAt = at
	attempt.LastPasswordHint = passwordHint
	return *attempt, nil
}

func (r *LockoutRepository) GetAttempt(_ context.Context, email, ip string) (*domain.LoginAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	attempt, ok := r.attempts[pairKey{email: email, ip: ip}]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *attempt
	return &copied, nil
}

func (r *LockoutRepository) ClearAttempts(_ context.Context, email, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.attempts, pairKey{email: email, ip: ip})
	return nil
}

func (r *LockoutRepository) ConvertToLockout(_ context.Context, lockout domain.Lockout) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{email: lockout.Email, ip: lockout.IP}
	if _, ok := r.attempts[key]; !ok {
		return false, nil
	}
	delete(r.attempts, key)

	stored := lockout
	r.lockouts[lockout.TokenHash] = &stored
	return true, nil
}

func (r *LockoutRepository) FindActiveLockout(_ context.Context, email, ip string, since time.Time) (*domain.Lockout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var newest *domain.Lockout
	for _, lockout := range r.lockouts {
		if lockout.Email != email && lockout.IP != ip {
			continue
		}
		if !since.IsZero() && lockout.CreatedAt.Before(since) {
			continue
		}
		if newest == nil || lockout.CreatedAt.After(newest.CreatedAt) {
			newest = lockout
		}
	}
	if newest == nil {
		return nil, repository.ErrNotFound
	}
	copied := *newest
	return &copied, nil
}

func (r *LockoutRepository) ConsumeLockout(_ context.Context, tokenHash string) (*domain.Lockout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lockout, ok := r.lockouts[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.lockouts, tokenHash)
	return lockout, nil
}

func (r *LockoutRepository) ConsumeLockoutsFor(_ context.Context, email, ip string) ([]domain.Lockout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []domain.Lockout
	for hash, lockout := range r.lockouts {
		if (email != "" && lockout.Email == email) || (ip != "" && lockout.IP == ip) {
			removed = append(removed, *lockout)
			delete(r.lockouts, hash)
		}
	}
	return removed, nil
}

func (r *LockoutRepository) PurgeLockouts(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for hash, lockout := range r.lockouts {
		if lockout.CreatedAt.Before(before) {
			delete(r.lockouts, hash)
			removed++
		}
	}
	return removed, nil
}

func (r *LockoutRepository) PurgeAttempts(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for key, attempt := range r.attempts {
		if attempt.LastAttemptAt.Before(before) {
			delete(r.attempts, key)
			removed++
		}
	}
	return removed, nil
}

// LockoutCount reports how many lockouts are stored.
func (r *LockoutRepository) LockoutCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lockouts)
}
