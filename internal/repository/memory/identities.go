package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository"
)

// IdentityRepository keeps identities in process memory.
type IdentityRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Identity
	byEmail map[string]string
	now     func() time.Time
}

// NewIdentityRepository creates an empty repository.
func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{
		byID:    make(map[string]*domain.Identity),
		byEmail: make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ port.IdentityRepository = (*IdentityRepository)(nil)

func (r *IdentityRepository) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *identity
	return &copied, nil
}

func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	r.mu.RLock()
	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *IdentityRepository) Upsert(_ context.Context, identity domain.Identity) (*domain.Identity, error) {
	email := domain.NormalizeEmail(identity.Email)
	if email == "" || identity.PasswordHash == "" {
		return nil, repository.ErrInvalidInput
	}
	if identity.Role == "" {
		identity.Role = domain.RoleUser
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byEmail[email]; ok {
		existing := r.byID[id]
		if existing.PasswordHash != identity.PasswordHash {
			existing.TokenVersion++
		}
		existing.PasswordHash = identity.PasswordHash
		existing.Role = identity.Role
		existing.IsActive = identity.IsActive
		existing.UpdatedAt = now
		copied := *existing
		return &copied, nil
	}

	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	identity.Email = email
	identity.TokenVersion = 0
	identity.CreatedAt = now
	identity.UpdatedAt = now

	stored := identity
	r.byID[stored.ID] = &stored
	r.byEmail[email] = stored.ID

	copied := stored
	return &copied, nil
}

func (r *IdentityRepository) IncrementTokenVersion(_ context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.byID[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	identity.TokenVersion++
	identity.UpdatedAt = r.now()
	return identity.TokenVersion, nil
}
