package port

import (
	"context"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
)

// IdentityRepository exposes persistence behavior for identities.
type IdentityRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	// Upsert creates the identity or replaces password, role and active flag of the existing one with the same email.
	Upsert(ctx context.Context, identity domain.Identity) (*domain.Identity, error)
	// IncrementTokenVersion atomically bumps the token version and returns the new value.
	IncrementTokenVersion(ctx context.Context, id string) (int64, error)
}
