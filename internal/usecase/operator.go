package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository"
)

// PolicyFactory builds the password policy for an email so the policy can
// penalise passwords derived from it.
type PolicyFactory func(email string) port.PasswordPolicy

// OperatorService backs the operator CLI.
type OperatorService struct {
	identities port.IdentityRepository
	hasher     port.PasswordHasher
	policy     PolicyFactory
	sessions   *SessionService
	audit      *AuditService
}

// NewOperatorService constructs an OperatorService. A nil policy accepts any password.
func NewOperatorService(identities port.IdentityRepository, hasher port.PasswordHasher, policy PolicyFactory, sessions *SessionService, audit *AuditService) *OperatorService {
	return &OperatorService{
		identities: identities,
		hasher:     hasher,
		policy:     policy,
		sessions:   sessions,
		audit:      audit,
	}
}

// CreateUser validates the password, hashes it and upserts the identity.
// Replacing the password of an existing identity revokes its sessions.
func (s *OperatorService) CreateUser(ctx context.Context, email, password string, role domain.Role) (*domain.Identity, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || len(email) > MaxEmailLength {
		return nil, fmt.Errorf("%w: email", ErrMalformedCredentials)
	}
	if s.policy != nil {
		if err := s.policy(email).Validate(password); err != nil {
			return nil, err
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	identity, err := s.identities.Upsert(ctx, domain.Identity{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("store identity: %w", err)
	}
	identity.PasswordHash = ""
	return identity, nil
}

// RevokeSessionsByEmail bumps the token version of the identity with email.
func (s *OperatorService) RevokeSessionsByEmail(ctx context.Context, email string) (int64, error) {
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrIdentityNotFound
		}
		return 0, fmt.Errorf("lookup identity: %w", err)
	}

	version, err := s.sessions.RevokeAll(ctx, identity.ID, "operator")
	if err != nil {
		return 0, err
	}
	s.audit.Record(ctx, domain.AuditEntry{
		Action: domain.AuditActionSessionsRevoked,
		Email:  identity.Email,
		Detail: "operator",
	})
	return version, nil
}
