package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/security"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository"
)

// IssuedSession is a freshly signed session token.
type IssuedSession struct {
	Token     string
	ExpiresAt time.Time
}

// SessionService issues, resolves and revokes stateless sessions. Revocation
// relies on the identity's token version; no session rows are stored.
type SessionService struct {
	codec      *security.TokenCodec
	identities port.IdentityRepository
	events     port.EventPublisher
	recorder   SecurityRecorder
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionService constructs a SessionService. events and recorder may be nil.
func NewSessionService(codec *security.TokenCodec, identities port.IdentityRepository, events port.EventPublisher, recorder SecurityRecorder, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &SessionService{
		codec:      codec,
		identities: identities,
		events:     events,
		recorder:   recorder,
		logger:     logger,
		now:        time.Now,
	}
}

// TTL returns the session lifetime.
func (s *SessionService) TTL() time.Duration {
	return s.codec.TTL()
}

// Issue signs a token carrying the identity's id, role and current token version.
func (s *SessionService) Issue(_ context.Context, identity domain.Identity) (IssuedSession, error) {
	if identity.ID == "" {
		return IssuedSession{}, fmt.Errorf("identity id is required")
	}

	issuedAt := s.now()
	token, err := s.codec.Sign(security.SessionPayload{
		Subject:      identity.ID,
		Role:         string(identity.Role),
		TokenVersion: identity.TokenVersion,
	})
	if err != nil {
		return IssuedSession{}, fmt.Errorf("sign session: %w", err)
	}

	return IssuedSession{Token: token, ExpiresAt: issuedAt.Add(s.codec.TTL())}, nil
}

// Resolve returns the identity behind a token, or nil when the token is
// absent, invalid, expired, revoked or belongs to an inactive identity.
// Only a missing secret or a store failure is reported as an error.
func (s *SessionService) Resolve(ctx context.Context, raw string) (*domain.Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	claims, err := s.codec.Verify(raw)
	if err != nil {
		if errors.Is(err, security.ErrMissingSecret) {
			return nil, err
		}
		return nil, nil
	}

	identity, err := s.identities.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load identity: %w", err)
	}

	if !identity.IsActive || identity.TokenVersion != claims.TokenVersion {
		return nil, nil
	}

	identity.PasswordHash = ""
	return identity, nil
}

// RevokeAll bumps the identity's token version so every outstanding token
// stops resolving, and returns the new version.
func (s *SessionService) RevokeAll(ctx context.Context, identityID, reason string) (int64, error) {
	version, err := s.identities.IncrementTokenVersion(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrIdentityNotFound
		}
		return 0, fmt.Errorf("increment token version: %w", err)
	}
	s.recorder.SessionsRevoked()

	if s.events != nil {
		event := domain.SessionsRevokedEvent{
			EventID:      uuid.NewString(),
			IdentityID:   identityID,
			TokenVersion: version,
			Reason:       reason,
			RevokedAt:    s.now().UTC(),
		}
		if err := s.events.PublishSessionsRevoked(ctx, event); err != nil {
			s.logger.Warn("publish sessions revoked event failed", zap.String("identity_id", identityID), zap.Error(err))
		}
	}

	return version, nil
}
