package usecase

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/logger"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository"
)

const (
	MaxEmailLength    = 254
	MaxPasswordLength = 200
)

// LoginRequest carries one login attempt.
type LoginRequest struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
	// RequireAdmin rejects non-admin identities as invalid credentials.
	RequireAdmin bool
}

// LoginResult is returned on success.
type LoginResult struct {
	Identity domain.Identity
	Session  IssuedSession
}

// AuthService coordinates login and logout.
type AuthService struct {
	identities port.IdentityRepository
	hasher     port.PasswordHasher
	sessions   *SessionService
	lockouts   *LockoutService
	audit      *AuditService
	recorder   SecurityRecorder
	logger     *zap.Logger

	// dummyHash is verified against when the email is unknown so both paths cost one hash.
	dummyHash string
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	identities port.IdentityRepository,
	hasher port.PasswordHasher,
	sessions *SessionService,
	lockouts *LockoutService,
	audit *AuditService,
	recorder SecurityRecorder,
	log *zap.Logger,
) (*AuthService, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	dummy, err := hasher.Hash("timing-equaliser-not-a-real-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &AuthService{
		identities: identities,
		hasher:     hasher,
		sessions:   sessions,
		lockouts:   lockouts,
		audit:      audit,
		recorder:   recorder,
		logger:     log,
		dummyHash:  dummy,
	}, nil
}

// Login verifies credentials and issues a session. Failures are
// ErrMalformedCredentials, ErrLocked or ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "auth.login")
	defer span.End()

	email := domain.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" ||
		utf8.RuneCountInString(email) > MaxEmailLength ||
		utf8.RuneCountInString(req.Password) > MaxPasswordLength {
		s.recorder.LoginAttempt(LoginOutcomeMalformed)
		return nil, ErrMalformedCredentials
	}

	if err := s.lockouts.Check(ctx, email, req.IP); err != nil {
		if errors.Is(err, ErrLocked) {
			s.recorder.LoginAttempt(LoginOutcomeLocked)
			s.recordAudit(ctx, domain.AuditActionLoginLocked, email, req, "")
			span.SetAttributes(attribute.String("auth.outcome", LoginOutcomeLocked))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, "lockout check")
		}
		return nil, err
	}

	identity, err := s.verify(ctx, email, req.Password)
	if err != nil && !errors.Is(err, ErrInvalidCredentials) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verify credentials")
		return nil, err
	}
	if err == nil && req.RequireAdmin && identity.Role != domain.RoleAdmin {
		err = ErrInvalidCredentials
	}
	if err != nil {
		return nil, s.fail(ctx, email, req)
	}

	if err := s.lockouts.RecordSuccess(ctx, email, req.IP); err != nil {
		s.logger.Warn("clear login attempts failed", zap.String("email", logger.MaskEmail(email)), zap.Error(err))
	}

	issued, err := s.sessions.Issue(ctx, *identity)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "issue session")
		return nil, err
	}

	s.recorder.LoginAttempt(LoginOutcomeSuccess)
	s.recordAudit(ctx, domain.AuditActionLoginSucceeded, email, req, "")
	span.SetAttributes(attribute.String("auth.outcome", LoginOutcomeSuccess))

	sanitized := *identity
	sanitized.PasswordHash = ""
	return &LoginResult{Identity: sanitized, Session: issued}, nil
}

func (s *AuthService) verify(ctx context.Context, email, password string) (*domain.Identity, error) {
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyHash)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	ok, err := s.hasher.Verify(password, identity.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unreadable", zap.String("identity_id", identity.ID), zap.Error(err))
		return nil, ErrInvalidCredentials
	}
	if !ok || !identity.IsActive {
		return nil, ErrInvalidCredentials
	}
	return identity, nil
}

func (s *AuthService) fail(ctx context.Context, email string, req LoginRequest) error {
	err := s.lockouts.RecordFailure(ctx, email, req.IP, domain.PasswordHint(req.Password))
	switch {
	case errors.Is(err, ErrLocked):
		s.recorder.LoginAttempt(LoginOutcomeLocked)
		s.recordAudit(ctx, domain.AuditActionLoginLocked, email, req, "threshold reached")
	case errors.Is(err, ErrInvalidCredentials):
		s.recorder.LoginAttempt(LoginOutcomeInvalid)
		s.recordAudit(ctx, domain.AuditActionLoginFailed, email, req, "")
	}
	return err
}

// Logout revokes every session of the resolved identity. A nil identity is a no-op.
func (s *AuthService) Logout(ctx context.Context, identity *domain.Identity, ip, userAgent string) error {
	if identity == nil {
		return nil
	}
	if _, err := s.sessions.RevokeAll(ctx, identity.ID, "logout"); err != nil {
		return err
	}
	s.recordAudit(ctx, domain.AuditActionLogout, identity.Email, LoginRequest{IP: ip, UserAgent: userAgent}, "")
	return nil
}

func (s *AuthService) recordAudit(ctx context.Context, action domain.AuditAction, email string, req LoginRequest, detail string) {
	s.audit.Record(ctx, domain.AuditEntry{
		Action:    action,
		Email:     email,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Detail:    detail,
	})
}
