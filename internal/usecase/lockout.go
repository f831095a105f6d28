package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/logger"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/security"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository"
)

const tracerName = "github.com/AdamTroyan/AnjelaTroyaWeb/internal/usecase"

// UnblockPath is the route that consumes unblock tokens.
const UnblockPath = "/admin/unblock"

// LockoutConfig tunes the lockout state machine.
type LockoutConfig struct {
	Threshold int
	Expiry    domain.LockoutExpiryPolicy
	// SiteURL is the public origin used to build unblock links.
	SiteURL string
}

// LockoutService drives the per (email, address) state machine
// CLEAN -> ATTEMPTING(1..threshold-1) -> LOCKED.
type LockoutService struct {
	repo     port.LockoutRepository
	notifier port.OperatorNotifier
	events   port.EventPublisher
	audit    *AuditService
	recorder SecurityRecorder
	cfg      LockoutConfig
	logger   *zap.Logger

	now      func() time.Time
	newToken func() (string, error)
}

// LockoutOption customises a LockoutService.
type LockoutOption func(*LockoutService)

// WithLockoutClock injects the time source.
func WithLockoutClock(now func() time.Time) LockoutOption {
	return func(s *LockoutService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTokenGenerator replaces the unblock token generator.
func WithTokenGenerator(gen func() (string, error)) LockoutOption {
	return func(s *LockoutService) {
		if gen != nil {
			s.newToken = gen
		}
	}
}

// NewLockoutService constructs a LockoutService. notifier, events, audit and recorder may be nil.
func NewLockoutService(
	repo port.LockoutRepository,
	notifier port.OperatorNotifier,
	events port.EventPublisher,
	audit *AuditService,
	recorder SecurityRecorder,
	cfg LockoutConfig,
	log *zap.Logger,
	opts ...LockoutOption,
) *LockoutService {
	if cfg.Threshold <= 0 {
		cfg.Threshold = domain.DefaultLockoutThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	s := &LockoutService{
		repo:     repo,
		notifier: notifier,
		events:   events,
		audit:    audit,
		recorder: recorder,
		cfg:      cfg,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
		newToken: func() (string, error) { return security.GenerateSecureToken(security.UnblockTokenBytes) },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Threshold returns the number of failures that locks a pair.
func (s *LockoutService) Threshold() int {
	return s.cfg.Threshold
}

// Check returns ErrLocked when an active lockout exists for the email or the address.
func (s *LockoutService) Check(ctx context.Context, email, ip string) error {
	_, err := s.repo.FindActiveLockout(ctx, email, ip, s.cfg.Expiry.ActiveSince(s.now()))
	switch {
	case err == nil:
		return ErrLocked
	case errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("find lockout: %w", err)
	}
}

// RecordFailure counts a failed login. It returns ErrInvalidCredentials below
// the threshold and ErrLocked on the failure that creates the lockout.
func (s *LockoutService) RecordFailure(ctx context.Context, email, ip, passwordHint string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "lockout.record_failure")
	defer span.End()

	attempt, err := s.repo.RecordFailure(ctx, email, ip, passwordHint, s.now())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record failure")
		return fmt.Errorf("record login failure: %w", err)
	}
	span.SetAttributes(attribute.Int("lockout.attempts", attempt.Count))

	if attempt.Count < s.cfg.Threshold {
		return ErrInvalidCredentials
	}

	token, err := s.newToken()
	if err != nil {
		return fmt.Errorf("generate unblock token: %w", err)
	}

	lockout := domain.Lockout{
		TokenHash:        security.HashToken(token),
		Email:            email,
		IP:               ip,
		LastPasswordHint: passwordHint,
		CreatedAt:        s.now(),
	}
	created, err := s.repo.ConvertToLockout(ctx, lockout)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "convert to lockout")
		return fmt.Errorf("create lockout: %w", err)
	}
	if !created {
		// A concurrent failure already converted this pair.
		return ErrLocked
	}

	span.AddEvent("lockout.created")
	s.recorder.LockoutCreated()
	s.logger.Warn("login locked",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("ip", logger.MaskIP(ip)),
		zap.Int("attempts", attempt.Count),
	)

	s.announceLockout(ctx, lockout, token, attempt.Count)
	return ErrLocked
}

func (s *LockoutService) announceLockout(ctx context.Context, lockout domain.Lockout, token string, attempts int) {
	masked := logger.MaskEmail(lockout.Email)

	if s.notifier != nil {
		notification := domain.LockoutNotification{
			MaskedEmail:  masked,
			IP:           lockout.IP,
			PasswordHint: lockout.LastPasswordHint,
			Attempts:     attempts,
			UnblockURL:   s.UnblockURL(token),
			LockedAt:     lockout.CreatedAt,
		}
		if err := s.notifier.NotifyLockout(ctx, notification); err != nil {
			s.logger.Error("operator lockout notification failed, clear with authctl unblock --email",
				zap.String("email", masked),
				zap.String("ip", logger.MaskIP(lockout.IP)),
				zap.Error(err),
			)
		}
	}

	if s.events != nil {
		event := domain.LockoutCreatedEvent{
			EventID:     uuid.NewString(),
			MaskedEmail: masked,
			IP:          lockout.IP,
			Attempts:    attempts,
			LockedAt:    lockout.CreatedAt,
		}
		if err := s.events.PublishLockoutCreated(ctx, event); err != nil {
			s.logger.Warn("publish lockout created event failed", zap.Error(err))
		}
	}
}

// UnblockURL builds the operator link for token.
func (s *LockoutService) UnblockURL(token string) string {
	base := strings.TrimRight(strings.TrimSpace(s.cfg.SiteURL), "/")
	return base + UnblockPath + "?token=" + url.QueryEscape(token)
}

// RecordSuccess clears the failure counter for the pair.
func (s *LockoutService) RecordSuccess(ctx context.Context, email, ip string) error {
	if err := s.repo.ClearAttempts(ctx, email, ip); err != nil {
		return fmt.Errorf("clear login attempts: %w", err)
	}
	return nil
}

// Unblock consumes a one-time token. clearedBy names the channel (link, cli).
func (s *LockoutService) Unblock(ctx context.Context, token, clearedBy string) (*domain.Lockout, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnblockTokenRequired
	}
	if !security.WellFormedUnblockToken(token) {
		return nil, ErrUnblockTokenInvalid
	}

	lockout, err := s.repo.ConsumeLockout(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnblockTokenInvalid
		}
		return nil, fmt.Errorf("consume lockout: %w", err)
	}

	s.announceCleared(ctx, *lockout, clearedBy)
	return lockout, nil
}

// ClearLockouts removes every lockout for the email or the address without a
// token. It is the operator path when the unblock link never arrived.
func (s *LockoutService) ClearLockouts(ctx context.Context, email, ip, clearedBy string) ([]domain.Lockout, error) {
	email = domain.NormalizeEmail(email)
	ip = strings.TrimSpace(ip)
	if email == "" && ip == "" {
		return nil, ErrLockoutTargetRequired
	}

	removed, err := s.repo.ConsumeLockoutsFor(ctx, email, ip)
	if err != nil {
		return nil, fmt.Errorf("consume lockouts: %w", err)
	}
	if len(removed) == 0 {
		return nil, ErrLockoutNotFound
	}

	for _, lockout := range removed {
		s.announceCleared(ctx, lockout, clearedBy)
	}
	return removed, nil
}

func (s *LockoutService) announceCleared(ctx context.Context, lockout domain.Lockout, clearedBy string) {
	now := s.now()
	masked := logger.MaskEmail(lockout.Email)
	s.recorder.LockoutCleared()
	s.logger.Info("lockout cleared",
		zap.String("email", masked),
		zap.String("ip", logger.MaskIP(lockout.IP)),
		zap.String("cleared_by", clearedBy),
	)

	s.audit.Record(ctx, domain.AuditEntry{
		Action:    domain.AuditActionUnblock,
		Email:     lockout.Email,
		IP:        lockout.IP,
		Detail:    "cleared_by=" + clearedBy,
		CreatedAt: now,
	})

	if s.events != nil {
		event := domain.LockoutClearedEvent{
			EventID:     uuid.NewString(),
			MaskedEmail: masked,
			IP:          lockout.IP,
			ClearedAt:   now,
			ClearedBy:   clearedBy,
		}
		if err := s.events.PublishLockoutCleared(ctx, event); err != nil {
			s.logger.Warn("publish lockout cleared event failed", zap.Error(err))
		}
	}
}

// Status reports the state machine position for the pair.
func (s *LockoutService) Status(ctx context.Context, email, ip string) (domain.LockoutStatus, error) {
	lockout, err := s.repo.FindActiveLockout(ctx, email, ip, s.cfg.Expiry.ActiveSince(s.now()))
	switch {
	case err == nil:
		return domain.LockoutStatus{State: domain.LockoutStateLocked, Lockout: lockout}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return domain.LockoutStatus{}, fmt.Errorf("find lockout: %w", err)
	}

	attempt, err := s.repo.GetAttempt(ctx, email, ip)
	switch {
	case err == nil:
		return domain.LockoutStatus{State: domain.LockoutStateAttempting, Attempts: attempt.Count}, nil
	case errors.Is(err, repository.ErrNotFound):
		return domain.LockoutStatus{State: domain.LockoutStateClean}, nil
	default:
		return domain.LockoutStatus{}, fmt.Errorf("load login attempts: %w", err)
	}
}

// PurgeExpired deletes lockouts past the TTL. Under the manual policy it is a no-op.
func (s *LockoutService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.cfg.Expiry.ActiveSince(s.now())
	if cutoff.IsZero() {
		return 0, nil
	}
	removed, err := s.repo.PurgeLockouts(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge lockouts: %w", err)
	}
	return removed, nil
}

// PurgeAttempts deletes stale failure counters.
func (s *LockoutService) PurgeAttempts(ctx context.Context, before time.Time) (int64, error) {
	removed, err := s.repo.PurgeAttempts(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("purge login attempts: %w", err)
	}
	return removed, nil
}
