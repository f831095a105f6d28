package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Used when kafka.enabled is false.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		append([]zap.Field{
			zap.String("event_type", eventType),
			zap.Time("timestamp", at.UTC()),
		}, fields...)...,
	)
}

func (p *StubPublisher) PublishLockoutCreated(_ context.Context, event domain.LockoutCreatedEvent) error {
	p.logEvent(EventLockoutCreated, event.LockedAt,
		zap.String("email", event.MaskedEmail),
		zap.Int("attempts", event.Attempts),
	)
	return nil
}

func (p *StubPublisher) PublishLockoutCleared(_ context.Context, event domain.LockoutClearedEvent) error {
	p.logEvent(EventLockoutCleared, event.ClearedAt,
		zap.String("email", event.MaskedEmail),
		zap.String("cleared_by", event.ClearedBy),
	)
	return nil
}

func (p *StubPublisher) PublishSessionsRevoked(_ context.Context, event domain.SessionsRevokedEvent) error {
	p.logEvent(EventSessionsRevoked, event.RevokedAt,
		zap.String("identity_id", event.IdentityID),
		zap.Int64("token_version", event.TokenVersion),
		zap.String("reason", event.Reason),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
