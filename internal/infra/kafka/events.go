package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
)

const schemaVersion = "1.0"

// Event types. Topics are the event type behind the configured prefix.
const (
	EventLockoutCreated  = "security.lockout.created"
	EventLockoutCleared  = "security.lockout.cleared"
	EventSessionsRevoked = "security.sessions.revoked"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, key string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	return p.producer.Send(ctx, eventType, key, bytes)
}

// PublishLockoutCreated publishes security.lockout.created events keyed by address.
func (p *EventPublisher) PublishLockoutCreated(ctx context.Context, event domain.LockoutCreatedEvent) error {
	payload := struct {
		MaskedEmail string    `json:"masked_email"`
		IP          string    `json:"ip"`
		Attempts    int       `json:"attempts"`
		LockedAt    time.Time `json:"locked_at"`
	}{
		MaskedEmail: event.MaskedEmail,
		IP:          event.IP,
		Attempts:    event.Attempts,
		LockedAt:    event.LockedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventLockoutCreated, event.IP, event.LockedAt, payload)
}

// PublishLockoutCleared publishes security.lockout.cleared events keyed by address.
func (p *EventPublisher) PublishLockoutCleared(ctx context.Context, event domain.LockoutClearedEvent) error {
	payload := struct {
		MaskedEmail string    `json:"masked_email"`
		IP          string    `json:"ip"`
		ClearedAt   time.Time `json:"cleared_at"`
		ClearedBy   string    `json:"cleared_by"`
	}{
		MaskedEmail: event.MaskedEmail,
		IP:          event.IP,
		ClearedAt:   event.ClearedAt.UTC(),
		ClearedBy:   event.ClearedBy,
	}

	return p.publish(ctx, event.EventID, EventLockoutCleared, event.IP, event.ClearedAt, payload)
}

// PublishSessionsRevoked publishes security.sessions.revoked events keyed by identity.
func (p *EventPublisher) PublishSessionsRevoked(ctx context.Context, event domain.SessionsRevokedEvent) error {
	payload := struct {
		IdentityID   string    `json:"identity_id"`
		TokenVersion int64     `json:"token_version"`
		Reason       string    `json:"reason"`
		RevokedAt    time.Time `json:"revoked_at"`
	}{
		IdentityID:   event.IdentityID,
		TokenVersion: event.TokenVersion,
		Reason:       event.Reason,
		RevokedAt:    event.RevokedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, EventSessionsRevoked, event.IdentityID, event.RevokedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
