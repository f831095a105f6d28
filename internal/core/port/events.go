package port

import (
	"context"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
)

// EventPublisher publishes security events to the message bus.
type EventPublisher interface {
	PublishLockoutCreated(ctx context.Context, event domain.LockoutCreatedEvent) error
	PublishLockoutCleared(ctx context.Context, event domain.LockoutClearedEvent) error
	PublishSessionsRevoked(ctx context.Context, event domain.SessionsRevokedEvent) error
}
