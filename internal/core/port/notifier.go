package port

import (
	"context"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
)

// OperatorNotifier alerts the site operator about security events.
type OperatorNotifier interface {
	NotifyLockout(ctx context.Context, notification domain.LockoutNotification) error
}
