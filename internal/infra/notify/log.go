package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
)

// LogNotifier writes the notification to the log. Development only: the
// unblock link is logged.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyLockout(_ context.Context, notification domain.LockoutNotification) error {
	n.logger.Warn("operator notification: login locked",
		zap.String("email", notification.MaskedEmail),
		zap.String("ip", notification.IP),
		zap.Int("attempts", notification.Attempts),
		zap.String("unblock_url", notification.UnblockURL),
	)
	return nil
}

var _ port.OperatorNotifier = (*LogNotifier)(nil)
