// Package notify delivers lockout notifications to the site operator.
package notify

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
)

const (
	ProviderLog      = "log"
	ProviderSMTP     = "smtp"
	ProviderMailgun  = "mailgun"
	ProviderSendGrid = "sendgrid"
)

// New builds the notifier selected by cfg.Provider and returns the provider name.
func New(cfg config.NotifySettings, logger *zap.Logger) (port.OperatorNotifier, string, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderLog
	}

	switch provider {
	case ProviderLog:
		return NewLogNotifier(logger), provider, nil
	case ProviderSMTP:
		return NewSMTPNotifier(cfg.SMTP, cfg.From, cfg.OperatorEmail), provider, nil
	case ProviderMailgun:
		return NewMailgunNotifier(cfg.Mailgun, cfg.From, cfg.OperatorEmail), provider, nil
	case ProviderSendGrid:
		return NewSendGridNotifier(cfg.SendGrid, cfg.From, cfg.OperatorEmail), provider, nil
	default:
		return nil, "", fmt.Errorf("unsupported notify provider %q", cfg.Provider)
	}
}
