package notify

import (
	"context"
	"fmt"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
)

// MailgunNotifier delivers notifications through the Mailgun API.
type MailgunNotifier struct {
	mg   *mailgun.MailgunImpl
	from string
	to   string
}

func NewMailgunNotifier(cfg config.MailgunSettings, from, to string) *MailgunNotifier {
	mg := mailgun.NewMailgun(cfg.Domain, cfg.APIKey)
	if cfg.APIBase != "" {
		mg.SetAPIBase(cfg.APIBase)
	}
	return &MailgunNotifier{mg: mg, from: from, to: to}
}

func (n *MailgunNotifier) NotifyLockout(ctx context.Context, notification domain.LockoutNotification) error {
	msg := renderLockout(notification)

	message := n.mg.NewMessage(n.from, msg.Subject, msg.Text, n.to)
	message.SetHtml(msg.HTML)
	_ = message.AddTag("lockout")

	if _, _, err := n.mg.Send(ctx, message); err != nil {
		return fmt.Errorf("mailgun send: %w", err)
	}
	return nil
}

var _ port.OperatorNotifier = (*MailgunNotifier)(nil)
