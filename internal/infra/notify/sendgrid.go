package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
)

const senderName = "AnjelaWeb"

// SendGridNotifier delivers notifications through the SendGrid v3 API.
type SendGridNotifier struct {
	apiKey  string
	baseURL string
	from    string
	to      string
}

func NewSendGridNotifier(cfg config.SendGridSettings, from, to string) *SendGridNotifier {
	return &SendGridNotifier{apiKey: cfg.APIKey, from: from, to: to}
}

func (n *SendGridNotifier) NotifyLockout(ctx context.Context, notification domain.LockoutNotification) error {
	msg := renderLockout(notification)

	message := mail.NewSingleEmail(
		mail.NewEmail(senderName, n.from),
		msg.Subject,
		mail.NewEmail("Operator", n.to),
		msg.Text,
		msg.HTML,
	)

	// A client per send: SendWithContext stores the body on the request.
	client := sendgrid.NewSendClient(n.apiKey)
	if n.baseURL != "" {
		client.BaseURL = n.baseURL
	}

	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: unexpected status %d", response.StatusCode)
	}
	return nil
}

var _ port.OperatorNotifier = (*SendGridNotifier)(nil)
