package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPNotifier delivers notifications through a plain SMTP relay.
type SMTPNotifier struct {
	addr     string
	auth     smtp.Auth
	from     string
	to       string
	sendMail sendMailFunc
}

func NewSMTPNotifier(cfg config.SMTPSettings, from, to string) *SMTPNotifier {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPNotifier{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		auth:     auth,
		from:     from,
		to:       to,
		sendMail: smtp.SendMail,
	}
}

func (n *SMTPNotifier) NotifyLockout(ctx context.Context, notification domain.LockoutNotification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := n.buildMessage(renderLockout(notification))
	if err != nil {
		return fmt.Errorf("smtp build message: %w", err)
	}
	if err := n.sendMail(n.addr, n.auth, n.from, []string{n.to}, raw); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMessage renders a multipart/alternative mail with the text and HTML bodies.
func (n *SMTPNotifier) buildMessage(msg lockoutMessage) ([]byte, error) {
	var body bytes.Buffer
	parts := multipart.NewWriter(&body)
	if err := writeQuotedPart(parts, "text/plain; charset=UTF-8", strings.ReplaceAll(msg.Text, "\n", "\r\n")); err != nil {
		return nil, err
	}
	if err := writeQuotedPart(parts, "text/html; charset=UTF-8", msg.HTML); err != nil {
		return nil, err
	}
	if err := parts.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", n.to)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", parts.Boundary())
	b.WriteString("\r\n")
	b.Write(body.Bytes())
	return b.Bytes(), nil
}

func writeQuotedPart(parts *multipart.Writer, contentType, content string) error {
	w, err := parts.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {contentType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(content)); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return qp.Close()
}

var _ port.OperatorNotifier = (*SMTPNotifier)(nil)
