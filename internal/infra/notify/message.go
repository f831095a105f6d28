package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
)

type lockoutMessage struct {
	Subject string
	Text    string
	HTML    string
}

func renderLockout(n domain.LockoutNotification) lockoutMessage {
	lockedAt := n.LockedAt
	if lockedAt.IsZero() {
		lockedAt = time.Now()
	}
	when := lockedAt.UTC().Format(time.RFC1123)

	subject := fmt.Sprintf("Admin login locked after %d failed attempts", n.Attempts)

	var text strings.Builder
	fmt.Fprintf(&text, "Admin login was locked after %d failed attempts.\n\n", n.Attempts)
	fmt.Fprintf(&text, "Account: %s\n", n.MaskedEmail)
	fmt.Fprintf(&text, "Address: %s\n", n.IP)
	fmt.Fprintf(&text, "Password: %s\n", n.PasswordHint)
	fmt.Fprintf(&text, "Time: %s\n\n", when)
	fmt.Fprintf(&text, "Unblock: %s\n\n", n.UnblockURL)
	text.WriteString("The link works once. Ignore it to keep the lockout in place.\n")

	var body strings.Builder
	fmt.Fprintf(&body, "<p>Admin login was locked after <strong>%d</strong> failed attempts.</p>", n.Attempts)
	body.WriteString("<ul>")
	fmt.Fprintf(&body, "<li>Account: %s</li>", html.EscapeString(n.MaskedEmail))
	fmt.Fprintf(&body, "<li>Address: %s</li>", html.EscapeString(n.IP))
	fmt.Fprintf(&body, "<li>Password: %s</li>", html.EscapeString(n.PasswordHint))
	fmt.Fprintf(&body, "<li>Time: %s</li>", html.EscapeString(when))
	body.WriteString("</ul>")
	fmt.Fprintf(&body, `<p><a href="%s">Unblock</a></p>`, html.EscapeString(n.UnblockURL))
	body.WriteString("<p>The link works once. Ignore it to keep the lockout in place.</p>")

	return lockoutMessage{Subject: subject, Text: text.String(), HTML: body.String()}
}
