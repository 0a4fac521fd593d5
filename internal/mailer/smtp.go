package mailer

import (
	"context"
	"fmt"

	mail "gopkg.in/mail.v2"
)

// SMTPTransport sends mail through an SMTP server with password auth.
type SMTPTransport struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewSMTPTransport creates a transport for the given SMTP account.
func NewSMTPTransport(host string, port int, user, pass, from string) *SMTPTransport {
	return &SMTPTransport{
		host: host,
		port: port,
		user: user,
		pass: pass,
		from: from,
	}
}

// Send delivers one plain-text message. Each call dials a fresh
// connection; the dialer carries its own network timeouts.
func (t *SMTPTransport) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", t.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	dialer := mail.NewDialer(t.host, t.port, t.user, t.pass)

	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}

	return nil
}
