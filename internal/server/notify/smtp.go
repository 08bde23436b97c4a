package notify

import (
	"context"

	"gopkg.in/gomail.v2"
)

// Dialer is the part of *gomail.Dialer the transport needs.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPTransport struct {
	dialer Dialer
	from   string
}

func NewSMTPTransport(host string, port int, username, password, from string) *SMTPTransport {
	return &SMTPTransport{dialer: gomail.NewDialer(host, port, username, password), from: from}
}

func NewSMTPTransportWithDialer(dialer Dialer, from string) *SMTPTransport {
	return &SMTPTransport{dialer: dialer, from: from}
}

// Deliver opens a connection per message. gomail has no context support,
// so cancellation is only checked before dialing.
func (t *SMTPTransport) Deliver(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", t.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("X-Notification-Id", msg.ID)
	m.SetBody("text/plain", msg.Body)

	return t.dialer.DialAndSend(m)
}
