// Package notify delivers verification links, MFA codes and reset links.
// A Dispatcher renders the message and hands it to one Transport: the log,
// SMTP, a Kafka topic or an S3 outbox bucket.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/dmitrijs2005/gophguard/internal/timex"
	"github.com/google/uuid"
)

// Notifier is what the access-control services depend on.
type Notifier interface {
	SendVerificationLink(ctx context.Context, email, token string) error
	SendMFACode(ctx context.Context, email, code string) error
	SendPasswordResetLink(ctx context.Context, email, token string) error
}

type Kind string

const (
	KindVerification  Kind = "verification"
	KindMFACode       Kind = "mfa_code"
	KindPasswordReset Kind = "password_reset"
)

// Message is the rendered notification. It is also the JSON document
// written by the Kafka and S3 transports.
type Message struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// Dispatcher implements Notifier on top of a Transport.
type Dispatcher struct {
	transport Transport
	baseURL   string
	clock     timex.Clock
}

func NewDispatcher(transport Transport, baseURL string, clock timex.Clock) *Dispatcher {
	return &Dispatcher{transport: transport, baseURL: baseURL, clock: clock}
}

func (d *Dispatcher) SendVerificationLink(ctx context.Context, email, token string) error {
	link := d.link("/verify-email", token)
	return d.send(ctx, KindVerification, email, "Confirm your e-mail address",
		fmt.Sprintf("Welcome!\n\nConfirm your e-mail address by opening the link below:\n\n%s\n", link))
}

func (d *Dispatcher) SendMFACode(ctx context.Context, email, code string) error {
	return d.send(ctx, KindMFACode, email, "Your sign-in code",
		fmt.Sprintf("Your sign-in code is: %s\n\nIf you did not try to sign in, reset your password.\n", code))
}

func (d *Dispatcher) SendPasswordResetLink(ctx context.Context, email, token string) error {
	link := d.link("/reset-password", token)
	return d.send(ctx, KindPasswordReset, email, "Reset your password",
		fmt.Sprintf("Someone asked to reset the password of this account.\n\nOpen the link below to choose a new one:\n\n%s\n\nIgnore this e-mail if it was not you.\n", link))
}

// Close releases the transport when it holds connections.
func (d *Dispatcher) Close() error {
	if c, ok := d.transport.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (d *Dispatcher) link(path, token string) string {
	return d.baseURL + path + "?token=" + url.QueryEscape(token)
}

func (d *Dispatcher) send(ctx context.Context, kind Kind, to, subject, body string) error {
	msg := Message{
		ID:        uuid.NewString(),
		Kind:      kind,
		To:        to,
		Subject:   subject,
		Body:      body,
		CreatedAt: d.clock.Now(),
	}
	if err := d.transport.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s notification: %w", kind, err)
	}
	return nil
}
