package alerting

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// EmailOptions configures the SMTP channel.
type EmailOptions struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailNotifier mails the alert to the contact address stored with it.
type EmailNotifier struct {
	from   string
	sender mailSender
	logger zerolog.Logger
	sends  sync.WaitGroup
}

// NewEmailNotifier builds an SMTP notifier.
func NewEmailNotifier(opts EmailOptions, logger zerolog.Logger) *EmailNotifier {
	port := opts.Port
	if port == 0 {
		port = 587
	}
	return &EmailNotifier{
		from:   opts.From,
		sender: gomail.NewDialer(opts.Host, port, opts.Username, opts.Password),
		logger: logger.With().Str("component", "alert_email").Logger(),
	}
}

// Notify sends one message. When ctx ends first Notify returns and the send
// finishes in the background; Close waits for it.
func (n *EmailNotifier) Notify(ctx context.Context, note Notification) error {
	if note.Contact == "" {
		return fmt.Errorf("alert %s has no contact address", note.AlertID)
	}

	name := note.ProductName
	if name == "" {
		name = note.ProductID
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", note.Contact)
	msg.SetHeader("Subject", fmt.Sprintf("Price drop: %s", name))
	msg.SetBody("text/plain", RenderMessage(note))

	done := make(chan error, 1)
	n.sends.Add(1)
	go func() {
		defer n.sends.Done()
		done <- n.sender.DialAndSend(msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send alert email: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	n.logger.Info().
		Str("alert_id", note.AlertID).
		Str("to", note.Contact).
		Msg("alert delivered (email)")
	return nil
}

// Close waits for sends that outlived their Notify call.
func (n *EmailNotifier) Close() error {
	n.sends.Wait()
	return nil
}

var (
	_ Notifier  = (*EmailNotifier)(nil)
	_ io.Closer = (*EmailNotifier)(nil)
)
