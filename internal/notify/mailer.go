// Package notify delivers user-facing notifications. Delivery is best-effort:
// callers enqueue notification jobs and the worker retries transient failures.
package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/taskflow/taskflow-backend/pkg/config"
	"github.com/taskflow/taskflow-backend/pkg/logger"
)

// Sender delivers a single notification to a recipient address.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// Mailer sends notifications over SMTP.
type Mailer struct {
	client *mail.Client
	from   string
	logger *logger.Logger
}

// NewMailer creates an SMTP mailer from config
func NewMailer(cfg *config.SMTPConfig, log *logger.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	return &Mailer{
		client: client,
		from:   cfg.From,
		logger: log.WithComponent("mailer"),
	}, nil
}

// Send delivers a plain-text email to the recipient
func (m *Mailer) Send(ctx context.Context, recipient, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	m.logger.Debug().
		Str("recipient", recipient).
		Str("subject", subject).
		Msg("notification email sent")

	return nil
}

// LogSender writes notifications to the log instead of delivering them.
// Used in development when no SMTP server is configured.
type LogSender struct {
	logger *logger.Logger
}

// NewLogSender creates a log-only sender
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{logger: log.WithComponent("mailer")}
}

// Send logs the notification and reports success
func (s *LogSender) Send(_ context.Context, recipient, subject, body string) error {
	s.logger.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Str("body", body).
		Msg("notification (log-only delivery)")
	return nil
}
