// Package mailer delivers plaintext emails. Callers depend on the Mailer interface;
// main picks SMTP, queued or log delivery from config.
package mailer

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrNoRecipient is returned when a message has no recipient address.
var ErrNoRecipient = errors.New("mailer: message has no recipient")

// Message is one plaintext email.
type Message struct {
	To       string
	Subject  string
	BodyText string
	// From overrides the configured sender address when set.
	From string
	// FromName overrides the configured sender name when set.
	FromName string
	// EmailType and RegistrationID tag the delivery for email_logs.
	EmailType      string
	RegistrationID uint
}

// Mailer sends a message or reports why it could not.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them (local development).
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	m.logger.Info("email (log delivery)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.BodyText),
	)
	return nil
}
