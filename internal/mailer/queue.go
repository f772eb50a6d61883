package mailer

import (
	"context"

	"github.com/mphomathabathe/Baobab/pkg/queue"
)

// Enqueuer accepts email jobs for asynchronous delivery.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// QueueMailer hands messages to the email worker through the job queue.
// A nil error means the job was accepted, not that the email was delivered.
type QueueMailer struct {
	q Enqueuer
}

// NewQueueMailer creates a queue-backed mailer.
func NewQueueMailer(q Enqueuer) *QueueMailer {
	return &QueueMailer{q: q}
}

// Send enqueues msg.
func (m *QueueMailer) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	return m.q.EnqueueEmail(ctx, PayloadFromMessage(msg))
}

// PayloadFromMessage converts a message into an email job payload.
func PayloadFromMessage(msg Message) queue.EmailPayload {
	return queue.EmailPayload{
		EmailType:      msg.EmailType,
		RegistrationID: msg.RegistrationID,
		RecipientEmail: msg.To,
		FromAddress:    msg.From,
		FromName:       msg.FromName,
		Subject:        msg.Subject,
		BodyText:       msg.BodyText,
	}
}

// MessageFromPayload is the inverse of PayloadFromMessage.
func MessageFromPayload(p queue.EmailPayload) Message {
	return Message{
		To:             p.RecipientEmail,
		Subject:        p.Subject,
		BodyText:       p.BodyText,
		From:           p.FromAddress,
		FromName:       p.FromName,
		EmailType:      p.EmailType,
		RegistrationID: p.RegistrationID,
	}
}
