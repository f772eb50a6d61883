package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mphomathabathe/Baobab/internal/mailer"
	"github.com/mphomathabathe/Baobab/internal/models"
	"github.com/mphomathabathe/Baobab/pkg/queue"
)

// JobSource is the queue side the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// EmailLogStore records delivery attempts.
type EmailLogStore interface {
	Create(ctx context.Context, el *models.EmailLog) error
}

// EmailProcessor delivers emails and records each attempt in email_logs. With a JobSource it
// drains the queue (Run); without one it is used directly as a Mailer.
type EmailProcessor struct {
	mailer  mailer.Mailer
	logs    EmailLogStore
	queue   JobSource
	logger  *zap.Logger
	now     func() time.Time
	backoff time.Duration
}

// NewEmailProcessor creates an email delivery processor.
func NewEmailProcessor(m mailer.Mailer, logs EmailLogStore, q JobSource, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{mailer: m, logs: logs, queue: q, logger: logger, now: time.Now, backoff: queue.RetryBackoff}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return p.deliver(ctx, mailer.MessageFromPayload(payload), zap.String("job_id", job.ID))
}

// Send delivers msg immediately and records the attempt, so an EmailProcessor can stand in
// for a Mailer when no queue is used.
func (p *EmailProcessor) Send(ctx context.Context, msg mailer.Message) error {
	return p.deliver(ctx, msg)
}

func (p *EmailProcessor) deliver(ctx context.Context, msg mailer.Message, fields ...zap.Field) error {
	fields = append(fields, zap.String("email_type", msg.EmailType), zap.Uint("registration_id", msg.RegistrationID))
	sendErr := p.mailer.Send(ctx, msg)

	el := &models.EmailLog{
		EmailType:      msg.EmailType,
		RecipientEmail: msg.To,
		Subject:        msg.Subject,
		Status:         models.EmailLogStatusSent,
	}
	if msg.RegistrationID != 0 {
		id := msg.RegistrationID
		el.RegistrationID = &id
	}
	if sendErr != nil {
		el.Status = models.EmailLogStatusFailed
		el.ErrorMessage = sendErr.Error()
	} else {
		sentAt := p.now()
		el.SentAt = &sentAt
	}
	if err := p.logs.Create(ctx, el); err != nil {
		p.logger.Error("record email log failed", append(fields, zap.Error(err))...)
	}

	if sendErr != nil {
		return fmt.Errorf("send: %w", sendErr)
	}
	p.logger.Info("email delivered", fields...)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, p.backoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			// The job is already popped; requeue it even when shutdown cancelled ctx.
			if reErr := p.queue.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			sleep(ctx, p.backoff)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
