package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/pkg/mailer"
	"github.com/fundhub/backend/pkg/queue"
)

// JobSource is the queue the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context, keys ...string) (*queue.Job, string, error)
	Retry(ctx context.Context, key string, job *queue.Job) error
}

// Sender delivers one email.
type Sender interface {
	Send(msg mailer.Message) error
}

// LogStore records delivery attempts.
type LogStore interface {
	Create(ctx context.Context, l *models.NotificationLog) error
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

// Processor sends queued notification emails.
type Processor struct {
	jobs   JobSource
	sender Sender
	logs   LogStore
	logger *zap.Logger
}

// NewProcessor creates a notification email processor.
func NewProcessor(jobs JobSource, sender Sender, logs LogStore, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{jobs: jobs, sender: sender, logs: logs, logger: logger}
}

// Process executes one notification email job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeNotificationEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	entry := &models.NotificationLog{
		ActivityType:   payload.ActivityType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
	}
	if payload.ActivityID != 0 {
		entry.ActivityID = &payload.ActivityID
	}
	if err := p.logs.Create(ctx, entry); err != nil {
		p.logger.Warn("create notification log failed", zap.Error(err))
	}

	err := p.sender.Send(mailer.Message{
		To:      payload.RecipientEmail,
		ToName:  payload.RecipientName,
		Subject: payload.Subject,
		HTML:    payload.BodyHTML,
	})
	if err != nil {
		if entry.ID != 0 {
			if logErr := p.logs.MarkFailed(ctx, entry.ID, err.Error()); logErr != nil {
				p.logger.Warn("mark notification failed", zap.Error(logErr))
			}
		}
		return fmt.Errorf("send email: %w", err)
	}
	if entry.ID != 0 {
		if err := p.logs.MarkSent(ctx, entry.ID, time.Now()); err != nil {
			p.logger.Warn("mark notification sent failed", zap.Error(err))
		}
	}
	p.logger.Info("notification sent",
		zap.String("activity_type", payload.ActivityType),
		zap.String("recipient", payload.RecipientEmail))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("notification worker stopping")
			return
		default:
		}

		job, key, err := p.jobs.Dequeue(ctx, queue.QueueNotifications)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			sleep(ctx, queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.jobs.Retry(ctx, key, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			sleep(ctx, queue.RetryBackoff)
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
