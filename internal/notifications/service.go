// Package notifications turns activities into emails for the people who
// should hear about them.
package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/pkg/queue"
)

// Enqueuer schedules an email for delivery.
type Enqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

var memberCreatedBody = template.Must(template.New("member_created").Parse(`<p>Hi {{.RecipientName}},</p>
<p><b>{{.MemberName}}</b> just became a {{.Role}} of <b>{{.CollectiveName}}</b>{{if .Amount}} with a contribution of {{.Amount}}{{if .Interval}} per {{.Interval}}{{end}}{{end}}.</p>
{{if .PublicMessage}}<blockquote>{{.PublicMessage}}</blockquote>{{end}}
<p>{{.Platform}}</p>`))

type memberCreatedView struct {
	RecipientName  string
	MemberName     string
	Role           models.MemberRole
	CollectiveName string
	Amount         string
	Interval       string
	PublicMessage  string
	Platform       string
}

// Service renders activity emails and queues them.
type Service struct {
	enqueuer Enqueuer
	platform string
	logger   *zap.Logger
}

// NewService creates a notification service. platform signs every email.
func NewService(enqueuer Enqueuer, platform string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{enqueuer: enqueuer, platform: platform, logger: logger}
}

// SendMessageFromActivity queues the email describing a for recipient.
// Activity types without a template are skipped.
func (s *Service) SendMessageFromActivity(ctx context.Context, a *models.Activity, recipient models.NotificationRecipient) error {
	if recipient.Channel != "" && recipient.Channel != models.NotificationChannelEmail {
		return nil
	}
	if recipient.Email == "" {
		return fmt.Errorf("notification recipient %d has no email", recipient.UserID)
	}
	subject, body, ok, err := s.render(a, recipient)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("no template for activity", zap.String("type", a.Type))
		return nil
	}
	payload := queue.EmailPayload{
		ActivityID:     a.ID,
		ActivityType:   a.Type,
		RecipientEmail: recipient.Email,
		RecipientName:  recipient.Name,
		Subject:        subject,
		BodyHTML:       body,
	}
	if err := s.enqueuer.EnqueueEmail(ctx, payload); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

func (s *Service) render(a *models.Activity, recipient models.NotificationRecipient) (string, string, bool, error) {
	switch a.Type {
	case models.ActivityCollectiveMemberCreated:
		d := a.Data
		if d.Member == nil || d.Collective == nil {
			return "", "", false, fmt.Errorf("activity %d: member and collective are required", a.ID)
		}
		view := memberCreatedView{
			RecipientName:  recipient.Name,
			MemberName:     d.Member.MemberCollective.Name,
			Role:           d.Member.Role,
			CollectiveName: d.Collective.Name,
			Platform:       s.platform,
		}
		if d.Order != nil {
			if d.Order.TotalAmount > 0 {
				view.Amount = FormatAmount(d.Order.TotalAmount, d.Order.Currency)
			}
			if d.Order.Subscription != nil {
				view.Interval = d.Order.Subscription.Interval
			}
			view.PublicMessage = d.Order.PublicMessage
		}
		var buf bytes.Buffer
		if err := memberCreatedBody.Execute(&buf, view); err != nil {
			return "", "", false, fmt.Errorf("render member created: %w", err)
		}
		subject := fmt.Sprintf("New %s for %s", d.Member.Role, d.Collective.Name)
		return subject, buf.String(), true, nil
	}
	return "", "", false, nil
}

// FormatAmount renders minor units as "12.34 USD".
func FormatAmount(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}

// LogEnqueuer stands in for the queue when Redis is not configured: it
// logs each email instead of scheduling it.
type LogEnqueuer struct {
	logger *zap.Logger
}

// NewLogEnqueuer creates a LogEnqueuer.
func NewLogEnqueuer(logger *zap.Logger) *LogEnqueuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEnqueuer{logger: logger}
}

// EnqueueEmail logs payload.
func (l *LogEnqueuer) EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error {
	l.logger.Info("email not queued, queue disabled",
		zap.Int64("activity_id", payload.ActivityID),
		zap.String("activity_type", payload.ActivityType),
		zap.String("to", payload.RecipientEmail),
		zap.String("subject", payload.Subject))
	return nil
}
