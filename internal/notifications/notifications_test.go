package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/pkg/mailer"
	"github.com/fundhub/backend/pkg/queue"
)

type fakeEnqueuer struct {
	payloads []queue.EmailPayload
}

func (f *fakeEnqueuer) EnqueueEmail(ctx context.Context, p queue.EmailPayload) error {
	f.payloads = append(f.payloads, p)
	return nil
}

func memberActivity() *models.Activity {
	return &models.Activity{
		ID:           9,
		Type:         models.ActivityCollectiveMemberCreated,
		CollectiveID: 3,
		Data: models.ActivityData{
			Member: &models.ActivityMember{
				ID:               4,
				Role:             models.RoleBacker,
				MemberCollective: models.Account{Kind: models.CollectiveTypeUser, Name: "Xavier <script>"},
			},
			Collective: &models.ActivityCollective{ID: 3, Name: "Scouts"},
			Order: &models.ActivityOrder{
				TotalAmount:  1050,
				Currency:     "EUR",
				Subscription: &models.ActivitySubscription{Interval: "month"},
			},
		},
	}
}

func TestSendMessageFromActivity(t *testing.T) {
	q := &fakeEnqueuer{}
	s := NewService(q, "FundHub", nil)

	err := s.SendMessageFromActivity(context.Background(), memberActivity(), models.NotificationRecipient{
		UserID: 1, Email: "admin@example.com", Name: "Admin", Channel: models.NotificationChannelEmail,
	})
	if err != nil {
		t.Fatalf("SendMessageFromActivity() error = %v", err)
	}
	if len(q.payloads) != 1 {
		t.Fatalf("enqueued %d, want 1", len(q.payloads))
	}
	p := q.payloads[0]
	if p.Subject != "New BACKER for Scouts" || p.ActivityID != 9 || p.RecipientEmail != "admin@example.com" {
		t.Errorf("payload = %+v", p)
	}
	if !strings.Contains(p.BodyHTML, "10.50 EUR per month") {
		t.Errorf("body misses amount: %s", p.BodyHTML)
	}
	if strings.Contains(p.BodyHTML, "<script>") {
		t.Error("body is not escaped")
	}
}

func TestSendMessageSkipsUnknownActivities(t *testing.T) {
	q := &fakeEnqueuer{}
	s := NewService(q, "FundHub", nil)
	err := s.SendMessageFromActivity(context.Background(), &models.Activity{Type: "collective.updated"},
		models.NotificationRecipient{Email: "a@example.com"})
	if err != nil || len(q.payloads) != 0 {
		t.Errorf("err = %v, enqueued = %d", err, len(q.payloads))
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[int64]string{0: "0.00 USD", 5: "0.05 USD", 12345: "123.45 USD", -250: "-2.50 USD"}
	for in, want := range tests {
		if got := FormatAmount(in, "USD"); got != want {
			t.Errorf("FormatAmount(%d) = %q, want %q", in, got, want)
		}
	}
}

type fakeSender struct {
	err  error
	sent []mailer.Message
}

func (f *fakeSender) Send(m mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeLogs struct {
	mu      sync.Mutex
	entries map[int64]*models.NotificationLog
}

func newFakeLogs() *fakeLogs { return &fakeLogs{entries: map[int64]*models.NotificationLog{}} }

func (f *fakeLogs) Create(ctx context.Context, l *models.NotificationLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = int64(len(f.entries) + 1)
	l.Status = models.NotificationLogStatusPending
	f.entries[l.ID] = l
	return nil
}

func (f *fakeLogs) MarkSent(ctx context.Context, id int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[id].Status = models.NotificationLogStatusSent
	f.entries[id].SentAt = &at
	return nil
}

func (f *fakeLogs) MarkFailed(ctx context.Context, id int64, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[id].Status = models.NotificationLogStatusFailed
	f.entries[id].ErrorMessage = msg
	return nil
}

func emailJob(t *testing.T) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(queue.JobTypeNotificationEmail, queue.EmailPayload{
		ActivityID: 9, ActivityType: models.ActivityCollectiveMemberCreated,
		RecipientEmail: "admin@example.com", Subject: "hi", BodyHTML: "<p>hi</p>",
	})
	if err != nil {
		t.Fatal(err)
	}
	return job
}

func TestProcessSendsAndLogs(t *testing.T) {
	sender := &fakeSender{}
	logs := newFakeLogs()
	p := NewProcessor(nil, sender, logs, nil)

	if err := p.Process(context.Background(), emailJob(t)); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "admin@example.com" {
		t.Errorf("sent = %+v", sender.sent)
	}
	if logs.entries[1].Status != models.NotificationLogStatusSent || logs.entries[1].SentAt == nil {
		t.Errorf("log = %+v", logs.entries[1])
	}
}

func TestProcessFailureMarksLog(t *testing.T) {
	logs := newFakeLogs()
	p := NewProcessor(nil, &fakeSender{err: errors.New("smtp down")}, logs, nil)

	if err := p.Process(context.Background(), emailJob(t)); err == nil {
		t.Fatal("Process() error = nil, want failure")
	}
	if logs.entries[1].Status != models.NotificationLogStatusFailed || logs.entries[1].ErrorMessage != "smtp down" {
		t.Errorf("log = %+v", logs.entries[1])
	}
}

type fakeSource struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []string
	cancel  context.CancelFunc
}

func (f *fakeSource) Dequeue(ctx context.Context, keys ...string) (*queue.Job, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.jobs) == 0 {
		f.cancel()
		return nil, "", nil
	}
	job := f.jobs[0]
	f.jobs = f.jobs[1:]
	return job, keys[0], nil
}

func (f *fakeSource) Retry(ctx context.Context, key string, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, key)
	// stop the loop instead of waiting out the backoff
	f.cancel()
	return nil
}

func TestRunRetriesFailedJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &fakeSource{jobs: []*queue.Job{emailJob(t)}, cancel: cancel}
	p := NewProcessor(src, &fakeSender{err: errors.New("smtp down")}, newFakeLogs(), nil)

	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	if len(src.retried) != 1 || src.retried[0] != queue.QueueNotifications {
		t.Errorf("retried = %v", src.retried)
	}
}
