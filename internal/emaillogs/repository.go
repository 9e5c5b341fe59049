// Package emaillogs persists the delivery log of notification emails.
package emaillogs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fundhub/backend/internal/models"
)

// Repository handles notification_logs persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an email logs repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending log entry.
func (r *Repository) Create(ctx context.Context, l *models.NotificationLog) error {
	const q = `INSERT INTO notification_logs (activity_id, activity_type, recipient_email, subject, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	if l.Status == "" {
		l.Status = models.NotificationLogStatusPending
	}
	err := r.pool.QueryRow(ctx, q, l.ActivityID, l.ActivityType, l.RecipientEmail, l.Subject, l.Status).
		Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	return nil
}

// MarkSent flags the entry as delivered.
func (r *Repository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	const q = `UPDATE notification_logs SET status = $2, sent_at = $3, error_message = '' WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, models.NotificationLogStatusSent, at)
	return err
}

// MarkFailed flags the entry as failed with the last error.
func (r *Repository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	const q = `UPDATE notification_logs SET status = $2, error_message = $3 WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, models.NotificationLogStatusFailed, errMsg)
	return err
}
