package postgres

import (
	"context"
	"fmt"

	"github.com/fundhub/backend/internal/models"
)

func (s *Store) CreateActivity(ctx context.Context, a *models.Activity) error {
	const q = `INSERT INTO activities (type, collective_id, user_id, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	if err := s.db(ctx).QueryRow(ctx, q, a.Type, a.CollectiveID, a.UserID, a.Data).Scan(&a.ID, &a.CreatedAt); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}
