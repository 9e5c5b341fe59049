package postgres

import (
	"context"
	"fmt"

	"github.com/fundhub/backend/internal/models"
)

const tierColumns = `id, collective_id, slug, name, description, type, amount, currency, interval,
	max_quantity, goal, created_at, updated_at`

func scanTier(row interface{ Scan(...any) error }) (*models.Tier, error) {
	var t models.Tier
	err := row.Scan(&t.ID, &t.CollectiveID, &t.Slug, &t.Name, &t.Description, &t.Type, &t.Amount, &t.Currency,
		&t.Interval, &t.MaxQuantity, &t.Goal, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreateTier(ctx context.Context, t *models.Tier) error {
	const q = `INSERT INTO tiers (collective_id, slug, name, description, type, amount, currency, interval, max_quantity, goal)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	err := s.db(ctx).QueryRow(ctx, q, t.CollectiveID, t.Slug, t.Name, t.Description, t.Type, t.Amount, t.Currency,
		t.Interval, t.MaxQuantity, t.Goal).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert tier: %w", err)
	}
	return nil
}

func (s *Store) GetTierByID(ctx context.Context, id int64) (*models.Tier, error) {
	t, err := scanTier(s.db(ctx).QueryRow(ctx, `SELECT `+tierColumns+` FROM tiers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "get tier")
	}
	return t, nil
}

func (s *Store) ListTiersByCollective(ctx context.Context, collectiveID int64) ([]models.Tier, error) {
	rows, err := s.db(ctx).Query(ctx, `SELECT `+tierColumns+` FROM tiers WHERE collective_id = $1 ORDER BY id`, collectiveID)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	defer rows.Close()
	var list []models.Tier
	for rows.Next() {
		t, err := scanTier(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tier: %w", err)
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

func (s *Store) UpdateTier(ctx context.Context, t *models.Tier) error {
	const q = `UPDATE tiers SET slug = $2, name = $3, description = $4, type = $5, amount = $6, currency = $7,
			interval = $8, max_quantity = $9, goal = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := s.db(ctx).QueryRow(ctx, q, t.ID, t.Slug, t.Name, t.Description, t.Type, t.Amount, t.Currency,
		t.Interval, t.MaxQuantity, t.Goal).Scan(&t.UpdatedAt)
	if err != nil {
		return notFound(err, "update tier")
	}
	return nil
}

func (s *Store) DeleteTier(ctx context.Context, id int64) error {
	tag, err := s.db(ctx).Exec(ctx, `DELETE FROM tiers WHERE id = $1`, id)
	return mustAffect(tag.RowsAffected(), err, "delete tier")
}

// LockTier must run inside WithinTx; outside a transaction the lock is
// released as soon as the statement returns.
func (s *Store) LockTier(ctx context.Context, id int64) error {
	var got int64
	if err := s.db(ctx).QueryRow(ctx, `SELECT id FROM tiers WHERE id = $1 FOR UPDATE`, id).Scan(&got); err != nil {
		return notFound(err, "lock tier")
	}
	return nil
}

func (s *Store) ReservedQuantity(ctx context.Context, tierID int64) (int, error) {
	const q = `SELECT COALESCE(SUM(quantity), 0) FROM orders
		WHERE tier_id = $1 AND status NOT IN ($2, $3)`
	var n int
	err := s.db(ctx).QueryRow(ctx, q, tierID, models.OrderStatusCancelled, models.OrderStatusError).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("reserved quantity: %w", err)
	}
	return n, nil
}
