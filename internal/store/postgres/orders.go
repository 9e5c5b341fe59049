package postgres

import (
	"context"
	"fmt"

	"github.com/fundhub/backend/internal/models"
)

const orderColumns = `id, collective_id, from_collective_id, tier_id, created_by_user_id, quantity, total_amount,
	currency, description, public_message, status, processed_at, subscription_id, payment_method_id,
	created_at, updated_at`

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	const q = `INSERT INTO orders (collective_id, from_collective_id, tier_id, created_by_user_id, quantity,
			total_amount, currency, description, public_message, status, processed_at, subscription_id, payment_method_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at`
	err := s.db(ctx).QueryRow(ctx, q, o.CollectiveID, o.FromCollectiveID, o.TierID, o.CreatedByUserID, o.Quantity,
		o.TotalAmount, o.Currency, o.Description, o.PublicMessage, o.Status, o.ProcessedAt, o.SubscriptionID,
		o.PaymentMethodID).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var o models.Order
	err := s.db(ctx).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.CollectiveID, &o.FromCollectiveID, &o.TierID, &o.CreatedByUserID, &o.Quantity, &o.TotalAmount,
			&o.Currency, &o.Description, &o.PublicMessage, &o.Status, &o.ProcessedAt, &o.SubscriptionID,
			&o.PaymentMethodID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "get order")
	}
	return &o, nil
}

func (s *Store) UpdateOrder(ctx context.Context, o *models.Order) error {
	const q = `UPDATE orders SET status = $2, processed_at = $3, subscription_id = $4, payment_method_id = $5,
			total_amount = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := s.db(ctx).QueryRow(ctx, q, o.ID, o.Status, o.ProcessedAt, o.SubscriptionID, o.PaymentMethodID, o.TotalAmount).
		Scan(&o.UpdatedAt)
	if err != nil {
		return notFound(err, "update order")
	}
	return nil
}

func (s *Store) CountProcessedOrders(ctx context.Context, collectiveID int64) (int, error) {
	var n int
	err := s.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE collective_id = $1 AND processed_at IS NOT NULL`, collectiveID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count processed orders: %w", err)
	}
	return n, nil
}
