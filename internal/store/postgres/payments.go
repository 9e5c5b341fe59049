package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fundhub/backend/internal/models"
)

const paymentMethodColumns = `id, uuid, collective_id, created_by_user_id, service, name, token, customer_id, data, created_at`

func (s *Store) CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	if pm.UUID == uuid.Nil {
		pm.UUID = uuid.New()
	}
	const q = `INSERT INTO payment_methods (uuid, collective_id, created_by_user_id, service, name, token, customer_id, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`
	err := s.db(ctx).QueryRow(ctx, q, pm.UUID, pm.CollectiveID, pm.CreatedByUserID, pm.Service, pm.Name, pm.Token,
		pm.CustomerID, pm.Data).Scan(&pm.ID, &pm.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment method: %w", err)
	}
	return nil
}

func (s *Store) getPaymentMethod(ctx context.Context, where string, arg any) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	err := s.db(ctx).QueryRow(ctx, `SELECT `+paymentMethodColumns+` FROM payment_methods WHERE `+where+` = $1`, arg).
		Scan(&pm.ID, &pm.UUID, &pm.CollectiveID, &pm.CreatedByUserID, &pm.Service, &pm.Name, &pm.Token,
			&pm.CustomerID, &pm.Data, &pm.CreatedAt)
	if err != nil {
		return nil, notFound(err, "get payment method")
	}
	return &pm, nil
}

func (s *Store) GetPaymentMethodByID(ctx context.Context, id int64) (*models.PaymentMethod, error) {
	return s.getPaymentMethod(ctx, "id", id)
}

func (s *Store) GetPaymentMethodByUUID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	return s.getPaymentMethod(ctx, "uuid", id)
}

func (s *Store) UpdatePaymentMethodCustomer(ctx context.Context, id int64, customerID string) error {
	tag, err := s.db(ctx).Exec(ctx, `UPDATE payment_methods SET customer_id = $2 WHERE id = $1`, id, customerID)
	return mustAffect(tag.RowsAffected(), err, "update payment method customer")
}

func (s *Store) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	const q = `INSERT INTO subscriptions (amount, currency, interval, is_active, activated_at, gateway_subscription_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := s.db(ctx).QueryRow(ctx, q, sub.Amount, sub.Currency, sub.Interval, sub.IsActive, sub.ActivatedAt,
		sub.GatewaySubscriptionID).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscriptionByID(ctx context.Context, id int64) (*models.Subscription, error) {
	const q = `SELECT id, amount, currency, interval, is_active, activated_at, gateway_subscription_id, created_at
		FROM subscriptions WHERE id = $1`
	var sub models.Subscription
	err := s.db(ctx).QueryRow(ctx, q, id).Scan(&sub.ID, &sub.Amount, &sub.Currency, &sub.Interval, &sub.IsActive,
		&sub.ActivatedAt, &sub.GatewaySubscriptionID, &sub.CreatedAt)
	if err != nil {
		return nil, notFound(err, "get subscription")
	}
	return &sub, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	const q = `INSERT INTO transactions (type, order_id, collective_id, from_collective_id, host_collective_id,
			payment_method_id, created_by_user_id, amount, currency, payment_processor_fee, platform_fee, gateway_charge_id,
			description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`
	err := s.db(ctx).QueryRow(ctx, q, t.Type, t.OrderID, t.CollectiveID, t.FromCollectiveID, t.HostCollectiveID,
		t.PaymentMethodID, t.CreatedByUserID, t.Amount, t.Currency, t.PaymentProcessorFee, t.PlatformFee,
		t.GatewayChargeID, t.Description).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) ListTransactionsByOrder(ctx context.Context, orderID int64) ([]models.Transaction, error) {
	const q = `SELECT id, type, order_id, collective_id, from_collective_id, host_collective_id, payment_method_id,
			created_by_user_id, amount, currency, payment_processor_fee, platform_fee, gateway_charge_id, description,
			created_at
		FROM transactions WHERE order_id = $1 ORDER BY id`
	rows, err := s.db(ctx).Query(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	var list []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Type, &t.OrderID, &t.CollectiveID, &t.FromCollectiveID, &t.HostCollectiveID,
			&t.PaymentMethodID, &t.CreatedByUserID, &t.Amount, &t.Currency, &t.PaymentProcessorFee,
			&t.PlatformFee, &t.GatewayChargeID, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}
