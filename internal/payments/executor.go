package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/pkg/apperr"
)

const gatewayTimeout = 30 * time.Second

// Executor charges a pending order and records its outcome.
type Executor struct {
	store              store.Store
	gateway            Gateway
	platformFeePercent int64
	logger             *zap.Logger
	now                func() time.Time

	// concurrent executions of one order share a single gateway call
	sf singleflight.Group
}

// NewExecutor creates an Executor. platformFeePercent is taken from every
// processed order.
func NewExecutor(s store.Store, gateway Gateway, platformFeePercent int, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		store:              s,
		gateway:            gateway,
		platformFeePercent: int64(platformFeePercent),
		logger:             logger,
		now:                time.Now,
	}
}

// ExecuteOrder charges order for user. On success order is updated in place
// with its processed state. A gateway failure returns PaymentExecutionFailed
// and writes nothing.
func (e *Executor) ExecuteOrder(ctx context.Context, user *models.User, order *models.Order) error {
	key := fmt.Sprintf("execute_order_%d", order.ID)
	v, err, _ := e.sf.Do(key, func() (any, error) {
		return e.execute(ctx, user, order.ID)
	})
	if err != nil {
		return err
	}
	*order = v.(models.Order)
	return nil
}

func (e *Executor) execute(ctx context.Context, user *models.User, orderID int64) (models.Order, error) {
	order, err := e.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return models.Order{}, fmt.Errorf("get order %d: %w", orderID, err)
	}
	if order.IsProcessed() {
		return *order, nil
	}
	if order.PaymentMethodID == nil {
		return models.Order{}, apperr.PaymentMethodRequired("This tier requires a payment method")
	}
	pm, err := e.store.GetPaymentMethodByID(ctx, *order.PaymentMethodID)
	if err != nil {
		return models.Order{}, fmt.Errorf("get payment method %d: %w", *order.PaymentMethodID, err)
	}
	collective, err := e.store.GetCollectiveByID(ctx, order.CollectiveID)
	if err != nil {
		return models.Order{}, fmt.Errorf("get collective %d: %w", order.CollectiveID, err)
	}
	var interval string
	if order.TierID != nil {
		tier, err := e.store.GetTierByID(ctx, *order.TierID)
		if err != nil {
			return models.Order{}, fmt.Errorf("get tier %d: %w", *order.TierID, err)
		}
		if tier.Interval != nil {
			interval = *tier.Interval
		}
	}

	gwCtx, cancel := context.WithTimeout(ctx, gatewayTimeout)
	defer cancel()

	if pm.CustomerID == "" {
		customerID, err := e.gateway.CreateCustomer(gwCtx, pm.Token, user.Email)
		if err != nil {
			return models.Order{}, e.failed(order, err)
		}
		if err := e.store.UpdatePaymentMethodCustomer(ctx, pm.ID, customerID); err != nil {
			return models.Order{}, fmt.Errorf("save gateway customer: %w", err)
		}
		pm.CustomerID = customerID
	}

	description := fmt.Sprintf("Contribution to %s", collective.Name)
	metadata := map[string]string{
		"order_id":      fmt.Sprint(order.ID),
		"collective_id": fmt.Sprint(order.CollectiveID),
	}
	idempotencyKey := fmt.Sprintf("order-%d", order.ID)

	var res *Result
	if interval != "" {
		res, err = e.gateway.Subscribe(gwCtx, SubscriptionRequest{
			CustomerID:     pm.CustomerID,
			AmountCents:    order.TotalAmount,
			Currency:       order.Currency,
			Interval:       interval,
			Description:    description,
			IdempotencyKey: idempotencyKey,
			Metadata:       metadata,
		})
	} else {
		res, err = e.gateway.Charge(gwCtx, ChargeRequest{
			CustomerID:     pm.CustomerID,
			AmountCents:    order.TotalAmount,
			Currency:       order.Currency,
			Description:    description,
			IdempotencyKey: idempotencyKey,
			Metadata:       metadata,
		})
	}
	if err != nil {
		return models.Order{}, e.failed(order, err)
	}

	if err := e.record(ctx, user, order, collective, pm, interval, res); err != nil {
		// money moved but the ledger did not: needs manual reconciliation
		e.logger.Error("payment succeeded but recording failed",
			zap.Int64("order_id", order.ID),
			zap.String("charge_id", res.ChargeID),
			zap.String("subscription_id", res.SubscriptionID),
			zap.Error(err))
		return models.Order{}, fmt.Errorf("record payment: %w", err)
	}

	e.logger.Info("order processed",
		zap.Int64("order_id", order.ID),
		zap.Int64("amount", order.TotalAmount),
		zap.String("currency", order.Currency))
	return *order, nil
}

func (e *Executor) failed(order *models.Order, err error) error {
	e.logger.Warn("payment execution failed", zap.Int64("order_id", order.ID), zap.Error(err))
	msg := "Payment failed"
	if errors.Is(err, ErrProviderDown) {
		msg = "Payment provider is currently unavailable, please try again later"
	} else if errors.Is(err, ErrPaymentFailed) {
		msg = "Payment failed: " + err.Error()
	}
	return apperr.PaymentExecutionFailed(err, "%s", msg)
}

// record writes the subscription, the ledger pair and the processed order
// in one transaction.
func (e *Executor) record(ctx context.Context, user *models.User, order *models.Order, collective *models.Collective,
	pm *models.PaymentMethod, interval string, res *Result) error {
	return e.store.WithinTx(ctx, func(ctx context.Context) error {
		now := e.now()
		if interval != "" {
			sub := &models.Subscription{
				Amount:                order.TotalAmount,
				Currency:              order.Currency,
				Interval:              interval,
				IsActive:              true,
				ActivatedAt:           &now,
				GatewaySubscriptionID: res.SubscriptionID,
			}
			if err := e.store.CreateSubscription(ctx, sub); err != nil {
				return err
			}
			order.SubscriptionID = &sub.ID
		}

		platformFee := order.TotalAmount * e.platformFeePercent / 100
		credit := &models.Transaction{
			Type:                models.TransactionCredit,
			OrderID:             order.ID,
			CollectiveID:        order.CollectiveID,
			FromCollectiveID:    order.FromCollectiveID,
			HostCollectiveID:    collective.HostCollectiveID,
			PaymentMethodID:     &pm.ID,
			CreatedByUserID:     user.ID,
			Amount:              order.TotalAmount,
			Currency:            order.Currency,
			PaymentProcessorFee: res.ProcessorFee,
			PlatformFee:         platformFee,
			GatewayChargeID:     res.ChargeID,
			Description:         order.Description,
		}
		debit := *credit
		debit.Type = models.TransactionDebit
		debit.CollectiveID, debit.FromCollectiveID = order.FromCollectiveID, order.CollectiveID
		debit.Amount = -order.TotalAmount
		for _, t := range []*models.Transaction{credit, &debit} {
			if err := e.store.CreateTransaction(ctx, t); err != nil {
				return err
			}
		}

		order.ProcessedAt = &now
		order.Status = models.OrderStatusPaid
		return e.store.UpdateOrder(ctx, order)
	})
}
