// Package paymentmethods resolves the payment method of an order.
package paymentmethods

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/policy"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/pkg/apperr"
)

// Input is either a reference to a stored method (UUID) or raw token details.
type Input struct {
	UUID    *uuid.UUID     `json:"uuid"`
	Token   string         `json:"token"`
	Service string         `json:"service"`
	Name    string         `json:"name"`
	Data    map[string]any `json:"data"`
}

func (in *Input) isReference() bool {
	return in != nil && in.UUID != nil
}

func (in *Input) isRaw() bool {
	return in != nil && (in.Token != "" || in.Service != "" || in.Name != "" || len(in.Data) > 0)
}

// Resolver turns an Input into a persisted PaymentMethod.
type Resolver struct {
	store         store.PaymentMethods
	nativeService string
	logger        *zap.Logger
}

// NewResolver creates a resolver. nativeService is used when raw input does
// not name a service.
func NewResolver(s store.PaymentMethods, nativeService string, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if nativeService == "" {
		nativeService = models.PaymentServiceStripe
	}
	return &Resolver{store: s, nativeService: nativeService, logger: logger}
}

// Resolve returns the payment method for an order paid by owner on behalf
// of user. It returns nil without error when no method is given and none is
// required.
func (r *Resolver) Resolve(ctx context.Context, actor *policy.Actor, user *models.User, owner *models.Collective, in *Input, requiresPayment bool) (*models.PaymentMethod, error) {
	switch {
	case in.isReference():
		return r.byReference(ctx, actor, *in.UUID)
	case in.isRaw():
		return r.create(ctx, user, owner, in)
	case requiresPayment:
		return nil, apperr.PaymentMethodRequired("This tier requires a payment method")
	default:
		return nil, nil
	}
}

func (r *Resolver) byReference(ctx context.Context, actor *policy.Actor, id uuid.UUID) (*models.PaymentMethod, error) {
	pm, err := r.store.GetPaymentMethodByUUID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Payment method not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get payment method: %w", err)
	}
	if err := policy.CanUsePaymentMethod(actor, pm); err != nil {
		return nil, err
	}
	return pm, nil
}

func (r *Resolver) create(ctx context.Context, user *models.User, owner *models.Collective, in *Input) (*models.PaymentMethod, error) {
	if in.Token == "" {
		return nil, apperr.Validation("A token is required to add a payment method")
	}
	service := in.Service
	if service == "" {
		service = r.nativeService
	}
	pm := &models.PaymentMethod{
		CollectiveID:    owner.ID,
		CreatedByUserID: user.ID,
		Service:         service,
		Name:            in.Name,
		Token:           in.Token,
		Data:            in.Data,
	}
	if err := r.store.CreatePaymentMethod(ctx, pm); err != nil {
		return nil, fmt.Errorf("create payment method: %w", err)
	}
	r.logger.Info("payment method created",
		zap.Int64("payment_method_id", pm.ID),
		zap.Int64("collective_id", owner.ID),
		zap.String("service", service))
	return pm, nil
}
