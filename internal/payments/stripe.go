package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

// StripeGateway implements Gateway with the Stripe API.
type StripeGateway struct {
	client *client.API
}

// NewStripeGateway creates a gateway authenticated with the secret key.
func NewStripeGateway(apiKey string) *StripeGateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	return &StripeGateway{client: sc}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, token, email string) (string, error) {
	params := &stripe.CustomerParams{
		Source: stripe.String(token),
	}
	if email != "" {
		params.Email = stripe.String(email)
	}
	params.Context = ctx
	cus, err := g.client.Customers.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	return cus.ID, nil
}

func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	if req.CustomerID == "" {
		return nil, ErrNoCustomer
	}
	params := &stripe.ChargeParams{
		Amount:      stripe.Int64(req.AmountCents),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Customer:    stripe.String(req.CustomerID),
		Description: stripe.String(req.Description),
	}
	if req.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	ch, err := g.client.Charges.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	if ch.Status != stripe.ChargeStatusSucceeded {
		return nil, fmt.Errorf("%w: charge status is %s", ErrPaymentFailed, ch.Status)
	}

	res := &Result{ChargeID: ch.ID}
	if ch.BalanceTransaction != nil && ch.BalanceTransaction.ID != "" {
		btParams := &stripe.BalanceTransactionParams{}
		btParams.Context = ctx
		bt, err := g.client.BalanceTransactions.Get(ch.BalanceTransaction.ID, btParams)
		if err != nil {
			return nil, mapStripeError(err)
		}
		res.ProcessorFee = bt.Fee
	}
	return res, nil
}

func (g *StripeGateway) Subscribe(ctx context.Context, req SubscriptionRequest) (*Result, error) {
	if req.CustomerID == "" {
		return nil, ErrNoCustomer
	}
	planID, err := g.ensurePlan(ctx, req)
	if err != nil {
		return nil, err
	}
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(req.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Plan: stripe.String(planID)},
		},
	}
	if req.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(req.IdempotencyKey)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sub, err := g.client.Subscriptions.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return &Result{SubscriptionID: sub.ID}, nil
}

// ensurePlan returns the plan shared by every subscription with the same
// amount, currency and interval.
func (g *StripeGateway) ensurePlan(ctx context.Context, req SubscriptionRequest) (string, error) {
	id := fmt.Sprintf("%s-%d-%s", strings.ToLower(req.Currency), req.AmountCents, req.Interval)

	getParams := &stripe.PlanParams{}
	getParams.Context = ctx
	existing, err := g.client.Plans.Get(id, getParams)
	if err == nil {
		return existing.ID, nil
	}
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) || stripeErr.HTTPStatusCode != http.StatusNotFound {
		return "", mapStripeError(err)
	}

	params := &stripe.PlanParams{
		ID:       stripe.String(id),
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		Interval: stripe.String(req.Interval),
		Product: &stripe.PlanProductParams{
			Name: stripe.String(id),
		},
	}
	params.Context = ctx
	p, err := g.client.Plans.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	return p.ID, nil
}

// mapStripeError converts stripe errors into gateway errors so callers never
// import stripe-go.
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		switch stripeErr.Code {
		case stripe.ErrorCodeCardDeclined:
			return fmt.Errorf("%w: card was declined (%s)", ErrPaymentFailed, stripeErr.Msg)
		case stripe.ErrorCodeExpiredCard:
			return fmt.Errorf("%w: card has expired", ErrPaymentFailed)
		case stripe.ErrorCodeBalanceInsufficient:
			return fmt.Errorf("%w: insufficient funds", ErrPaymentFailed)
		}
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return ErrProviderDown
		}
		return fmt.Errorf("%w: %s", ErrPaymentFailed, stripeErr.Msg)
	}
	return fmt.Errorf("gateway internal error: %w", err)
}
