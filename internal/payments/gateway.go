// Package payments executes paid orders against a payment gateway and
// records the resulting ledger entries.
package payments

import (
	"context"
	"errors"
)

var (
	ErrPaymentFailed = errors.New("payment gateway rejected the transaction")
	ErrProviderDown  = errors.New("payment provider is currently unavailable")
	ErrNoCustomer    = errors.New("payment method has no gateway customer")
)

// ChargeRequest is a one-off charge of a stored customer.
type ChargeRequest struct {
	CustomerID     string
	AmountCents    int64
	Currency       string
	Description    string
	IdempotencyKey string
	Metadata       map[string]string
}

// SubscriptionRequest starts recurring billing for a stored customer.
type SubscriptionRequest struct {
	CustomerID     string
	AmountCents    int64
	Currency       string
	Interval       string
	Description    string
	IdempotencyKey string
	Metadata       map[string]string
}

// Result is what the gateway reports for a successful payment.
type Result struct {
	ChargeID       string
	SubscriptionID string
	// ProcessorFee is the gateway fee in minor units.
	ProcessorFee int64
}

// Gateway moves money. Implementations translate provider errors into
// ErrPaymentFailed or ErrProviderDown.
type Gateway interface {
	// CreateCustomer registers the card token and returns the customer id.
	CreateCustomer(ctx context.Context, token, email string) (string, error)
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)
	Subscribe(ctx context.Context, req SubscriptionRequest) (*Result, error)
}
