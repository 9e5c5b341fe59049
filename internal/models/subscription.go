package models

import "time"

// Subscription backs an order placed on a recurring tier.
type Subscription struct {
	ID                    int64      `json:"id"`
	Amount                int64      `json:"amount"`
	Currency              string     `json:"currency"`
	Interval              string     `json:"interval"`
	IsActive              bool       `json:"isActive"`
	ActivatedAt           *time.Time `json:"activatedAt,omitempty"`
	GatewaySubscriptionID string     `json:"-"`
	CreatedAt             time.Time  `json:"createdAt"`
}
