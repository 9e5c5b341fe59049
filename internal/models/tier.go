package models

import "time"

// TierType is the kind of a tier.
type TierType string

const (
	TierTypeTier     TierType = "TIER"
	TierTypeTicket   TierType = "TICKET"
	TierTypeDonation TierType = "DONATION"
)

// Recurrence intervals.
const (
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// ValidInterval reports whether s is an accepted recurrence interval.
func ValidInterval(s string) bool {
	return s == IntervalMonth || s == IntervalYear
}

// Tier is a purchasable contribution level of a collective.
type Tier struct {
	ID           int64     `json:"id"`
	CollectiveID int64     `json:"CollectiveId"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Type         TierType  `json:"type"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	Interval     *string   `json:"interval"`
	MaxQuantity  *int      `json:"maxQuantity"`
	Goal         *int64    `json:"goal"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RequiresPayment reports whether ordering the tier needs a payment method.
func (t *Tier) RequiresPayment() bool {
	return t.Amount > 0 || t.Interval != nil
}

// TierStats is the computed inventory of a tier.
type TierStats struct {
	// AvailableQuantity is nil when the tier has no cap.
	AvailableQuantity *int `json:"availableQuantity"`
}
