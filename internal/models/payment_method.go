package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentServiceStripe is the platform's native payment provider.
const PaymentServiceStripe = "stripe"

// PaymentMethod is a stored card or token owned by a collective.
type PaymentMethod struct {
	ID              int64          `json:"-"`
	UUID            uuid.UUID      `json:"uuid"`
	CollectiveID    int64          `json:"CollectiveId"`
	CreatedByUserID int64          `json:"CreatedByUserId"`
	Service         string         `json:"service"`
	Name            string         `json:"name"`
	Token           string         `json:"-"`
	CustomerID      string         `json:"-"`
	Data            map[string]any `json:"data,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
}
