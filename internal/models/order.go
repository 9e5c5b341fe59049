package models

import "time"

// OrderStatus tracks an order through payment execution.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusError     OrderStatus = "ERROR"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// HoldsInventory reports whether orders in this status count against a tier cap.
func (s OrderStatus) HoldsInventory() bool {
	return s != OrderStatusCancelled && s != OrderStatusError
}

// Order is one checkout attempt against a collective.
type Order struct {
	ID               int64       `json:"id"`
	CollectiveID     int64       `json:"CollectiveId"`
	FromCollectiveID int64       `json:"FromCollectiveId"`
	TierID           *int64      `json:"TierId,omitempty"`
	CreatedByUserID  int64       `json:"CreatedByUserId"`
	Quantity         int         `json:"quantity"`
	TotalAmount      int64       `json:"totalAmount"`
	Currency         string      `json:"currency"`
	Description      string      `json:"description,omitempty"`
	PublicMessage    string      `json:"publicMessage,omitempty"`
	Status           OrderStatus `json:"status"`
	ProcessedAt      *time.Time  `json:"processedAt"`
	SubscriptionID   *int64      `json:"SubscriptionId,omitempty"`
	PaymentMethodID  *int64      `json:"PaymentMethodId,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// IsProcessed reports whether payment execution completed.
func (o *Order) IsProcessed() bool {
	return o.ProcessedAt != nil
}
