package models

import "time"

// TransactionType is the ledger direction.
type TransactionType string

const (
	TransactionCredit TransactionType = "CREDIT"
	TransactionDebit  TransactionType = "DEBIT"
)

// Transaction is a ledger entry recorded for a processed order.
type Transaction struct {
	ID                  int64           `json:"id"`
	Type                TransactionType `json:"type"`
	OrderID             int64           `json:"OrderId"`
	CollectiveID        int64           `json:"CollectiveId"`
	FromCollectiveID    int64           `json:"FromCollectiveId"`
	HostCollectiveID    *int64          `json:"HostCollectiveId,omitempty"`
	PaymentMethodID     *int64          `json:"PaymentMethodId,omitempty"`
	CreatedByUserID     int64           `json:"CreatedByUserId"`
	Amount              int64           `json:"amount"`
	Currency            string          `json:"currency"`
	PaymentProcessorFee int64           `json:"paymentProcessorFee"`
	PlatformFee         int64           `json:"platformFee"`
	GatewayChargeID     string          `json:"-"`
	Description         string          `json:"description,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
}
