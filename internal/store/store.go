// Package store declares the persistence boundary shared by every mutation.
// Implementations live in store/postgres (pgx) and store/memory.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/fundhub/backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Store is the full persistence surface.
type Store interface {
	// WithinTx runs fn in one transaction; the tx travels in the context, and
	// nested calls join the outer transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error

	Users
	Collectives
	Tiers
	Members
	Orders
	PaymentMethods
	Subscriptions
	Transactions
	Activities
}

// Users persists people.
type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByCollectiveID(ctx context.Context, collectiveID int64) (*models.User, error)
	SetUserCollective(ctx context.Context, userID, collectiveID int64) error
}

// Collectives persists collectives.
type Collectives interface {
	CreateCollective(ctx context.Context, c *models.Collective) error
	GetCollectiveByID(ctx context.Context, id int64) (*models.Collective, error)
	GetCollectiveBySlug(ctx context.Context, slug string) (*models.Collective, error)
	UpdateCollective(ctx context.Context, c *models.Collective) error
	// DeleteCollective removes the collective with its tiers, memberships in
	// both directions and unprocessed orders.
	DeleteCollective(ctx context.Context, id int64) error
}

// Tiers persists tiers and answers inventory queries.
type Tiers interface {
	CreateTier(ctx context.Context, t *models.Tier) error
	GetTierByID(ctx context.Context, id int64) (*models.Tier, error)
	ListTiersByCollective(ctx context.Context, collectiveID int64) ([]models.Tier, error)
	UpdateTier(ctx context.Context, t *models.Tier) error
	DeleteTier(ctx context.Context, id int64) error
	// LockTier takes a row lock on the tier for the rest of the transaction.
	LockTier(ctx context.Context, id int64) error
	// ReservedQuantity sums quantities of orders on the tier that still hold inventory.
	ReservedQuantity(ctx context.Context, tierID int64) (int, error)
}

// Members persists memberships.
type Members interface {
	CreateMember(ctx context.Context, m *models.Member) error
	ListMembers(ctx context.Context, f models.MemberFilter) ([]models.Member, error)
	DeleteMember(ctx context.Context, id int64) error
	CountMembers(ctx context.Context) (int, error)
}

// Orders persists orders.
type Orders interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateOrder(ctx context.Context, o *models.Order) error
	CountProcessedOrders(ctx context.Context, collectiveID int64) (int, error)
}

// PaymentMethods persists stored payment methods.
type PaymentMethods interface {
	CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error
	GetPaymentMethodByID(ctx context.Context, id int64) (*models.PaymentMethod, error)
	GetPaymentMethodByUUID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
	UpdatePaymentMethodCustomer(ctx context.Context, id int64, customerID string) error
}

// Subscriptions persists recurring billing records.
type Subscriptions interface {
	CreateSubscription(ctx context.Context, s *models.Subscription) error
	GetSubscriptionByID(ctx context.Context, id int64) (*models.Subscription, error)
}

// Transactions persists ledger entries.
type Transactions interface {
	CreateTransaction(ctx context.Context, t *models.Transaction) error
	ListTransactionsByOrder(ctx context.Context, orderID int64) ([]models.Transaction, error)
}

// Activities persists the activity log.
type Activities interface {
	CreateActivity(ctx context.Context, a *models.Activity) error
}

// UniqueSlug returns base, or base suffixed with -1, -2, ... when the slug is
// already taken by another collective.
func UniqueSlug(ctx context.Context, s Collectives, base string) (string, error) {
	return UniqueSlugFor(ctx, s, base, 0)
}

// UniqueSlugFor is UniqueSlug for collective selfID: a slug held by selfID
// itself counts as free.
func UniqueSlugFor(ctx context.Context, s Collectives, base string, selfID int64) (string, error) {
	slug := base
	for i := 1; ; i++ {
		c, err := s.GetCollectiveBySlug(ctx, slug)
		if errors.Is(err, ErrNotFound) {
			return slug, nil
		}
		if err != nil {
			return "", err
		}
		if selfID != 0 && c.ID == selfID {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}
