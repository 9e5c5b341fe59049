package orders

import (
	"context"
	"fmt"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/policy"
	"github.com/fundhub/backend/internal/tiers"
)

// Result is the view of a created order returned to the caller.
type Result struct {
	*models.Order
	Collective     models.Account        `json:"collective"`
	FromCollective models.Account        `json:"fromCollective"`
	CreatedByUser  models.UserPublic     `json:"createdByUser"`
	Tier           *tiers.View           `json:"tier,omitempty"`
	PaymentMethod  *models.PaymentMethod `json:"paymentMethod,omitempty"`
	Subscription   *models.Subscription  `json:"subscription,omitempty"`
}

func (s *Service) result(ctx context.Context, co *checkout) (*Result, error) {
	showEmail := policy.CanViewPrivateInfo(co.actor, co.user.CollectiveID, 0)
	from := models.AccountOf(co.fromCollective)
	if co.fromCollective.ID == co.user.CollectiveID && showEmail {
		email := co.user.Email
		from.Email = &email
	}
	res := &Result{
		Order:          co.order,
		Collective:     models.AccountOf(co.collective),
		FromCollective: from,
		CreatedByUser:  co.user.ToPublic(showEmail),
		PaymentMethod:  co.paymentMethod,
	}
	if co.tier != nil {
		stats, err := tiers.Stats(ctx, s.store, co.tier)
		if err != nil {
			return nil, fmt.Errorf("tier stats: %w", err)
		}
		res.Tier = &tiers.View{Tier: *co.tier, Stats: stats}
	}
	if co.order.SubscriptionID != nil {
		sub, err := s.store.GetSubscriptionByID(ctx, *co.order.SubscriptionID)
		if err != nil {
			return nil, fmt.Errorf("get subscription: %w", err)
		}
		res.Subscription = sub
	}
	return res, nil
}
