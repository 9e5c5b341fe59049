package tiers

import (
	"context"
	"fmt"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/pkg/apperr"
	"github.com/fundhub/backend/pkg/utils"
)

// Input is a tier as submitted by a client. A nil ID creates a tier.
// Nullable fields replace the stored value on update, so omitting goal
// removes it.
type Input struct {
	ID          *int64          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Type        models.TierType `json:"type"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Interval    *string         `json:"interval"`
	MaxQuantity *int            `json:"maxQuantity"`
	Goal        *int64          `json:"goal"`
}

// Validate checks the fields of a single tier input.
func (in *Input) Validate() error {
	if in.Name == "" {
		return apperr.Validation("Tier name is required")
	}
	if in.Amount < 0 {
		return apperr.Validation("Tier amount must be positive or zero")
	}
	if in.Type != "" && in.Type != models.TierTypeTier && in.Type != models.TierTypeTicket && in.Type != models.TierTypeDonation {
		return apperr.Validation("Invalid tier type: %s", in.Type)
	}
	if in.Interval != nil && !models.ValidInterval(*in.Interval) {
		return apperr.Validation("Invalid tier interval: %s", *in.Interval)
	}
	if in.MaxQuantity != nil && *in.MaxQuantity < 0 {
		return apperr.Validation("Tier maxQuantity must be positive or zero")
	}
	return nil
}

// apply writes the input onto t.
func (in *Input) apply(t *models.Tier, collective *models.Collective) {
	t.Name = in.Name
	t.Slug = in.Slug
	if t.Slug == "" {
		t.Slug = utils.Slugify(in.Name)
	}
	t.Description = in.Description
	t.Type = in.Type
	if t.Type == "" {
		t.Type = models.TierTypeTier
	}
	t.Amount = in.Amount
	t.Currency = in.Currency
	if t.Currency == "" {
		t.Currency = collective.Currency
	}
	if t.Currency == "" {
		t.Currency = models.DefaultCurrency
	}
	t.Interval = in.Interval
	t.MaxQuantity = in.MaxQuantity
	t.Goal = in.Goal
}

// Update pairs a stored tier with the input replacing it.
type Update struct {
	Tier  models.Tier
	Input Input
}

// Plan is the outcome of reconciling a tier list. Its three sets are
// disjoint.
type Plan struct {
	Create []Input
	Update []Update
	Delete []models.Tier
}

// Empty reports whether applying the plan changes nothing.
func (p Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Update) == 0 && len(p.Delete) == 0
}

// Reconcile matches incoming against existing by id. Inputs without an id
// are created, inputs with a known id update that tier, and existing tiers
// absent from incoming are deleted.
func Reconcile(existing []models.Tier, incoming []Input) (Plan, error) {
	byID := make(map[int64]models.Tier, len(existing))
	for _, t := range existing {
		byID[t.ID] = t
	}

	var plan Plan
	seen := make(map[int64]bool, len(incoming))
	for _, in := range incoming {
		if err := in.Validate(); err != nil {
			return Plan{}, err
		}
		if in.ID == nil {
			plan.Create = append(plan.Create, in)
			continue
		}
		t, ok := byID[*in.ID]
		if !ok {
			return Plan{}, apperr.Validation("Tier with id %d does not belong to this collective", *in.ID)
		}
		if seen[*in.ID] {
			return Plan{}, apperr.Validation("Tier with id %d is listed more than once", *in.ID)
		}
		seen[*in.ID] = true
		plan.Update = append(plan.Update, Update{Tier: t, Input: in})
	}
	for _, t := range existing {
		if !seen[t.ID] {
			plan.Delete = append(plan.Delete, t)
		}
	}
	return plan, nil
}

// Apply persists plan for collective and returns the resulting tiers
// ordered by id. Callers run it inside store.WithinTx.
func Apply(ctx context.Context, s store.Tiers, collective *models.Collective, plan Plan) ([]models.Tier, error) {
	for _, t := range plan.Delete {
		if err := s.DeleteTier(ctx, t.ID); err != nil {
			return nil, fmt.Errorf("delete tier %d: %w", t.ID, err)
		}
	}
	for _, u := range plan.Update {
		t := u.Tier
		u.Input.apply(&t, collective)
		if err := s.UpdateTier(ctx, &t); err != nil {
			return nil, fmt.Errorf("update tier %d: %w", t.ID, err)
		}
	}
	for _, in := range plan.Create {
		t := models.Tier{CollectiveID: collective.ID}
		in.apply(&t, collective)
		if err := s.CreateTier(ctx, &t); err != nil {
			return nil, fmt.Errorf("create tier: %w", err)
		}
	}
	return s.ListTiersByCollective(ctx, collective.ID)
}
