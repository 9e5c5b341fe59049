// Package tiers tracks tier inventory and reconciles tier lists.
package tiers

import (
	"context"
	"fmt"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/pkg/apperr"
)

// AvailableQuantity returns how many units of t remain given the quantity
// already reserved, or nil when t has no cap.
func AvailableQuantity(t *models.Tier, reserved int) *int {
	if t.MaxQuantity == nil {
		return nil
	}
	left := *t.MaxQuantity - reserved
	if left < 0 {
		left = 0
	}
	return &left
}

// CheckInventory fails with InsufficientInventory when requested exceeds
// what is left of t.
func CheckInventory(t *models.Tier, reserved, requested int) error {
	left := AvailableQuantity(t, reserved)
	if left == nil || requested <= *left {
		return nil
	}
	unit := "units"
	if t.Type == models.TierTypeTicket {
		unit = "tickets"
	}
	return apperr.InsufficientInventory("No more %s left for %s", unit, t.Name)
}

// Reserve locks the tier row and checks that requested units are still
// available. It must run inside store.WithinTx so the lock is held until the
// order row holding the reservation is written.
func Reserve(ctx context.Context, s store.Tiers, t *models.Tier, requested int) error {
	if t.MaxQuantity == nil {
		return nil
	}
	if err := s.LockTier(ctx, t.ID); err != nil {
		return fmt.Errorf("lock tier %d: %w", t.ID, err)
	}
	reserved, err := s.ReservedQuantity(ctx, t.ID)
	if err != nil {
		return err
	}
	return CheckInventory(t, reserved, requested)
}

// Stats computes the inventory view of t.
func Stats(ctx context.Context, s store.Tiers, t *models.Tier) (models.TierStats, error) {
	if t.MaxQuantity == nil {
		return models.TierStats{}, nil
	}
	reserved, err := s.ReservedQuantity(ctx, t.ID)
	if err != nil {
		return models.TierStats{}, err
	}
	return models.TierStats{AvailableQuantity: AvailableQuantity(t, reserved)}, nil
}

// View is a tier with its live inventory.
type View struct {
	models.Tier
	Stats models.TierStats `json:"stats"`
}

// Views attaches stats to each tier of ts.
func Views(ctx context.Context, s store.Tiers, ts []models.Tier) ([]View, error) {
	out := make([]View, 0, len(ts))
	for i := range ts {
		stats, err := Stats(ctx, s, &ts[i])
		if err != nil {
			return nil, fmt.Errorf("tier %d stats: %w", ts[i].ID, err)
		}
		out = append(out, View{Tier: ts[i], Stats: stats})
	}
	return out, nil
}
