package tiers

import (
	"context"
	"testing"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/store/memory"
	"github.com/fundhub/backend/pkg/apperr"
)

func ptr[T any](v T) *T { return &v }

func TestCheckInventory(t *testing.T) {
	tests := []struct {
		name      string
		tier      models.Tier
		reserved  int
		requested int
		message   string
	}{
		{"unlimited", models.Tier{Name: "free"}, 1000, 5, ""},
		{"fits exactly", models.Tier{Name: "t", MaxQuantity: ptr(10)}, 5, 5, ""},
		{"ticket oversold", models.Tier{Name: "Early bird", Type: models.TierTypeTicket, MaxQuantity: ptr(100)}, 0, 101,
			"No more tickets left for Early bird"},
		{"units oversold", models.Tier{Name: "Sponsor", Type: models.TierTypeTier, MaxQuantity: ptr(3)}, 3, 1,
			"No more units left for Sponsor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckInventory(&tt.tier, tt.reserved, tt.requested)
			if tt.message == "" {
				if err != nil {
					t.Fatalf("CheckInventory() error = %v", err)
				}
				return
			}
			if !apperr.Is(err, apperr.KindInsufficientInventory) {
				t.Fatalf("CheckInventory() error = %v, want InsufficientInventory", err)
			}
			if got := apperr.Message(err); got != tt.message {
				t.Errorf("message = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestAvailableQuantity(t *testing.T) {
	if got := AvailableQuantity(&models.Tier{}, 3); got != nil {
		t.Errorf("unlimited tier = %d, want nil", *got)
	}
	if got := AvailableQuantity(&models.Tier{MaxQuantity: ptr(10)}, 12); got == nil || *got != 0 {
		t.Errorf("overbooked tier = %v, want 0", got)
	}
}

func TestReserveAndStats(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	tier := &models.Tier{CollectiveID: 1, Name: "Ticket", Type: models.TierTypeTicket, MaxQuantity: ptr(10)}
	if err := s.CreateTier(ctx, tier); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateOrder(ctx, &models.Order{TierID: &tier.ID, Quantity: 4, Status: models.OrderStatusPaid}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateOrder(ctx, &models.Order{TierID: &tier.ID, Quantity: 3, Status: models.OrderStatusError}); err != nil {
		t.Fatal(err)
	}

	err := s.WithinTx(ctx, func(ctx context.Context) error {
		return Reserve(ctx, s, tier, 7)
	})
	if !apperr.Is(err, apperr.KindInsufficientInventory) {
		t.Fatalf("Reserve(7) error = %v, want InsufficientInventory", err)
	}
	if err := s.WithinTx(ctx, func(ctx context.Context) error { return Reserve(ctx, s, tier, 6) }); err != nil {
		t.Fatalf("Reserve(6) error = %v", err)
	}

	stats, err := Stats(ctx, s, tier)
	if err != nil {
		t.Fatal(err)
	}
	if stats.AvailableQuantity == nil || *stats.AvailableQuantity != 6 {
		t.Errorf("AvailableQuantity = %v, want 6", stats.AvailableQuantity)
	}
}

func TestReconcile(t *testing.T) {
	existing := []models.Tier{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}
	incoming := []Input{
		{ID: ptr(int64(2)), Name: "b2"},
		{Name: "new"},
	}
	plan, err := Reconcile(existing, incoming)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(plan.Create) != 1 || plan.Create[0].Name != "new" {
		t.Errorf("Create = %+v", plan.Create)
	}
	if len(plan.Update) != 1 || plan.Update[0].Tier.ID != 2 {
		t.Errorf("Update = %+v", plan.Update)
	}
	if len(plan.Delete) != 2 || plan.Delete[0].ID != 1 || plan.Delete[1].ID != 3 {
		t.Errorf("Delete = %+v", plan.Delete)
	}
}

func TestReconcileRejectsForeignIDs(t *testing.T) {
	_, err := Reconcile([]models.Tier{{ID: 1, Name: "a"}}, []Input{{ID: ptr(int64(99)), Name: "x"}})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("Reconcile() error = %v, want ValidationError", err)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	c := &models.Collective{Slug: "c", Currency: "EUR"}
	if err := s.CreateCollective(ctx, c); err != nil {
		t.Fatal(err)
	}

	first, err := Reconcile(nil, []Input{{Name: "Backer", Amount: 500, Goal: ptr(int64(1000))}, {Name: "Sponsor", Amount: 10000}})
	if err != nil {
		t.Fatal(err)
	}
	created, err := Apply(ctx, s, c, first)
	if err != nil {
		t.Fatal(err)
	}
	if len(created) != 2 || created[0].Currency != "EUR" || created[0].Slug != "backer" {
		t.Fatalf("Apply() = %+v", created)
	}

	var again []Input
	for _, tier := range created {
		again = append(again, Input{ID: ptr(tier.ID), Name: tier.Name, Amount: tier.Amount, Goal: tier.Goal})
	}
	plan, err := Reconcile(created, again)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Create) != 0 || len(plan.Delete) != 0 {
		t.Fatalf("resubmission plan = %+v, want updates only", plan)
	}
	after, err := Apply(ctx, s, c, plan)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 2 || after[0].ID != created[0].ID || after[1].ID != created[1].ID {
		t.Errorf("tiers changed identity: %+v", after)
	}
	if after[0].Goal == nil || *after[0].Goal != 1000 {
		t.Errorf("goal lost on resubmission: %v", after[0].Goal)
	}
}
