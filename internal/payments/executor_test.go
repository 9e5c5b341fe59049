package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/store/memory"
	"github.com/fundhub/backend/pkg/apperr"
)

type fakeGateway struct {
	mu         sync.Mutex
	err        error
	customers  int
	charges    []ChargeRequest
	subscribes []SubscriptionRequest
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, token, email string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.customers++
	return fmt.Sprintf("cus_%d", g.customers), nil
}

func (g *fakeGateway) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.charges = append(g.charges, req)
	return &Result{ChargeID: "ch_1", ProcessorFee: 59}, nil
}

func (g *fakeGateway) Subscribe(ctx context.Context, req SubscriptionRequest) (*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.subscribes = append(g.subscribes, req)
	return &Result{SubscriptionID: "sub_1"}, nil
}

type fixture struct {
	store *memory.Store
	user  *models.User
	order *models.Order
}

func newFixture(t *testing.T, interval *string) fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	payer := &models.Collective{Type: models.CollectiveTypeUser, Slug: "payer"}
	target := &models.Collective{Type: models.CollectiveTypeCollective, Slug: "target", Name: "Target", Currency: "USD"}
	for _, c := range []*models.Collective{payer, target} {
		if err := s.CreateCollective(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	user := &models.User{Email: "payer@example.com", CollectiveID: payer.ID}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	tier := &models.Tier{CollectiveID: target.ID, Name: "Backer", Amount: 1000, Currency: "USD", Interval: interval}
	if err := s.CreateTier(ctx, tier); err != nil {
		t.Fatal(err)
	}
	pm := &models.PaymentMethod{CollectiveID: payer.ID, CreatedByUserID: user.ID, Service: "stripe", Token: "tok_visa"}
	if err := s.CreatePaymentMethod(ctx, pm); err != nil {
		t.Fatal(err)
	}
	order := &models.Order{
		CollectiveID:     target.ID,
		FromCollectiveID: payer.ID,
		TierID:           &tier.ID,
		CreatedByUserID:  user.ID,
		Quantity:         1,
		TotalAmount:      1000,
		Currency:         "USD",
		Status:           models.OrderStatusPending,
		PaymentMethodID:  &pm.ID,
	}
	if err := s.CreateOrder(ctx, order); err != nil {
		t.Fatal(err)
	}
	return fixture{store: s, user: user, order: order}
}

func TestExecuteOrderCharge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	gw := &fakeGateway{}
	e := NewExecutor(f.store, gw, 5, nil)

	if err := e.ExecuteOrder(ctx, f.user, f.order); err != nil {
		t.Fatalf("ExecuteOrder() error = %v", err)
	}
	if !f.order.IsProcessed() || f.order.Status != models.OrderStatusPaid {
		t.Errorf("order not processed: %+v", f.order)
	}
	if f.order.SubscriptionID != nil {
		t.Error("one-off order got a subscription")
	}
	if len(gw.charges) != 1 || gw.charges[0].IdempotencyKey != fmt.Sprintf("order-%d", f.order.ID) {
		t.Errorf("charges = %+v", gw.charges)
	}

	txs, err := f.store.ListTransactionsByOrder(ctx, f.order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 2 {
		t.Fatalf("transactions = %d, want 2", len(txs))
	}
	credit, debit := txs[0], txs[1]
	if credit.Type != models.TransactionCredit || credit.Amount != 1000 || credit.PaymentProcessorFee != 59 || credit.PlatformFee != 50 {
		t.Errorf("credit = %+v", credit)
	}
	if debit.Type != models.TransactionDebit || debit.Amount != -1000 || debit.CollectiveID != f.order.FromCollectiveID {
		t.Errorf("debit = %+v", debit)
	}
}

func TestExecuteOrderSubscription(t *testing.T) {
	ctx := context.Background()
	month := models.IntervalMonth
	f := newFixture(t, &month)
	gw := &fakeGateway{}
	e := NewExecutor(f.store, gw, 0, nil)

	if err := e.ExecuteOrder(ctx, f.user, f.order); err != nil {
		t.Fatalf("ExecuteOrder() error = %v", err)
	}
	if f.order.SubscriptionID == nil {
		t.Fatal("no subscription linked")
	}
	sub, err := f.store.GetSubscriptionByID(ctx, *f.order.SubscriptionID)
	if err != nil {
		t.Fatal(err)
	}
	if !sub.IsActive || sub.Interval != "month" || sub.Amount != 1000 {
		t.Errorf("subscription = %+v", sub)
	}
	if n, _ := f.store.CountSubscriptions(ctx); n != 1 {
		t.Errorf("subscriptions = %d, want 1", n)
	}
	if len(gw.subscribes) != 1 || len(gw.charges) != 0 {
		t.Errorf("gateway calls: %d subscribes, %d charges", len(gw.subscribes), len(gw.charges))
	}
}

func TestExecuteOrderGatewayFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	month := models.IntervalMonth
	f := newFixture(t, &month)
	gw := &fakeGateway{err: fmt.Errorf("%w: card was declined", ErrPaymentFailed)}
	e := NewExecutor(f.store, gw, 0, nil)

	err := e.ExecuteOrder(ctx, f.user, f.order)
	if !apperr.Is(err, apperr.KindPaymentExecutionFailed) {
		t.Fatalf("ExecuteOrder() error = %v, want PaymentExecutionFailed", err)
	}
	if !errors.Is(err, ErrPaymentFailed) {
		t.Error("gateway error not wrapped")
	}
	stored, _ := f.store.GetOrderByID(ctx, f.order.ID)
	if stored.IsProcessed() {
		t.Error("failed order marked processed")
	}
	if n, _ := f.store.CountSubscriptions(ctx); n != 0 {
		t.Errorf("subscriptions = %d, want 0", n)
	}
	if txs, _ := f.store.ListTransactionsByOrder(ctx, f.order.ID); len(txs) != 0 {
		t.Errorf("transactions = %d, want 0", len(txs))
	}
}

func TestExecuteOrderIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	gw := &fakeGateway{}
	e := NewExecutor(f.store, gw, 0, nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := *f.order
			if err := e.ExecuteOrder(ctx, f.user, &o); err != nil {
				t.Errorf("ExecuteOrder() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if len(gw.charges) != 1 {
		t.Errorf("charges = %d, want 1", len(gw.charges))
	}
	if gw.customers != 1 {
		t.Errorf("customers = %d, want 1", gw.customers)
	}
}
