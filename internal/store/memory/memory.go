// Package memory is an in-process store.Store used by tests and local runs
// without Postgres. Transactions are serialized behind one lock and rolled
// back from a snapshot on error.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/store"
)

type txKey struct{}

type tables struct {
	users          map[int64]models.User
	collectives    map[int64]models.Collective
	tiers          map[int64]models.Tier
	members        map[int64]models.Member
	orders         map[int64]models.Order
	paymentMethods map[int64]models.PaymentMethod
	subscriptions  map[int64]models.Subscription
	transactions   map[int64]models.Transaction
	activities     map[int64]models.Activity
	seq            int64
}

func (t *tables) clone() tables {
	return tables{
		users:          maps.Clone(t.users),
		collectives:    maps.Clone(t.collectives),
		tiers:          maps.Clone(t.tiers),
		members:        maps.Clone(t.members),
		orders:         maps.Clone(t.orders),
		paymentMethods: maps.Clone(t.paymentMethods),
		subscriptions:  maps.Clone(t.subscriptions),
		transactions:   maps.Clone(t.transactions),
		activities:     maps.Clone(t.activities),
		seq:            t.seq,
	}
}

// Store implements store.Store in memory.
type Store struct {
	mu   sync.Mutex
	data tables
	now  func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		data: tables{
			users:          make(map[int64]models.User),
			collectives:    make(map[int64]models.Collective),
			tiers:          make(map[int64]models.Tier),
			members:        make(map[int64]models.Member),
			orders:         make(map[int64]models.Order),
			paymentMethods: make(map[int64]models.PaymentMethod),
			subscriptions:  make(map[int64]models.Subscription),
			transactions:   make(map[int64]models.Transaction),
			activities:     make(map[int64]models.Activity),
		},
		now: time.Now,
	}
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock acquires the store lock unless ctx already runs inside WithinTx.
func (s *Store) lock(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if inTx(ctx) {
		return func() {}, nil
	}
	s.mu.Lock()
	return s.mu.Unlock, nil
}

// nextID hands out ids from one sequence shared by all tables.
func (s *Store) nextID() int64 {
	s.data.seq++
	return s.data.seq
}

// WithinTx implements store.Store.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, true))
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	u.ID = s.nextID()
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.data.users[u.ID] = *u
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	u, ok := s.data.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, u := range s.data.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByCollectiveID(ctx context.Context, collectiveID int64) (*models.User, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, u := range s.data.users {
		if u.CollectiveID == collectiveID {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SetUserCollective(ctx context.Context, userID, collectiveID int64) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	u, ok := s.data.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.CollectiveID = collectiveID
	u.UpdatedAt = s.now()
	s.data.users[userID] = u
	return nil
}

// Collectives

func (s *Store) CreateCollective(ctx context.Context, c *models.Collective) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	c.ID = s.nextID()
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.data.collectives[c.ID] = *c
	return nil
}

func (s *Store) GetCollectiveByID(ctx context.Context, id int64) (*models.Collective, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	c, ok := s.data.collectives[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) GetCollectiveBySlug(ctx context.Context, slug string) (*models.Collective, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, c := range s.data.collectives {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateCollective(ctx context.Context, c *models.Collective) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.data.collectives[c.ID]; !ok {
		return store.ErrNotFound
	}
	c.UpdatedAt = s.now()
	s.data.collectives[c.ID] = *c
	return nil
}

func (s *Store) DeleteCollective(ctx context.Context, id int64) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.data.collectives[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.collectives, id)
	for tid, t := range s.data.tiers {
		if t.CollectiveID == id {
			delete(s.data.tiers, tid)
		}
	}
	for mid, m := range s.data.members {
		if m.CollectiveID == id || m.MemberCollectiveID == id {
			delete(s.data.members, mid)
		}
	}
	for oid, o := range s.data.orders {
		if o.CollectiveID == id && o.ProcessedAt == nil {
			delete(s.data.orders, oid)
		}
	}
	return nil
}

// Tiers

func (s *Store) CreateTier(ctx context.Context, t *models.Tier) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	t.ID = s.nextID()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	s.data.tiers[t.ID] = *t
	return nil
}

func (s *Store) GetTierByID(ctx context.Context, id int64) (*models.Tier, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	t, ok := s.data.tiers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListTiersByCollective(ctx context.Context, collectiveID int64) ([]models.Tier, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	var list []models.Tier
	for _, t := range s.data.tiers {
		if t.CollectiveID == collectiveID {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *Store) UpdateTier(ctx context.Context, t *models.Tier) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.data.tiers[t.ID]; !ok {
		return store.ErrNotFound
	}
	t.UpdatedAt = s.now()
	s.data.tiers[t.ID] = *t
	return nil
}

func (s *Store) DeleteTier(ctx context.Context, id int64) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.data.tiers[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.tiers, id)
	return nil
}

// LockTier is a no-op: every transaction already holds the store lock.
func (s *Store) LockTier(ctx context.Context, id int64) error {
	_, err := s.GetTierByID(ctx, id)
	return err
}

func (s *Store) ReservedQuantity(ctx context.Context, tierID int64) (int, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	total := 0
	for _, o := range s.data.orders {
		if o.TierID != nil && *o.TierID == tierID && o.Status.HoldsInventory() {
			total += o.Quantity
		}
	}
	return total, nil
}

// Members

func (s *Store) CreateMember(ctx context.Context, m *models.Member) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	m.ID = s.nextID()
	m.CreatedAt = s.now()
	s.data.members[m.ID] = *m
	return nil
}

func (s *Store) ListMembers(ctx context.Context, f models.MemberFilter) ([]models.Member, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	var list []models.Member
	for _, m := range s.data.members {
		if f.Matches(&m) {
			list = append(list, m)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *Store) DeleteMember(ctx context.Context, id int64) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.data.members[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.data.members, id)
	return nil
}

func (s *Store) CountMembers(ctx context.Context) (int, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return len(s.data.members), nil
}

// Orders

func (s *Store) CreateOrder(ctx context.Context, o *models.Order) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	o.ID = s.nextID()
	o.CreatedAt = s.now()
	o.UpdatedAt = o.CreatedAt
	s.data.orders[o.ID] = *o
	return nil
}

func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	o, ok := s.data.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &o, nil
}

func (s *Store) UpdateOrder(ctx context.Context, o *models.Order) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	if _, ok := s.data.orders[o.ID]; !ok {
		return store.ErrNotFound
	}
	o.UpdatedAt = s.now()
	s.data.orders[o.ID] = *o
	return nil
}

func (s *Store) CountProcessedOrders(ctx context.Context, collectiveID int64) (int, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	n := 0
	for _, o := range s.data.orders {
		if o.CollectiveID == collectiveID && o.ProcessedAt != nil {
			n++
		}
	}
	return n, nil
}

// Payment methods

func (s *Store) CreatePaymentMethod(ctx context.Context, pm *models.PaymentMethod) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	pm.ID = s.nextID()
	if pm.UUID == uuid.Nil {
		pm.UUID = uuid.New()
	}
	pm.CreatedAt = s.now()
	s.data.paymentMethods[pm.ID] = *pm
	return nil
}

func (s *Store) GetPaymentMethodByID(ctx context.Context, id int64) (*models.PaymentMethod, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	pm, ok := s.data.paymentMethods[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &pm, nil
}

func (s *Store) GetPaymentMethodByUUID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	for _, pm := range s.data.paymentMethods {
		if pm.UUID == id {
			return &pm, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdatePaymentMethodCustomer(ctx context.Context, id int64, customerID string) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	pm, ok := s.data.paymentMethods[id]
	if !ok {
		return store.ErrNotFound
	}
	pm.CustomerID = customerID
	s.data.paymentMethods[id] = pm
	return nil
}

// CountPaymentMethods returns how many payment methods were created by a user.
func (s *Store) CountPaymentMethods(ctx context.Context, createdByUserID int64) (int, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	n := 0
	for _, pm := range s.data.paymentMethods {
		if pm.CreatedByUserID == createdByUserID {
			n++
		}
	}
	return n, nil
}

// Subscriptions

func (s *Store) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	sub.ID = s.nextID()
	sub.CreatedAt = s.now()
	s.data.subscriptions[sub.ID] = *sub
	return nil
}

func (s *Store) GetSubscriptionByID(ctx context.Context, id int64) (*models.Subscription, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	sub, ok := s.data.subscriptions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sub, nil
}

// CountSubscriptions returns the number of subscriptions.
func (s *Store) CountSubscriptions(ctx context.Context) (int, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()
	return len(s.data.subscriptions), nil
}

// Transactions

func (s *Store) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	t.ID = s.nextID()
	t.CreatedAt = s.now()
	s.data.transactions[t.ID] = *t
	return nil
}

func (s *Store) ListTransactionsByOrder(ctx context.Context, orderID int64) ([]models.Transaction, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	var list []models.Transaction
	for _, t := range s.data.transactions {
		if t.OrderID == orderID {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

// Activities

func (s *Store) CreateActivity(ctx context.Context, a *models.Activity) error {
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	a.ID = s.nextID()
	a.CreatedAt = s.now()
	s.data.activities[a.ID] = *a
	return nil
}

// ListActivities returns recorded activities in creation order.
func (s *Store) ListActivities(ctx context.Context) ([]models.Activity, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()
	list := make([]models.Activity, 0, len(s.data.activities))
	for _, a := range s.data.activities {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}
