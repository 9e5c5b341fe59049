// Package orders runs the checkout of an order against a collective: from
// validation through payment to membership and notifications.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/activities"
	"github.com/fundhub/backend/internal/auth"
	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/paymentmethods"
	"github.com/fundhub/backend/internal/policy"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/internal/tiers"
	"github.com/fundhub/backend/pkg/apperr"
	"github.com/fundhub/backend/pkg/utils"
)

// PaymentExecutor charges a pending order and marks it processed.
type PaymentExecutor interface {
	ExecuteOrder(ctx context.Context, user *models.User, order *models.Order) error
}

// Notifier delivers an activity to one recipient.
type Notifier interface {
	SendMessageFromActivity(ctx context.Context, a *models.Activity, recipient models.NotificationRecipient) error
}

// Ref points at an existing row by id.
type Ref struct {
	ID int64 `json:"id"`
}

// UserInput identifies the paying user of an anonymous order.
type UserInput struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// FromCollectiveInput names the organization paying the order: an existing
// one by id or a new one by name.
type FromCollectiveInput struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Website string `json:"website"`
}

// Input is an order request.
type Input struct {
	Collective     *Ref                  `json:"collective"`
	Tier           *Ref                  `json:"tier"`
	User           *UserInput            `json:"user"`
	FromCollective *FromCollectiveInput  `json:"fromCollective"`
	Quantity       int                   `json:"quantity"`
	TotalAmount    *int64                `json:"totalAmount"`
	Description    string                `json:"description"`
	PublicMessage  string                `json:"publicMessage"`
	PaymentMethod  *paymentmethods.Input `json:"paymentMethod"`
}

// Service orchestrates order creation.
type Service struct {
	store    store.Store
	identity *auth.IdentityResolver
	methods  *paymentmethods.Resolver
	executor PaymentExecutor
	recorder *activities.Recorder
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the order orchestrator.
func NewService(s store.Store, identity *auth.IdentityResolver, methods *paymentmethods.Resolver, executor PaymentExecutor,
	recorder *activities.Recorder, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    s,
		identity: identity,
		methods:  methods,
		executor: executor,
		recorder: recorder,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// checkout carries the state of one order through its steps.
type checkout struct {
	actor          *policy.Actor
	in             Input
	collective     *models.Collective
	tier           *models.Tier
	user           *models.User
	newUser        *UserInput
	fromCollective *models.Collective
	newOrg         *FromCollectiveInput
	paymentMethod  *models.PaymentMethod
	order          *models.Order
	member         *models.Member
	memberCreated  bool
}

// CreateOrder places an order for actor, which is nil for anonymous callers.
func (s *Service) CreateOrder(ctx context.Context, actor *policy.Actor, in Input) (*Result, error) {
	co := &checkout{actor: actor, in: in}
	if err := s.validate(ctx, co); err != nil {
		return nil, err
	}
	if err := s.resolvePayer(ctx, co); err != nil {
		return nil, err
	}
	total, requiresPayment, err := amountOf(co)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, co, total, requiresPayment); err != nil {
		return nil, err
	}
	if err := s.pay(ctx, co, requiresPayment); err != nil {
		return nil, err
	}

	s.grantMembership(ctx, co)
	s.notify(ctx, co)

	return s.result(ctx, co)
}

func (s *Service) validate(ctx context.Context, co *checkout) error {
	in := &co.in
	if in.Collective == nil || in.Collective.ID == 0 {
		return apperr.Validation("You need to specify the collective to contribute to")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return apperr.Validation("Quantity must be greater than 0")
	}

	collective, err := s.store.GetCollectiveByID(ctx, in.Collective.ID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("No collective found with id: %d", in.Collective.ID)
	}
	if err != nil {
		return fmt.Errorf("get collective: %w", err)
	}
	co.collective = collective

	if in.Tier != nil && in.Tier.ID != 0 {
		tier, err := s.store.GetTierByID(ctx, in.Tier.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("get tier: %w", err)
		}
		if tier == nil || tier.CollectiveID != collective.ID {
			return apperr.NotFound("No tier found with tier id: %d for collective slug %s", in.Tier.ID, collective.Slug)
		}
		co.tier = tier
	}
	return nil
}

// resolvePayer finds who places the order and which collective pays for
// it. Users and organizations that do not exist yet are only created later,
// inside the order transaction.
func (s *Service) resolvePayer(ctx context.Context, co *checkout) error {
	switch {
	case co.actor.LoggedIn():
		co.user = co.actor.User
	case co.in.User != nil && co.in.User.Email != "":
		co.newUser = co.in.User
	default:
		return apperr.Validation("You need to provide an email address or be logged in to create an order")
	}

	from := co.in.FromCollective
	switch {
	case from == nil || (from.ID == 0 && from.Name == ""):
		// the payer's own collective, loaded once the user is known
	case from.ID != 0:
		org, err := s.store.GetCollectiveByID(ctx, from.ID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("No collective found with id: %d", from.ID)
		}
		if err != nil {
			return fmt.Errorf("get from collective: %w", err)
		}
		if err := policy.CanOrderOnBehalfOf(co.actor, org); err != nil {
			return err
		}
		co.fromCollective = org
	default:
		co.newOrg = from
	}
	return nil
}

// amountOf computes the total of the order and whether it must be paid.
func amountOf(co *checkout) (int64, bool, error) {
	in := co.in
	if in.TotalAmount != nil && *in.TotalAmount < 0 {
		return 0, false, apperr.Validation("Total amount must be positive or zero")
	}
	if co.tier == nil {
		if in.TotalAmount == nil {
			return 0, false, apperr.Validation("You need to specify a tier or a total amount")
		}
		return *in.TotalAmount, *in.TotalAmount > 0, nil
	}
	total := co.tier.Amount * int64(in.Quantity)
	if (co.tier.Type == models.TierTypeDonation || co.tier.Amount == 0) && in.TotalAmount != nil {
		total = *in.TotalAmount
	}
	return total, co.tier.RequiresPayment() || total > 0, nil
}

func (s *Service) currencyOf(co *checkout) string {
	if co.tier != nil && co.tier.Currency != "" {
		return co.tier.Currency
	}
	if co.collective.Currency != "" {
		return co.collective.Currency
	}
	return models.DefaultCurrency
}

// persist reserves inventory, resolves the payment method and writes the
// pending order in one transaction. The tier row stays locked until commit.
func (s *Service) persist(ctx context.Context, co *checkout, total int64, requiresPayment bool) error {
	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.payer(ctx, co); err != nil {
			return err
		}
		if co.tier != nil {
			if err := tiers.Reserve(ctx, s.store, co.tier, co.in.Quantity); err != nil {
				return err
			}
		}
		pm, err := s.methods.Resolve(ctx, co.actor, co.user, co.fromCollective, co.in.PaymentMethod, requiresPayment)
		if err != nil {
			return err
		}
		co.paymentMethod = pm

		order := &models.Order{
			CollectiveID:     co.collective.ID,
			FromCollectiveID: co.fromCollective.ID,
			CreatedByUserID:  co.user.ID,
			Quantity:         co.in.Quantity,
			TotalAmount:      total,
			Currency:         s.currencyOf(co),
			Description:      co.in.Description,
			PublicMessage:    co.in.PublicMessage,
			Status:           models.OrderStatusPending,
		}
		if co.tier != nil {
			order.TierID = &co.tier.ID
		}
		if pm != nil {
			order.PaymentMethodID = &pm.ID
		}
		if err := s.store.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		co.order = order
		return nil
	})
}

// payer creates or loads the user and the paying collective left open by
// resolvePayer.
func (s *Service) payer(ctx context.Context, co *checkout) error {
	if co.user == nil {
		u, err := s.identity.FindOrCreateByEmail(ctx, co.newUser.Email, co.newUser.FirstName, co.newUser.LastName)
		if err != nil {
			return err
		}
		co.user = u
	}
	switch {
	case co.newOrg != nil:
		org, err := s.createOrganization(ctx, co)
		if err != nil {
			return err
		}
		co.fromCollective = org
	case co.fromCollective == nil:
		c, err := s.store.GetCollectiveByID(ctx, co.user.CollectiveID)
		if err != nil {
			return fmt.Errorf("get user collective: %w", err)
		}
		co.fromCollective = c
	}
	return nil
}

func (s *Service) createOrganization(ctx context.Context, co *checkout) (*models.Collective, error) {
	base := utils.Slugify(co.newOrg.Name)
	if base == "" {
		return nil, apperr.Validation("The organization needs a name")
	}
	slug, err := store.UniqueSlug(ctx, s.store, base)
	if err != nil {
		return nil, err
	}
	org := &models.Collective{
		Type:            models.CollectiveTypeOrganization,
		Slug:            slug,
		Name:            co.newOrg.Name,
		Website:         co.newOrg.Website,
		Currency:        s.currencyOf(co),
		IsActive:        true,
		CreatedByUserID: &co.user.ID,
	}
	if err := s.store.CreateCollective(ctx, org); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	admin := &models.Member{
		CollectiveID:       org.ID,
		MemberCollectiveID: co.user.CollectiveID,
		Role:               models.RoleAdmin,
		CreatedByUserID:    co.user.ID,
	}
	if err := s.store.CreateMember(ctx, admin); err != nil {
		return nil, fmt.Errorf("add organization admin: %w", err)
	}
	if co.actor.LoggedIn() {
		co.actor.Grant(org.ID, models.RoleAdmin)
	}
	return org, nil
}

// pay runs payment execution outside the inventory transaction. Free orders
// are processed without the gateway.
func (s *Service) pay(ctx context.Context, co *checkout, requiresPayment bool) error {
	order := co.order
	if !requiresPayment {
		now := s.now()
		order.ProcessedAt = &now
		order.Status = models.OrderStatusPaid
		if err := s.store.UpdateOrder(ctx, order); err != nil {
			return fmt.Errorf("mark free order processed: %w", err)
		}
		return nil
	}

	err := s.executor.ExecuteOrder(ctx, co.user, order)
	if err == nil {
		return nil
	}
	failed := *order
	failed.Status = models.OrderStatusError
	failed.ProcessedAt = nil
	if uErr := s.store.UpdateOrder(ctx, &failed); uErr != nil {
		s.logger.Error("mark order failed", zap.Int64("order_id", order.ID), zap.Error(uErr))
	}
	if apperr.Is(err, apperr.KindPaymentExecutionFailed) || apperr.Is(err, apperr.KindPaymentMethodRequired) {
		return err
	}
	return apperr.PaymentExecutionFailed(err, "Payment failed")
}

// roleFor is ATTENDEE for tickets and events and BACKER otherwise.
func roleFor(co *checkout) models.MemberRole {
	if co.collective.IsEvent() || (co.tier != nil && co.tier.Type == models.TierTypeTicket) {
		return models.RoleAttendee
	}
	return models.RoleBacker
}

// grantMembership is best effort: the order is already paid. A repeat
// contribution reuses the existing membership.
func (s *Service) grantMembership(ctx context.Context, co *checkout) {
	role := roleFor(co)
	filter := models.MemberFilter{
		CollectiveID:       co.collective.ID,
		MemberCollectiveID: co.fromCollective.ID,
		Role:               role,
	}
	if co.tier != nil {
		filter.TierID = &co.tier.ID
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.ListMembers(ctx, filter)
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		if len(existing) > 0 {
			m := existing[0]
			co.member = &m
			return nil
		}
		m := &models.Member{
			CollectiveID:       co.collective.ID,
			MemberCollectiveID: co.fromCollective.ID,
			Role:               role,
			TierID:             filter.TierID,
			CreatedByUserID:    co.user.ID,
		}
		if err := s.store.CreateMember(ctx, m); err != nil {
			return err
		}
		co.member, co.memberCreated = m, true
		return nil
	})
	if err != nil {
		s.logger.Error("grant membership failed",
			zap.Int64("order_id", co.order.ID),
			zap.String("role", string(role)),
			zap.Error(err))
	}
}

// notify records the activity and sends it to the admins of the collective
// when the order created a membership. Every failure is logged only.
func (s *Service) notify(ctx context.Context, co *checkout) {
	if !co.memberCreated {
		return
	}
	memberAccount := models.AccountOf(co.fromCollective)
	if co.fromCollective.Type == models.CollectiveTypeUser {
		email := co.user.Email
		memberAccount.Email = &email
	}
	orderData := &models.ActivityOrder{
		ID:            co.order.ID,
		TotalAmount:   co.order.TotalAmount,
		Currency:      co.order.Currency,
		Quantity:      co.order.Quantity,
		PublicMessage: co.order.PublicMessage,
	}
	if co.order.SubscriptionID != nil && co.tier != nil && co.tier.Interval != nil {
		orderData.Subscription = &models.ActivitySubscription{ID: *co.order.SubscriptionID, Interval: *co.tier.Interval}
	}
	a := &models.Activity{
		Type:         models.ActivityCollectiveMemberCreated,
		CollectiveID: co.collective.ID,
		UserID:       &co.user.ID,
		Data: models.ActivityData{
			Member: &models.ActivityMember{
				ID:               co.member.ID,
				Role:             co.member.Role,
				MemberCollective: memberAccount,
			},
			Collective: &models.ActivityCollective{
				ID:   co.collective.ID,
				Type: co.collective.Type,
				Slug: co.collective.Slug,
				Name: co.collective.Name,
			},
			Order: orderData,
		},
	}
	if err := s.recorder.Record(ctx, a); err != nil {
		s.logger.Error("record activity failed", zap.Int64("order_id", co.order.ID), zap.Error(err))
		return
	}

	recipients, err := AdminRecipients(ctx, s.store, co.collective.ID)
	if err != nil {
		s.logger.Error("load notification recipients failed", zap.Int64("collective_id", co.collective.ID), zap.Error(err))
		return
	}
	for _, r := range recipients {
		if err := s.notifier.SendMessageFromActivity(ctx, a, r); err != nil {
			s.logger.Warn("send notification failed",
				zap.Int64("activity_id", a.ID),
				zap.Int64("user_id", r.UserID),
				zap.Error(err))
		}
	}
}

// AdminRecipients returns the users administering the collective.
func AdminRecipients(ctx context.Context, s store.Store, collectiveID int64) ([]models.NotificationRecipient, error) {
	admins, err := s.ListMembers(ctx, models.MemberFilter{CollectiveID: collectiveID, Role: models.RoleAdmin})
	if err != nil {
		return nil, err
	}
	var out []models.NotificationRecipient
	seen := make(map[int64]bool)
	for _, m := range admins {
		u, err := s.GetUserByCollectiveID(ctx, m.MemberCollectiveID)
		if errors.Is(err, store.ErrNotFound) {
			// organizations have no inbox of their own
			continue
		}
		if err != nil {
			return nil, err
		}
		if seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, models.NotificationRecipient{
			UserID:  u.ID,
			Email:   u.Email,
			Name:    u.FullName(),
			Channel: models.NotificationChannelEmail,
		})
	}
	return out, nil
}
