// Package collectives implements the create, edit and delete mutations of
// collectives and their tiers.
package collectives

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/policy"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/internal/tiers"
	"github.com/fundhub/backend/pkg/apperr"
	"github.com/fundhub/backend/pkg/utils"
)

// Input is a collective as submitted by a client. Empty fields are left
// untouched on edit. A nil Tiers leaves the tiers alone; an empty one
// deletes them all.
type Input struct {
	ID                 int64                 `json:"id"`
	Type               models.CollectiveType `json:"type"`
	Slug               string                `json:"slug"`
	Name               string                `json:"name"`
	Description        string                `json:"description"`
	LongDescription    string                `json:"longDescription"`
	Website            string                `json:"website"`
	Image              string                `json:"image"`
	Currency           string                `json:"currency"`
	Timezone           string                `json:"timezone"`
	StartsAt           *time.Time            `json:"startsAt"`
	EndsAt             *time.Time            `json:"endsAt"`
	HostCollectiveID   *int64                `json:"HostCollectiveId"`
	ParentCollectiveID *int64                `json:"ParentCollectiveId"`
	Tiers              []tiers.Input         `json:"tiers"`
}

// View is a collective with its host, parent and tiers.
type View struct {
	*models.Collective
	Host   *models.Account `json:"host,omitempty"`
	Parent *models.Account `json:"parentCollective,omitempty"`
	Tiers  []tiers.View    `json:"tiers"`
}

// Service runs collective mutations.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

// NewService creates a collectives service.
func NewService(s store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, logger: logger}
}

func (s *Service) load(ctx context.Context, id int64) (*models.Collective, error) {
	c, err := s.store.GetCollectiveByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("No collective found with id: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get collective %d: %w", id, err)
	}
	return c, nil
}

func (s *Service) loadOptional(ctx context.Context, id *int64) (*models.Collective, error) {
	if id == nil || *id == 0 {
		return nil, nil
	}
	return s.load(ctx, *id)
}

// eventSlug suffixes base with the parent id unless it already carries it.
func eventSlug(base string, parentID int64) string {
	suffix := fmt.Sprintf("-%dev", parentID)
	if strings.HasSuffix(base, suffix) {
		return base
	}
	return base + suffix
}

// Create creates a collective. Top-level collectives get the creator as
// ADMIN and, when a host is given, a HOST membership; they are active only
// if the creator controls the host. Events inherit host and currency from
// their parent and are active right away.
func (s *Service) Create(ctx context.Context, actor *policy.Actor, in Input) (*View, error) {
	if in.Type == "" {
		in.Type = models.CollectiveTypeCollective
	}
	if !in.Type.Valid() || in.Type == models.CollectiveTypeUser {
		return nil, apperr.Validation("Invalid collective type: %s", in.Type)
	}
	c := &models.Collective{Type: in.Type}

	parent, err := s.loadOptional(ctx, in.ParentCollectiveID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanCreateCollective(actor, c, parent); err != nil {
		return nil, err
	}
	if in.Name == "" {
		return nil, apperr.Validation("A collective needs a name")
	}

	hostID := in.HostCollectiveID
	if c.IsEvent() {
		hostID = parent.HostCollectiveID
	}
	host, err := s.loadOptional(ctx, hostID)
	if err != nil {
		return nil, err
	}

	applyScalars(c, in)
	c.CreatedByUserID = &actor.User.ID
	if parent != nil {
		c.ParentCollectiveID = &parent.ID
	}
	if host != nil {
		c.HostCollectiveID = &host.ID
	}
	switch {
	case c.IsEvent():
		c.IsActive = true
		if c.Currency == "" {
			c.Currency = parent.Currency
		}
	case host != nil:
		c.IsActive = actor.Controls(host.ID)
	}
	if c.Currency == "" && host != nil {
		c.Currency = host.Currency
	}
	if c.Currency == "" {
		c.Currency = models.DefaultCurrency
	}

	base := utils.Slugify(in.Slug)
	if base == "" {
		base = utils.Slugify(in.Name)
	}
	if base == "" {
		base = strings.ToLower(string(c.Type))
	}

	// tiers of a new collective are all created
	creates := make([]tiers.Input, len(in.Tiers))
	for i, t := range in.Tiers {
		t.ID = nil
		creates[i] = t
	}
	plan, err := tiers.Reconcile(nil, creates)
	if err != nil {
		return nil, err
	}

	var created []models.Tier
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		if c.IsEvent() {
			base = eventSlug(base, parent.ID)
		}
		if c.Slug, err = store.UniqueSlug(ctx, s.store, base); err != nil {
			return err
		}
		if err := s.store.CreateCollective(ctx, c); err != nil {
			return fmt.Errorf("create collective: %w", err)
		}
		admin := &models.Member{
			CollectiveID:       c.ID,
			MemberCollectiveID: actor.User.CollectiveID,
			Role:               models.RoleAdmin,
			CreatedByUserID:    actor.User.ID,
		}
		if err := s.store.CreateMember(ctx, admin); err != nil {
			return fmt.Errorf("add admin: %w", err)
		}
		if host != nil && !c.IsEvent() {
			hosting := &models.Member{
				CollectiveID:       c.ID,
				MemberCollectiveID: host.ID,
				Role:               models.RoleHost,
				CreatedByUserID:    actor.User.ID,
			}
			if err := s.store.CreateMember(ctx, hosting); err != nil {
				return fmt.Errorf("add host: %w", err)
			}
		}
		created, err = tiers.Apply(ctx, s.store, c, plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	actor.Grant(c.ID, models.RoleAdmin)

	s.logger.Info("collective created",
		zap.Int64("collective_id", c.ID),
		zap.String("slug", c.Slug),
		zap.String("type", string(c.Type)),
		zap.Int64("user_id", actor.UserID()))
	return s.view(ctx, c, created)
}

// Edit diff-applies in onto the collective in.ID and reconciles its tiers
// when in.Tiers is set.
func (s *Service) Edit(ctx context.Context, actor *policy.Actor, in Input) (*View, error) {
	if in.ID == 0 {
		return nil, apperr.Validation("You need to specify the id of the collective to edit")
	}
	c, err := s.load(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	parent, err := s.loadOptional(ctx, c.ParentCollectiveID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanEditCollective(actor, c, parent); err != nil {
		return nil, err
	}

	var result []models.Tier
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		applyScalars(c, in)
		if slug := utils.Slugify(in.Slug); slug != "" && slug != c.Slug {
			if c.IsEvent() && parent != nil {
				slug = eventSlug(slug, parent.ID)
			}
			if c.Slug, err = store.UniqueSlugFor(ctx, s.store, slug, c.ID); err != nil {
				return err
			}
		}
		if err := s.store.UpdateCollective(ctx, c); err != nil {
			return fmt.Errorf("update collective: %w", err)
		}
		if in.Tiers == nil {
			return nil
		}
		result, err = s.reconcileTiers(ctx, c, in.Tiers)
		return err
	})
	if err != nil {
		return nil, err
	}
	if in.Tiers == nil {
		if result, err = s.store.ListTiersByCollective(ctx, c.ID); err != nil {
			return nil, fmt.Errorf("list tiers: %w", err)
		}
	}
	return s.view(ctx, c, result)
}

// EditTiers replaces the tier list of a collective and returns the
// resulting tiers. A nil list changes nothing.
func (s *Service) EditTiers(ctx context.Context, actor *policy.Actor, collectiveID int64, in []tiers.Input) ([]tiers.View, error) {
	if !actor.LoggedIn() {
		return nil, policy.CanEditTiers(actor, nil)
	}
	c, err := s.load(ctx, collectiveID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanEditTiers(actor, c); err != nil {
		return nil, err
	}
	var result []models.Tier
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		if in == nil {
			result, err = s.store.ListTiersByCollective(ctx, c.ID)
			return err
		}
		result, err = s.reconcileTiers(ctx, c, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tiers.Views(ctx, s.store, result)
}

func (s *Service) reconcileTiers(ctx context.Context, c *models.Collective, in []tiers.Input) ([]models.Tier, error) {
	existing, err := s.store.ListTiersByCollective(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	plan, err := tiers.Reconcile(existing, in)
	if err != nil {
		return nil, err
	}
	if plan.Empty() {
		return existing, nil
	}
	s.logger.Info("reconciling tiers",
		zap.Int64("collective_id", c.ID),
		zap.Int("create", len(plan.Create)),
		zap.Int("update", len(plan.Update)),
		zap.Int("delete", len(plan.Delete)))
	return tiers.Apply(ctx, s.store, c, plan)
}

// Delete hard-deletes a collective with its tiers, memberships and
// unprocessed orders. Collectives with processed orders are kept.
func (s *Service) Delete(ctx context.Context, actor *policy.Actor, id int64) (*models.Collective, error) {
	if !actor.LoggedIn() {
		return nil, policy.CanDeleteCollective(actor, nil)
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanDeleteCollective(actor, c); err != nil {
		return nil, err
	}
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.store.CountProcessedOrders(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("count processed orders: %w", err)
		}
		if n > 0 {
			return apperr.Validation("Cannot delete a collective with processed orders")
		}
		return s.store.DeleteCollective(ctx, c.ID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("collective deleted", zap.Int64("collective_id", c.ID), zap.Int64("user_id", actor.UserID()))
	return c, nil
}

// TierFilter narrows the tiers returned with a collective. Zero fields
// match every tier.
type TierFilter struct {
	Slug string
	ID   int64
}

func (f TierFilter) match(t models.Tier) bool {
	return (f.Slug == "" || t.Slug == f.Slug) && (f.ID == 0 || t.ID == f.ID)
}

// Get returns the collective with its tiers matching f.
func (s *Service) Get(ctx context.Context, id int64, f TierFilter) (*View, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withTiers(ctx, c, f)
}

// GetBySlug is Get keyed by the collective slug.
func (s *Service) GetBySlug(ctx context.Context, slug string, f TierFilter) (*View, error) {
	c, err := s.store.GetCollectiveBySlug(ctx, slug)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("No collective found with slug: %s", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("get collective %q: %w", slug, err)
	}
	return s.withTiers(ctx, c, f)
}

func (s *Service) withTiers(ctx context.Context, c *models.Collective, f TierFilter) (*View, error) {
	ts, err := s.store.ListTiersByCollective(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list tiers: %w", err)
	}
	matched := ts[:0:0]
	for _, t := range ts {
		if f.match(t) {
			matched = append(matched, t)
		}
	}
	return s.view(ctx, c, matched)
}

func (s *Service) view(ctx context.Context, c *models.Collective, ts []models.Tier) (*View, error) {
	views, err := tiers.Views(ctx, s.store, ts)
	if err != nil {
		return nil, err
	}
	v := &View{Collective: c, Tiers: views}
	for _, rel := range []struct {
		id  *int64
		dst **models.Account
	}{
		{c.HostCollectiveID, &v.Host},
		{c.ParentCollectiveID, &v.Parent},
	} {
		if rel.id == nil {
			continue
		}
		other, err := s.store.GetCollectiveByID(ctx, *rel.id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get collective %d: %w", *rel.id, err)
		}
		acc := models.AccountOf(other)
		*rel.dst = &acc
	}
	return v, nil
}

func applyScalars(c *models.Collective, in Input) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Name, in.Name)
	set(&c.Description, in.Description)
	set(&c.LongDescription, in.LongDescription)
	set(&c.Website, in.Website)
	set(&c.Image, in.Image)
	set(&c.Currency, in.Currency)
	set(&c.Timezone, in.Timezone)
	if in.StartsAt != nil {
		c.StartsAt = in.StartsAt
	}
	if in.EndsAt != nil {
		c.EndsAt = in.EndsAt
	}
}
