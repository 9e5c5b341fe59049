// Package members adds and removes role memberships between collectives.
package members

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/auth"
	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/policy"
	"github.com/fundhub/backend/internal/store"
	"github.com/fundhub/backend/pkg/apperr"
)

// MemberRef names the member side of a membership: a collective by id, or
// a user by email.
type MemberRef struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// CollectiveRef names the collective side of a membership.
type CollectiveRef struct {
	ID int64 `json:"id"`
}

// Input is the argument of createMember and removeMember.
type Input struct {
	Member     MemberRef         `json:"member"`
	Collective CollectiveRef     `json:"collective"`
	Role       models.MemberRole `json:"role"`
}

// View is a membership as returned to the caller.
type View struct {
	ID         int64             `json:"id"`
	Role       models.MemberRole `json:"role"`
	TierID     *int64            `json:"TierId,omitempty"`
	Member     models.Account    `json:"member"`
	Collective models.Account    `json:"collective"`
}

// Service runs membership mutations.
type Service struct {
	store    store.Store
	identity *auth.IdentityResolver
	logger   *zap.Logger
}

// NewService creates a members service.
func NewService(s store.Store, identity *auth.IdentityResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, identity: identity, logger: logger}
}

func (s *Service) collective(ctx context.Context, id int64) (*models.Collective, error) {
	if id == 0 {
		return nil, apperr.Validation("You need to specify the collective")
	}
	c, err := s.store.GetCollectiveByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("No collective found with id: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get collective %d: %w", id, err)
	}
	return c, nil
}

func validRole(role models.MemberRole) error {
	if !role.Valid() {
		return apperr.Validation("Invalid role: %s", role)
	}
	return nil
}

// Create adds a membership. The member is resolved by collective id, by
// email (creating the user when needed) or defaults to the actor. An
// existing identical membership is returned as is.
func (s *Service) Create(ctx context.Context, actor *policy.Actor, in Input) (*View, error) {
	if err := validRole(in.Role); err != nil {
		return nil, err
	}
	c, err := s.collective(ctx, in.Collective.ID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanAddMember(actor, c, in.Role); err != nil {
		return nil, err
	}

	member, createdBy, err := s.resolveMember(ctx, actor, in.Member)
	if err != nil {
		return nil, err
	}

	var m *models.Member
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := s.store.ListMembers(ctx, models.MemberFilter{
			CollectiveID:       c.ID,
			MemberCollectiveID: member.ID,
			Role:               in.Role,
		})
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		if len(existing) > 0 {
			m = &existing[0]
			return nil
		}
		m = &models.Member{
			CollectiveID:       c.ID,
			MemberCollectiveID: member.ID,
			Role:               in.Role,
			CreatedByUserID:    createdBy,
		}
		if err := s.store.CreateMember(ctx, m); err != nil {
			return fmt.Errorf("create member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("member added",
		zap.Int64("member_id", m.ID),
		zap.Int64("collective_id", c.ID),
		zap.Int64("member_collective_id", member.ID),
		zap.String("role", string(m.Role)))

	return s.view(ctx, actor, m, member, c)
}

// resolveMember returns the member collective and the id of the user to
// record as creator of the membership.
func (s *Service) resolveMember(ctx context.Context, actor *policy.Actor, ref MemberRef) (*models.Collective, int64, error) {
	switch {
	case ref.ID != 0:
		c, err := s.collective(ctx, ref.ID)
		if err != nil {
			return nil, 0, err
		}
		createdBy := actor.UserID()
		if createdBy == 0 {
			if u, err := s.store.GetUserByCollectiveID(ctx, c.ID); err == nil {
				createdBy = u.ID
			}
		}
		return c, createdBy, nil
	case ref.Email != "":
		u, err := s.identity.FindOrCreateByEmail(ctx, ref.Email, ref.FirstName, ref.LastName)
		if err != nil {
			return nil, 0, err
		}
		c, err := s.collective(ctx, u.CollectiveID)
		if err != nil {
			return nil, 0, err
		}
		createdBy := actor.UserID()
		if createdBy == 0 {
			createdBy = u.ID
		}
		return c, createdBy, nil
	case actor.LoggedIn():
		c, err := s.collective(ctx, actor.User.CollectiveID)
		if err != nil {
			return nil, 0, err
		}
		return c, actor.User.ID, nil
	default:
		return nil, 0, apperr.Validation("You need to specify the member")
	}
}

// Remove deletes exactly one membership matching in. A missing membership
// is reported before authorization.
func (s *Service) Remove(ctx context.Context, actor *policy.Actor, in Input) (*models.Member, error) {
	if err := validRole(in.Role); err != nil {
		return nil, err
	}
	memberCollectiveID, err := s.memberCollectiveID(ctx, in.Member)
	if err != nil {
		return nil, err
	}
	if memberCollectiveID == 0 || in.Collective.ID == 0 {
		return nil, apperr.NotFound("Member not found")
	}

	var removed *models.Member
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		found, err := s.store.ListMembers(ctx, models.MemberFilter{
			CollectiveID:       in.Collective.ID,
			MemberCollectiveID: memberCollectiveID,
			Role:               in.Role,
		})
		if err != nil {
			return fmt.Errorf("list members: %w", err)
		}
		if len(found) == 0 {
			return apperr.NotFound("Member not found")
		}
		m := found[0]
		if err := policy.CanRemoveMember(actor, &m); err != nil {
			return err
		}
		if err := s.store.DeleteMember(ctx, m.ID); err != nil {
			return fmt.Errorf("delete member %d: %w", m.ID, err)
		}
		removed = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("member removed",
		zap.Int64("member_id", removed.ID),
		zap.Int64("collective_id", removed.CollectiveID),
		zap.String("role", string(removed.Role)))
	return removed, nil
}

// memberCollectiveID resolves ref without creating anything; zero means no
// such member.
func (s *Service) memberCollectiveID(ctx context.Context, ref MemberRef) (int64, error) {
	if ref.ID != 0 || ref.Email == "" {
		return ref.ID, nil
	}
	u, err := s.store.GetUserByEmail(ctx, ref.Email)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	return u.CollectiveID, nil
}

func (s *Service) view(ctx context.Context, actor *policy.Actor, m *models.Member, member, c *models.Collective) (*View, error) {
	acc := models.AccountOf(member)
	if member.Type == models.CollectiveTypeUser && policy.CanViewPrivateInfo(actor, member.ID, c.ID) {
		u, err := s.store.GetUserByCollectiveID(ctx, member.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get member user: %w", err)
		}
		if u != nil {
			email := u.Email
			acc.Email = &email
		}
	}
	return &View{
		ID:         m.ID,
		Role:       m.Role,
		TierID:     m.TierID,
		Member:     acc,
		Collective: models.AccountOf(c),
	}, nil
}
