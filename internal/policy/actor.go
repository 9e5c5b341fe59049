// Package policy decides whether an acting user may perform a mutation.
// Every check is a pure function over an Actor and the target rows.
package policy

import (
	"context"
	"fmt"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/store"
)

// Actor is the logged-in user together with the roles its collective holds.
// A nil *Actor is an anonymous caller.
type Actor struct {
	User  *models.User
	roles map[int64]map[models.MemberRole]bool
}

// NewActor builds an actor from the user and the memberships of its collective.
func NewActor(user *models.User, memberships []models.Member) *Actor {
	a := &Actor{User: user, roles: make(map[int64]map[models.MemberRole]bool)}
	for _, m := range memberships {
		if m.MemberCollectiveID == user.CollectiveID {
			a.Grant(m.CollectiveID, m.Role)
		}
	}
	return a
}

// LoadActor reads the user and its memberships from the store.
func LoadActor(ctx context.Context, s store.Store, userID int64) (*Actor, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load actor user: %w", err)
	}
	var memberships []models.Member
	if user.CollectiveID != 0 {
		memberships, err = s.ListMembers(ctx, models.MemberFilter{MemberCollectiveID: user.CollectiveID})
		if err != nil {
			return nil, fmt.Errorf("load actor memberships: %w", err)
		}
	}
	return NewActor(user, memberships), nil
}

// LoggedIn reports whether the actor is authenticated.
func (a *Actor) LoggedIn() bool {
	return a != nil && a.User != nil
}

// Grant records a role acquired during the current request.
func (a *Actor) Grant(collectiveID int64, role models.MemberRole) {
	if a == nil {
		return
	}
	if a.roles[collectiveID] == nil {
		a.roles[collectiveID] = make(map[models.MemberRole]bool)
	}
	a.roles[collectiveID][role] = true
}

// HasRole reports whether the actor holds any of roles on the collective.
func (a *Actor) HasRole(collectiveID int64, roles ...models.MemberRole) bool {
	if !a.LoggedIn() {
		return false
	}
	for _, r := range roles {
		if a.roles[collectiveID][r] {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the actor is an ADMIN of the collective.
func (a *Actor) IsAdmin(collectiveID int64) bool {
	return a.HasRole(collectiveID, models.RoleAdmin)
}

// IsAdminOrHost reports whether the actor is an ADMIN or HOST of the collective.
func (a *Actor) IsAdminOrHost(collectiveID int64) bool {
	return a.HasRole(collectiveID, models.RoleAdmin, models.RoleHost)
}

// Controls reports whether the actor may act as the collective: it is the
// actor's own USER collective or one it administers.
func (a *Actor) Controls(collectiveID int64) bool {
	if !a.LoggedIn() {
		return false
	}
	return a.User.CollectiveID == collectiveID || a.IsAdmin(collectiveID)
}

// IsCreator reports whether the actor created the collective.
func (a *Actor) IsCreator(c *models.Collective) bool {
	return a.LoggedIn() && c.CreatedByUserID != nil && *c.CreatedByUserID == a.User.ID
}

// UserID returns the actor's user id, or 0 when anonymous.
func (a *Actor) UserID() int64 {
	if !a.LoggedIn() {
		return 0
	}
	return a.User.ID
}
