package policy

import (
	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/pkg/apperr"
)

// CanCreateCollective checks creation of c. parent is required for events.
func CanCreateCollective(a *Actor, c *models.Collective, parent *models.Collective) error {
	if !a.LoggedIn() {
		return apperr.NotAuthenticated("You need to be logged in to create a collective")
	}
	if c.IsEvent() && (parent == nil || !a.IsAdmin(parent.ID)) {
		slug := ""
		if parent != nil {
			slug = parent.Slug
		}
		return apperr.PermissionDenied("You must be logged in as a member of the %s collective to create an event", slug)
	}
	return nil
}

// CanEditCollective checks edits of c. parent is the parent of an event.
func CanEditCollective(a *Actor, c *models.Collective, parent *models.Collective) error {
	if !a.LoggedIn() {
		return apperr.NotAuthenticated("You need to be logged in to edit a collective")
	}
	if a.IsCreator(c) {
		return nil
	}
	if c.IsEvent() {
		if parent != nil && a.IsAdmin(parent.ID) {
			return nil
		}
		slug := ""
		if parent != nil {
			slug = parent.Slug
		}
		return apperr.PermissionDenied("You must be logged in as the creator of this Event or as an admin of the %s collective to edit this Event Collective", slug)
	}
	if a.IsAdminOrHost(c.ID) {
		return nil
	}
	return apperr.PermissionDenied("You must be logged in as the creator of this collective or as a core contributor or as a host of the %s collective to edit it", c.Slug)
}

// CanEditTiers checks tier edits on c.
func CanEditTiers(a *Actor, c *models.Collective) error {
	if !a.LoggedIn() {
		return apperr.NotAuthenticated("You need to be logged in to edit tiers")
	}
	if a.IsAdminOrHost(c.ID) {
		return nil
	}
	return apperr.PermissionDenied("You need to be logged in as a core contributor or as a host of the %s collective", c.Name)
}

// CanDeleteCollective checks deletion of c.
func CanDeleteCollective(a *Actor, c *models.Collective) error {
	if !a.LoggedIn() {
		return apperr.NotAuthenticated("You need to be logged in to delete a collective")
	}
	if a.IsAdminOrHost(c.ID) {
		return nil
	}
	return apperr.PermissionDenied("You need to be logged in as a core contributor or as a host to delete this collective")
}

// CanRemoveMember checks removal of m.
func CanRemoveMember(a *Actor, m *models.Member) error {
	if !a.LoggedIn() {
		return apperr.NotAuthenticated("You need to be logged in to remove a member")
	}
	if a.Controls(m.MemberCollectiveID) || a.IsAdminOrHost(m.CollectiveID) {
		return nil
	}
	return apperr.PermissionDenied("You need to be logged in as this user or as a core contributor or as a host of the collective id %d", m.CollectiveID)
}

// CanAddMember checks adding a member with role to c. Anyone may add a
// FOLLOWER.
func CanAddMember(a *Actor, c *models.Collective, role models.MemberRole) error {
	if role == models.RoleFollower {
		return nil
	}
	if !a.LoggedIn() {
		return apperr.NotAuthenticated("You need to be logged in to add a member")
	}
	if a.IsAdminOrHost(c.ID) {
		return nil
	}
	return apperr.PermissionDenied("You need to be logged in as a core contributor or as a host of the %s collective to add a %s", c.Slug, role)
}

// CanUsePaymentMethod checks use of a stored payment method.
func CanUsePaymentMethod(a *Actor, pm *models.PaymentMethod) error {
	if !a.LoggedIn() {
		return apperr.NotAuthenticated("You need to be logged in to be able to use a payment method on file")
	}
	if a.Controls(pm.CollectiveID) {
		return nil
	}
	return apperr.PermissionDenied("You don't have sufficient permissions to access this payment method")
}

// CanOrderOnBehalfOf checks ordering on behalf of an existing organization.
func CanOrderOnBehalfOf(a *Actor, org *models.Collective) error {
	if !a.LoggedIn() {
		return apperr.NotAuthenticated("You need to be logged in to create an order on behalf of an organization")
	}
	if a.Controls(org.ID) {
		return nil
	}
	return apperr.PermissionDenied("You don't have sufficient permissions to create an order on behalf of the %s organization", org.Name)
}

// CanViewPrivateInfo reports whether the actor may see private fields, such
// as the email, of the subject collective. Admins and hosts of the context
// collective see the private info of its members.
func CanViewPrivateInfo(a *Actor, subjectCollectiveID, contextCollectiveID int64) bool {
	if !a.LoggedIn() {
		return false
	}
	if a.Controls(subjectCollectiveID) {
		return true
	}
	return contextCollectiveID != 0 && a.IsAdminOrHost(contextCollectiveID)
}
