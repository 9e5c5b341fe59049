package models

import "time"

// MemberRole is the role of a member collective in a collective.
type MemberRole string

const (
	RoleAdmin    MemberRole = "ADMIN"
	RoleHost     MemberRole = "HOST"
	RoleMember   MemberRole = "MEMBER"
	RoleBacker   MemberRole = "BACKER"
	RoleAttendee MemberRole = "ATTENDEE"
	RoleFollower MemberRole = "FOLLOWER"
)

// Valid reports whether r is a known role.
func (r MemberRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleHost, RoleMember, RoleBacker, RoleAttendee, RoleFollower:
		return true
	}
	return false
}

// Member links a member collective to a collective with a role.
type Member struct {
	ID                 int64      `json:"id"`
	CollectiveID       int64      `json:"CollectiveId"`
	MemberCollectiveID int64      `json:"MemberCollectiveId"`
	Role               MemberRole `json:"role"`
	TierID             *int64     `json:"TierId,omitempty"`
	CreatedByUserID    int64      `json:"CreatedByUserId"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// MemberFilter narrows member lookups; zero fields are ignored.
type MemberFilter struct {
	CollectiveID       int64
	MemberCollectiveID int64
	Role               MemberRole
	TierID             *int64
}

// Matches reports whether m satisfies the filter.
func (f MemberFilter) Matches(m *Member) bool {
	if f.CollectiveID != 0 && m.CollectiveID != f.CollectiveID {
		return false
	}
	if f.MemberCollectiveID != 0 && m.MemberCollectiveID != f.MemberCollectiveID {
		return false
	}
	if f.Role != "" && m.Role != f.Role {
		return false
	}
	if f.TierID != nil && (m.TierID == nil || *m.TierID != *f.TierID) {
		return false
	}
	return true
}
