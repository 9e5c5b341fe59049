package models

import (
	"time"
)

// CollectiveType is the kind of a collective.
type CollectiveType string

const (
	CollectiveTypeUser         CollectiveType = "USER"
	CollectiveTypeOrganization CollectiveType = "ORGANIZATION"
	CollectiveTypeCollective   CollectiveType = "COLLECTIVE"
	CollectiveTypeEvent        CollectiveType = "EVENT"
)

// Valid reports whether t is a known collective type.
func (t CollectiveType) Valid() bool {
	switch t {
	case CollectiveTypeUser, CollectiveTypeOrganization, CollectiveTypeCollective, CollectiveTypeEvent:
		return true
	}
	return false
}

// Collective is a user, organization, collective or event.
type Collective struct {
	ID                 int64          `json:"id"`
	Type               CollectiveType `json:"type"`
	Slug               string         `json:"slug"`
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	LongDescription    string         `json:"longDescription,omitempty"`
	Website            string         `json:"website,omitempty"`
	Image              string         `json:"image,omitempty"`
	Currency           string         `json:"currency"`
	IsActive           bool           `json:"isActive"`
	HostCollectiveID   *int64         `json:"HostCollectiveId,omitempty"`
	ParentCollectiveID *int64         `json:"ParentCollectiveId,omitempty"`
	CreatedByUserID    *int64         `json:"CreatedByUserId,omitempty"`
	StartsAt           *time.Time     `json:"startsAt,omitempty"`
	EndsAt             *time.Time     `json:"endsAt,omitempty"`
	Timezone           string         `json:"timezone,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// IsEvent reports whether the collective is an event of a parent collective.
func (c *Collective) IsEvent() bool {
	return c.Type == CollectiveTypeEvent
}

// DefaultCurrency is used when neither the tier nor the collective set one.
const DefaultCurrency = "USD"
