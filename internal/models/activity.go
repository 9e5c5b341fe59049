package models

import "time"

// Activity types.
const (
	ActivityCollectiveMemberCreated = "collective.member.created"
)

// Activity is an immutable record of something that happened to a collective.
type Activity struct {
	ID           int64        `json:"id"`
	Type         string       `json:"type"`
	CollectiveID int64        `json:"CollectiveId"`
	UserID       *int64       `json:"UserId,omitempty"`
	Data         ActivityData `json:"data"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// ActivityData is the payload of a collective.member.created activity.
type ActivityData struct {
	Member     *ActivityMember     `json:"member,omitempty"`
	Collective *ActivityCollective `json:"collective,omitempty"`
	Order      *ActivityOrder      `json:"order,omitempty"`
}

// ActivityMember describes the membership granted.
type ActivityMember struct {
	ID               int64      `json:"id"`
	Role             MemberRole `json:"role"`
	MemberCollective Account    `json:"memberCollective"`
}

// ActivityCollective describes the collective that received the member.
type ActivityCollective struct {
	ID   int64          `json:"id"`
	Type CollectiveType `json:"type"`
	Slug string         `json:"slug"`
	Name string         `json:"name"`
}

// ActivityOrder describes the order behind the membership.
type ActivityOrder struct {
	ID            int64                 `json:"id"`
	TotalAmount   int64                 `json:"totalAmount"`
	Currency      string                `json:"currency"`
	Quantity      int                   `json:"quantity"`
	PublicMessage string                `json:"publicMessage,omitempty"`
	Subscription  *ActivitySubscription `json:"subscription,omitempty"`
}

// ActivitySubscription is the recurring part of an order, if any.
type ActivitySubscription struct {
	ID       int64  `json:"id"`
	Interval string `json:"interval"`
}
