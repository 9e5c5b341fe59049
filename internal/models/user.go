package models

import (
	"strings"
	"time"
)

// User is a person that can log in. Every user owns a USER collective.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Password     string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	CollectiveID int64     `json:"CollectiveId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// UserPublic is the API shape of a user; Email is nil when redacted.
type UserPublic struct {
	ID           int64   `json:"id"`
	Email        *string `json:"email"`
	FirstName    string  `json:"firstName,omitempty"`
	LastName     string  `json:"lastName,omitempty"`
	CollectiveID int64   `json:"CollectiveId"`
}

// ToPublic converts User to UserPublic, exposing the email only when showEmail is set.
func (u *User) ToPublic(showEmail bool) UserPublic {
	p := UserPublic{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		CollectiveID: u.CollectiveID,
	}
	if showEmail {
		email := u.Email
		p.Email = &email
	}
	return p
}
