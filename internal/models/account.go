package models

// Account is a member collective rendered for API responses. Kind tells
// whether it is a person (USER) or an organization-like collective, and
// Email is only set for people when the viewer may see it.
type Account struct {
	Kind  CollectiveType `json:"kind"`
	ID    int64          `json:"id"`
	Slug  string         `json:"slug"`
	Name  string         `json:"name"`
	Email *string        `json:"email"`
}

// IsUser reports whether the account is a person.
func (a Account) IsUser() bool {
	return a.Kind == CollectiveTypeUser
}

// AccountOf builds the account view of a collective without private fields.
func AccountOf(c *Collective) Account {
	return Account{Kind: c.Type, ID: c.ID, Slug: c.Slug, Name: c.Name}
}
