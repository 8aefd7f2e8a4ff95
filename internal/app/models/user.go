package models

import "time"

// User represents a dashboard account. The same user ID identifies the user
// on the upstream gradebook platform, so resolving a target user is enough to
// fetch on their behalf.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	RoleType     RoleType  `json:"roleType"`
	// ActiveChildID is only meaningful for parents: the linked child whose
	// data the parent is currently viewing. Nil means "not selected".
	ActiveChildID *int64     `json:"activeChildId,omitempty"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// IsParent reports whether the user is a parent account
func (u *User) IsParent() bool {
	return u.RoleType == RoleParent
}

// IsAdmin reports whether the user is an admin account
func (u *User) IsAdmin() bool {
	return u.RoleType == RoleAdmin
}
