package model

import "time"

// User represents a ledger participant or administrator
type User struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Hash      string    `json:"-" db:"hash"` // Never expose password hash
	IsAdmin   bool      `json:"isAdmin" db:"is_admin"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CanHoldGoodJobs reports whether the user may own or receive GoodJobs.
// Administrators never can.
func (u *User) CanHoldGoodJobs() bool {
	return !u.IsAdmin
}

// Ref returns the id/name pair used when a user is embedded in another resource
func (u *User) Ref() *UserRef {
	return &UserRef{ID: u.ID, Name: u.Name}
}

// UserRef is a resolved user reference
type UserRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UserUpdate holds optional changes to a user; nil fields are left alone
type UserUpdate struct {
	Name *string
	Hash *string
}
