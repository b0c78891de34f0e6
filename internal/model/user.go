package model

import "time"

// Role is the authorization role of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// IsAdmin reports whether the role grants catalog and moderation rights.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// User is an account of the booking system. The password hash never leaves the server.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdmin is a nil-safe shortcut for u.Role.IsAdmin().
func (u *User) IsAdmin() bool {
	return u != nil && u.Role.IsAdmin()
}
