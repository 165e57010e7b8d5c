package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the single privilege value carried by a user record.
type Role string

// Supported roles. Roles are flat: an admin is not implicitly a moderator.
const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ParseRole normalizes a role label and reports whether it is known.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleUser, RoleModerator, RoleAdmin:
		return role, true
	default:
		return "", false
	}
}

// NormalizeEmail trims and lower-cases an email so that every comparison and
// lookup sees one canonical form.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// User represents an account in the system.
// It is created the first time an identity signs in and carries its role.
type User struct {
	// ID is the unique identifier of the user.
	ID uuid.UUID `json:"id" db:"id"`

	// Email is the unique join key between identity claims and the user record.
	Email string `json:"email" db:"email"`

	// Name is the user's display name.
	Name string `json:"name" db:"name"`

	// PhotoURL points to the user's avatar.
	PhotoURL string `json:"photoURL" db:"photo_url"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role"`

	// CreatedAt is the timestamp when the user record was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
