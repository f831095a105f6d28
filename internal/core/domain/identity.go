package domain

import (
	"strings"
	"time"
)

// Role names an authorization level carried in session tokens.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole normalises textual input into a known role, defaulting to RoleUser.
func ParseRole(value string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUser
	}
}

// Identity mirrors the persisted representation in the identities table.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	TokenVersion int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the identity satisfies the required role.
// ADMIN satisfies every role.
func (i Identity) HasRole(required Role) bool {
	if required == "" {
		return true
	}
	return i.Role == RoleAdmin || i.Role == required
}

// NormalizeEmail lowercases and trims an email for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
