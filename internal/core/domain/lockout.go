package domain

import (
	"strings"
	"time"
)

// DefaultLockoutThreshold is the number of consecutive failures that locks an (email, address) pair.
const DefaultLockoutThreshold = 5

// LoginAttempt counts failed logins for a single (email, address) pair.
type LoginAttempt struct {
	Email            string
	IP               string
	Count            int
	FirstAttemptAt   time.Time
	LastAttemptAt    time.Time
	LastPasswordHint string
}

// Lockout blocks logins for an (email, address) pair until its one-time token is consumed.
// TokenHash is the SHA-256 digest of the token; the raw token only travels in the operator notification.
type Lockout struct {
	TokenHash        string
	Email            string
	IP               string
	LastPasswordHint string
	CreatedAt        time.Time
}

// LockoutState enumerates the per-pair login state machine.
type LockoutState string

const (
	LockoutStateClean      LockoutState = "CLEAN"
	LockoutStateAttempting LockoutState = "ATTEMPTING"
	LockoutStateLocked     LockoutState = "LOCKED"
)

// LockoutStatus is a snapshot of the state machine for a pair.
type LockoutStatus struct {
	State    LockoutState
	Attempts int
	Lockout  *Lockout
}

// LockoutExpiryMode selects how lockouts are cleared.
type LockoutExpiryMode string

const (
	// LockoutExpiryManual keeps a lockout until its unblock token is consumed.
	LockoutExpiryManual LockoutExpiryMode = "manual"
	// LockoutExpiryTTL additionally ignores and purges lockouts older than the policy TTL.
	LockoutExpiryTTL LockoutExpiryMode = "ttl"
)

// LockoutExpiryPolicy names the lockout expiry behaviour explicitly.
type LockoutExpiryPolicy struct {
	Mode LockoutExpiryMode
	TTL  time.Duration
}

// NewLockoutExpiryPolicy builds a policy from configuration values. A ttl mode
// without a positive duration falls back to manual.
func NewLockoutExpiryPolicy(mode string, ttl time.Duration) LockoutExpiryPolicy {
	switch LockoutExpiryMode(strings.ToLower(strings.TrimSpace(mode))) {
	case LockoutExpiryTTL:
		if ttl > 0 {
			return LockoutExpiryPolicy{Mode: LockoutExpiryTTL, TTL: ttl}
		}
	}
	return LockoutExpiryPolicy{Mode: LockoutExpiryManual}
}

// ActiveSince returns the oldest creation time still considered active, or the
// zero time when lockouts never expire.
func (p LockoutExpiryPolicy) ActiveSince(now time.Time) time.Time {
	if p.Mode != LockoutExpiryTTL || p.TTL <= 0 {
		return time.Time{}
	}
	return now.Add(-p.TTL)
}

// PasswordHint records whether a password was supplied without storing it.
func PasswordHint(password string) string {
	if password == "" {
		return "(empty)"
	}
	return "(provided)"
}

// LockoutNotification is delivered to the operator when a pair becomes LOCKED.
type LockoutNotification struct {
	MaskedEmail  string
	IP           string
	PasswordHint string
	Attempts     int
	UnblockURL   string
	LockedAt     time.Time
}
