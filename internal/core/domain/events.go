package domain

import "time"

// LockoutCreatedEvent is published when an (email, address) pair transitions to LOCKED.
type LockoutCreatedEvent struct {
	EventID     string
	MaskedEmail string
	IP          string
	Attempts    int
	LockedAt    time.Time
}

// LockoutClearedEvent is published when an unblock token is consumed.
type LockoutClearedEvent struct {
	EventID     string
	MaskedEmail string
	IP          string
	ClearedAt   time.Time
	ClearedBy   string
}

// SessionsRevokedEvent is published after an identity's token version is bumped.
type SessionsRevokedEvent struct {
	EventID      string
	IdentityID   string
	TokenVersion int64
	Reason       string
	RevokedAt    time.Time
}
