package usecase

import "errors"

var (
	// ErrInvalidCredentials is the single outcome for unknown email, wrong
	// password, inactive identity and missing role.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLocked indicates the email or the client address is locked out.
	ErrLocked = errors.New("login locked")
	// ErrMalformedCredentials indicates a missing or oversized email or password.
	ErrMalformedCredentials = errors.New("malformed credentials")
	// ErrUnblockTokenRequired indicates the unblock request carried no token.
	ErrUnblockTokenRequired = errors.New("unblock token required")
	// ErrUnblockTokenInvalid indicates the token is unknown or was already used.
	ErrUnblockTokenInvalid = errors.New("unblock token invalid")
	// ErrLockoutTargetRequired indicates neither an email nor an address was given.
	ErrLockoutTargetRequired = errors.New("lockout email or address required")
	// ErrLockoutNotFound indicates no lockout matched the email or the address.
	ErrLockoutNotFound = errors.New("lockout not found")
	// ErrIdentityNotFound is returned by operator flows that address an identity explicitly.
	ErrIdentityNotFound = errors.New("identity not found")
)
