package security

import (
	"errors"
	"strings"
)

// ErrMissingSecret indicates the session signing secret is not configured.
var ErrMissingSecret = errors.New("security: session secret not configured")

// KeyProvider supplies the HMAC-SHA256 key shared by every component that signs or verifies session tokens.
type KeyProvider interface {
	SigningKey() ([]byte, error)
}

// StaticKeyProvider serves a secret loaded once from configuration.
type StaticKeyProvider struct {
	secret []byte
}

// NewStaticKeyProvider wraps the configured secret. An empty secret is accepted
// here and reported as ErrMissingSecret when a token is signed or verified.
func NewStaticKeyProvider(secret string) *StaticKeyProvider {
	return &StaticKeyProvider{secret: []byte(strings.TrimSpace(secret))}
}

// SigningKey returns the configured secret.
func (p *StaticKeyProvider) SigningKey() ([]byte, error) {
	if p == nil || len(p.secret) == 0 {
		return nil, ErrMissingSecret
	}
	return p.secret, nil
}
