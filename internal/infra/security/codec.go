package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenIssuer is the fixed iss claim of session tokens.
	TokenIssuer = "anjelaweb"
	// TokenAudience is the fixed aud claim of session tokens.
	TokenAudience = "admin"
	// DefaultTokenTTL bounds the lifetime of a session token and its cookie.
	DefaultTokenTTL = 30 * time.Minute
)

// ErrInvalidToken is the single outcome for every malformed, tampered, expired or foreign token.
var ErrInvalidToken = errors.New("security: invalid token")

// SessionPayload is the caller-controlled part of a session token.
type SessionPayload struct {
	Subject      string
	Role         string
	TokenVersion int64
}

// SessionClaims is the full token payload.
type SessionClaims struct {
	Role         string `json:"role"`
	TokenVersion int64  `json:"tokenVersion"`
	jwt.RegisteredClaims
}

// Payload extracts the caller-controlled fields.
func (c *SessionClaims) Payload() SessionPayload {
	return SessionPayload{Subject: c.Subject, Role: c.Role, TokenVersion: c.TokenVersion}
}

// TokenCodec signs and verifies compact HS256 session tokens.
// A single instance is shared by the session manager and the request authorizer.
type TokenCodec struct {
	keys   KeyProvider
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// CodecOption customises a TokenCodec.
type CodecOption func(*TokenCodec)

// WithTokenTTL overrides the token lifetime.
func WithTokenTTL(ttl time.Duration) CodecOption {
	return func(c *TokenCodec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCodecClock injects the time source used for iat/exp.
func WithCodecClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec constructs a codec backed by keys.
func NewTokenCodec(keys KeyProvider, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		keys: keys,
		ttl:  DefaultTokenTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)

	return c
}

// TTL returns the configured token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Sign issues a token for payload, stamping iat, exp, iss and aud.
func (c *TokenCodec) Sign(payload SessionPayload) (string, error) {
	key, err := c.signingKey()
	if err != nil {
		return "", err
	}

	subject := strings.TrimSpace(payload.Subject)
	if subject == "" {
		return "", fmt.Errorf("security: token subject is required")
	}

	now := c.now().UTC()
	claims := SessionClaims{
		Role:         payload.Role,
		TokenVersion: payload.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("security: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks shape, signature, issuer, audience and expiry. Every token
// failure is reported as ErrInvalidToken; a missing secret is ErrMissingSecret.
func (c *TokenCodec) Verify(raw string) (*SessionClaims, error) {
	key, err := c.signingKey()
	if err != nil {
		return nil, err
	}

	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Count(raw, ".") != 2 {
		return nil, ErrInvalidToken
	}

	claims := &SessionClaims{}
	token, err := c.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	// exp equal to now is already expired.
	if claims.ExpiresAt == nil || !claims.ExpiresAt.Time.After(c.now()) {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

func (c *TokenCodec) signingKey() ([]byte, error) {
	if c == nil || c.keys == nil {
		return nil, ErrMissingSecret
	}
	return c.keys.SigningKey()
}
