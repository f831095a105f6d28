package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// UnblockTokenBytes is the entropy of a lockout unblock token.
const UnblockTokenBytes = 32

var unblockTokenLength = base64.RawURLEncoding.EncodedLen(UnblockTokenBytes)

// GenerateSecureToken returns byteLength random bytes as unpadded base64url.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}

	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// WellFormedUnblockToken reports whether token could have been issued by
// GenerateSecureToken(UnblockTokenBytes). Garbage is rejected before it
// reaches the store.
func WellFormedUnblockToken(token string) bool {
	if len(token) != unblockTokenLength {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil
}

// HashToken returns the hex SHA-256 digest stored in place of a one-time token.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
