package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	sessionCookieName       = "admin_token"
	secureSessionCookieName = "__Host-admin_token"
)

// SessionCookie reads and writes the session token cookie. Under TLS the
// cookie carries the __Host- prefix and the Secure attribute.
type SessionCookie struct {
	Secure bool
	MaxAge time.Duration
}

// Name returns the cookie name for the configured transport.
func (s SessionCookie) Name() string {
	if s.Secure {
		return secureSessionCookieName
	}
	return sessionCookieName
}

// Read returns the raw token, or "" when the cookie is absent.
func (s SessionCookie) Read(c *gin.Context) string {
	value, err := c.Cookie(s.Name())
	if err != nil {
		return ""
	}
	return value
}

// Set writes the token cookie.
func (s SessionCookie) Set(c *gin.Context, token string) {
	maxAge := int(s.MaxAge / time.Second)
	if maxAge <= 0 {
		maxAge = 1800
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(s.Name(), token, maxAge, "/", "", s.Secure, true)
}

// Clear expires the token cookie.
func (s SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(s.Name(), "", -1, "/", "", s.Secure, true)
}
