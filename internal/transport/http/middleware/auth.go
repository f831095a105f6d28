package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, code, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		Code:    code,
		TraceID: GetTraceID(c),
	}
}

// SessionResolver turns a raw session token into an identity. A nil identity
// with a nil error means the request is anonymous.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Identity, error)
}

// Authenticate resolves the session cookie and stores the identity in the
// context. Anonymous requests pass through; RequireAPI and RequirePage decide.
func Authenticate(resolver SessionResolver, cookie SessionCookie, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if _, err := resolveIdentity(c, resolver, cookie); err != nil {
			log.Error("session resolution failed", zap.String("trace_id", GetTraceID(c)), zap.Error(err))
			markRejected(c, ReasonSessionFailure)
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "internal_error", "authentication unavailable"))
			return
		}

		c.Next()
	}
}

// AuthenticateOptional resolves the session like Authenticate but never
// aborts: a store failure is logged and the request continues as anonymous.
func AuthenticateOptional(resolver SessionResolver, cookie SessionCookie, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if _, err := resolveIdentity(c, resolver, cookie); err != nil {
			log.Warn("session resolution failed, continuing anonymously",
				zap.String("trace_id", GetTraceID(c)),
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
		}

		c.Next()
	}
}

// resolveIdentity resolves and caches the identity for this request.
func resolveIdentity(c *gin.Context, resolver SessionResolver, cookie SessionCookie) (*domain.Identity, error) {
	if identity, ok := CurrentIdentity(c); ok {
		return identity, nil
	}

	token := cookie.Read(c)
	if token == "" || resolver == nil {
		return nil, nil
	}

	identity, err := resolver.Resolve(c.Request.Context(), token)
	if err != nil {
		return nil, err
	}
	if identity != nil {
		c.Set(IdentityKey, identity)
		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.IdentityID = identity.ID
		}
	}
	return identity, nil
}

// RequireAPI rejects API requests without a session (401) or without the
// required role (403).
func RequireAPI(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			markRejected(c, ReasonUnauthorized)
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "unauthorized", "authentication required"))
			return
		}

		if !identity.HasRole(role) {
			markRejected(c, ReasonForbidden)
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "forbidden", "insufficient permissions"))
			return
		}

		c.Next()
	}
}

// RequirePage redirects page requests without a sufficient session to the
// login page, preserving the requested path.
func RequirePage(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if ok && identity.HasRole(role) {
			c.Next()
			return
		}

		markRejected(c, ReasonLoginRedirect)
		target := "/login?redirect=" + url.QueryEscape(c.Request.URL.RequestURI())
		c.Header("Cache-Control", "no-store")
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}
