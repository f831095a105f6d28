package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the context key for trace ID
	TraceIDKey = "trace_id"
	// IdentityKey is the context key for the identity resolved from the session cookie
	IdentityKey = "identity"

	requestContextKey = "request_context"

	// UnknownClientIP is used when the client address cannot be determined.
	UnknownClientIP = "unknown"
)

// RequestContext holds request-scoped information
type RequestContext struct {
	TraceID    string
	IdentityID string
	IP         string
	UserAgent  string
}

// EnrichContext adds trace ID and request context to each request
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
				traceID = sc.TraceID().String()
			} else {
				traceID = uuid.NewString()
			}
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        ClientIP(c),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// ClientIP returns the client address as resolved by gin's trusted proxy
// handling, or UnknownClientIP.
func ClientIP(c *gin.Context) string {
	ip := strings.TrimSpace(c.ClientIP())
	if ip == "" {
		return UnknownClientIP
	}
	return ip
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestContext retrieves the full request context
func GetRequestContext(c *gin.Context) *RequestContext {
	if ctx, exists := c.Get(requestContextKey); exists {
		if reqCtx, ok := ctx.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{IP: ClientIP(c), UserAgent: c.Request.UserAgent()}
}

// CurrentIdentity returns the identity resolved by Authenticate, if any.
func CurrentIdentity(c *gin.Context) (*domain.Identity, bool) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*domain.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
