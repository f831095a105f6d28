package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/logger"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/ratelimit"
)

const (
	rateLimitProblemType  = "rate_limit_exceeded"
	rateLimitProblemTitle = "Rate Limit Exceeded"

	// Operation names used as rate limit key prefixes.
	OperationLogin   = "auth_login"
	OperationLogout  = "auth_logout"
	OperationUnblock = "admin_unblock"
)

// Allower consumes one unit of a fixed budget for a key.
type Allower interface {
	Allow(ctx context.Context, key string) (domain.RateLimitDecision, error)
	Limit() int
}

// ProblemDetails represents an RFC 9457 compatible error payload for rate limits.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// RateLimit enforces limiter for the named operation, keyed by client address.
func RateLimit(operation string, limiter Allower, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		ip := ClientIP(c)
		key := domain.RateLimitKey(operation, ip)

		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, ratelimit.ErrLimiterUnavailable) {
				markRejected(c, ReasonUnavailable)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable,
					newErrorResponse(c, "rate_limiter_unavailable", "service temporarily unavailable"))
				return
			}
			log.Warn("rate limit check failed",
				zap.String("operation", operation),
				zap.String("client_ip", logger.MaskIP(ip)),
				zap.Error(err),
			)
			c.Next()
			return
		}

		applyRateLimitHeaders(c, decision)

		if !decision.Allowed {
			respondRateLimited(c, decision)
			return
		}

		c.Next()
	}
}

func applyRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit <= 0 {
		return
	}
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(decision.Remaining, 0)))
	if !decision.ResetAt.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
	}
}

func respondRateLimited(c *gin.Context, decision domain.RateLimitDecision) {
	retrySeconds := decision.RetryAfterSeconds()
	c.Header("Retry-After", strconv.Itoa(retrySeconds))

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	markRejected(c, ReasonRateLimited)
	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      rateLimitProblemTitle,
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", retrySeconds),
		Instance:   instance,
		RetryAfter: retrySeconds,
		TraceID:    GetTraceID(c),
	})
}
