package domain

import (
	"math"
	"strings"
	"time"
)

// RateLimitDecision is the outcome of consuming one unit from a rate limit budget.
type RateLimitDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	// Degraded is set when the backend was unavailable and the lenient policy allowed the request.
	Degraded bool
}

// RetryAfterSeconds rounds the retry delay up to whole seconds.
func (d RateLimitDecision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// RateLimitKey scopes a client address to one operation budget.
func RateLimitKey(operation, ip string) string {
	return operation + ":" + ip
}

// RateLimitOperation returns the operation part of a key built by RateLimitKey.
func RateLimitOperation(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return ""
}
