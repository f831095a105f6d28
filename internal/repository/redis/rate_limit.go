package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
)

// slidingWindowScript trims the log, admits the request when under limit and
// reports {allowed, count, resetAtMillis}. Scores are milliseconds supplied by
// the caller so every replica shares one clock source per request.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
	redis.call('ZADD', key, now, member)
	count = count + 1
	allowed = 1
end

local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
	reset = tonumber(oldest[2]) + window
end
redis.call('PEXPIRE', key, window)

return {allowed, count, reset}
`)

// SlidingWindowConfig defines configuration for the sliding window limiter.
type SlidingWindowConfig struct {
	KeyPrefix string
}

// RateLimitRepository is a distributed sliding-window log kept in Redis sorted sets.
type RateLimitRepository struct {
	client *redis.Client
	cfg    SlidingWindowConfig
	now    func() time.Time
}

// NewRateLimitRepository constructs a repository using the provided Redis client and config.
func NewRateLimitRepository(client *redis.Client, cfg SlidingWindowConfig) *RateLimitRepository {
	return &RateLimitRepository{client: client, cfg: cfg, now: time.Now}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (r *RateLimitRepository) WithClock(now func() time.Time) *RateLimitRepository {
	if now != nil {
		r.now = now
	}
	return r
}

// Consume records one request for key and reports whether it fits in the window.
// A denied request is not recorded.
func (r *RateLimitRepository) Consume(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 || window <= 0 {
		return domain.RateLimitDecision{}, errors.New("limit and window must be positive")
	}

	now := r.now()
	nowMillis := now.UnixMilli()

	values, err := slidingWindowScript.Run(ctx, r.client, []string{r.key(key)},
		nowMillis,
		window.Milliseconds(),
		limit,
		fmt.Sprintf("%d-%s", nowMillis, uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("redis sliding window: %w", err)
	}
	if len(values) != 3 {
		return domain.RateLimitDecision{}, fmt.Errorf("redis sliding window: unexpected reply length %d", len(values))
	}

	allowed := values[0] == 1
	count := int(values[1])
	resetAt := time.UnixMilli(values[2])

	decision := domain.RateLimitDecision{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !allowed {
		decision.RetryAfter = resetAt.Sub(time.UnixMilli(nowMillis))
		if decision.RetryAfter < 0 {
			decision.RetryAfter = 0
		}
	}
	return decision, nil
}

func (r *RateLimitRepository) key(identifier string) string {
	if r.cfg.KeyPrefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", r.cfg.KeyPrefix, identifier)
}

var _ port.RateLimiter = (*RateLimitRepository)(nil)
