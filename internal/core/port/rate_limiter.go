package port

import (
	"context"
	"time"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
)

// RateLimiter consumes one unit of budget for key within a window of the given size.
type RateLimiter interface {
	Consume(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error)
}
