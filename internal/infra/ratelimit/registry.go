package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
)

// Limiter is a backend bound to one (limit, window) budget.
type Limiter struct {
	backend port.RateLimiter
	limit   int
	window  time.Duration
}

// Allow consumes one unit of the budget for key.
func (l *Limiter) Allow(ctx context.Context, key string) (domain.RateLimitDecision, error) {
	return l.backend.Consume(ctx, key, l.limit, l.window)
}

// Limit returns the number of requests allowed per window.
func (l *Limiter) Limit() int {
	return l.limit
}

// Window returns the window size.
func (l *Limiter) Window() time.Duration {
	return l.window
}

type budget struct {
	limit  int
	window time.Duration
}

// Registry hands out one Limiter per distinct (limit, window) pair.
type Registry struct {
	backend port.RateLimiter

	mu       sync.Mutex
	limiters map[budget]*Limiter
}

// NewRegistry creates a registry over backend.
func NewRegistry(backend port.RateLimiter) *Registry {
	return &Registry{
		backend:  backend,
		limiters: make(map[budget]*Limiter),
	}
}

// For returns the cached limiter for the pair, creating it on first use.
func (r *Registry) For(limit int, window time.Duration) *Limiter {
	key := budget{limit: limit, window: window}

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[key]; ok {
		return l
	}
	l := &Limiter{backend: r.backend, limit: limit, window: window}
	r.limiters[key] = l
	return l
}

// Backend exposes the underlying limiter.
func (r *Registry) Backend() port.RateLimiter {
	return r.backend
}
