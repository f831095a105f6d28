package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
)

const defaultSweepInterval = time.Minute

type windowEntry struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a process-local fixed-window limiter. Counters are not
// shared between replicas, so it is only suitable for single-instance or
// development deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry

	now           func() time.Time
	sweepInterval time.Duration
	logger        *zap.Logger

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// MemoryOption customises a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithMemoryClock injects the time source.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *MemoryLimiter) {
		if now != nil {
			m.now = now
		}
	}
}

// WithSweepInterval sets how often expired windows are dropped once Start is called.
func WithSweepInterval(interval time.Duration) MemoryOption {
	return func(m *MemoryLimiter) {
		if interval > 0 {
			m.sweepInterval = interval
		}
	}
}

// NewMemoryLimiter constructs an idle limiter. Call Start to enable the sweep.
func NewMemoryLimiter(logger *zap.Logger, opts ...MemoryOption) *MemoryLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &MemoryLimiter{
		entries:       make(map[string]*windowEntry),
		now:           time.Now,
		sweepInterval: defaultSweepInterval,
		logger:        logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.logger.Warn("in-memory rate limiter enabled; limits are per process and unreliable when horizontally scaled")
	return m
}

// Consume counts one request for key inside a fixed window.
func (m *MemoryLimiter) Consume(_ context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	now := m.now()

	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok || !entry.resetAt.After(now) {
		entry = &windowEntry{count: 1, resetAt: now.Add(window)}
		m.entries[key] = entry
	} else {
		entry.count++
	}
	count, resetAt := entry.count, entry.resetAt
	m.mu.Unlock()

	decision := domain.RateLimitDecision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: limit - count,
		ResetAt:   resetAt,
	}
	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	if !decision.Allowed {
		decision.RetryAfter = resetAt.Sub(now)
	}
	return decision, nil
}

// Sweep drops every expired window and reports how many were removed.
func (m *MemoryLimiter) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.entries {
		if !entry.resetAt.After(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Start launches the sweep goroutine. It stops when ctx is cancelled or Stop is called.
func (m *MemoryLimiter) Start(ctx context.Context) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if m.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go m.sweepLoop(ctx, done)
}

// Stop halts the sweep goroutine and waits for it to exit.
func (m *MemoryLimiter) Stop() {
	m.lifecycle.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.lifecycle.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *MemoryLimiter) sweepLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.Sweep(); removed > 0 {
				m.logger.Debug("rate limiter sweep", zap.Int("removed", removed), zap.Int("remaining", m.Len()))
			}
		}
	}
}

var _ port.RateLimiter = (*MemoryLimiter)(nil)
