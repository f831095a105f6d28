package ratelimit

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestRegistryCachesLimitersPerBudget(t *testing.T) {
	registry := NewRegistry(NewMemoryLimiter(zaptest.NewLogger(t)))

	a := registry.For(5, 10*time.Minute)
	b := registry.For(5, 10*time.Minute)
	c := registry.For(30, 10*time.Minute)

	if a != b {
		t.Fatal("expected the same limiter for an identical budget")
	}
	if a == c {
		t.Fatal("expected distinct limiters for distinct budgets")
	}
	if c.Limit() != 30 || c.Window() != 10*time.Minute {
		t.Fatalf("unexpected budget %d/%s", c.Limit(), c.Window())
	}
}

func TestRegistryLimitersShareBackend(t *testing.T) {
	registry := NewRegistry(NewMemoryLimiter(zaptest.NewLogger(t)))
	ctx := context.Background()

	limiter := registry.For(1, time.Minute)
	if d, err := limiter.Allow(ctx, "auth_logout:203.0.113.7"); err != nil || !d.Allowed {
		t.Fatalf("first call should pass, allowed=%v err=%v", d.Allowed, err)
	}
	if d, err := registry.For(1, time.Minute).Allow(ctx, "auth_logout:203.0.113.7"); err != nil || d.Allowed {
		t.Fatalf("second call should be denied, allowed=%v err=%v", d.Allowed, err)
	}
}
