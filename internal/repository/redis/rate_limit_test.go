package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestRateLimitRepository_SlidingWindow(t *testing.T) {
	client, server := newTestRedis(t)

	now := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl"}).WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		decision, err := repo.Consume(ctx, "auth_login:203.0.113.7", 3, time.Minute)
		if err != nil {
			t.Fatalf("consume %d returned error: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if decision.Remaining != 3-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i, 3-i, decision.Remaining)
		}
		now = now.Add(10 * time.Second)
	}

	decision, err := repo.Consume(ctx, "auth_login:203.0.113.7", 3, time.Minute)
	if err != nil {
		t.Fatalf("consume returned error: %v", err)
	}
	if decision.Allowed {
		t.Fatal("fourth request should be denied")
	}
	if got := decision.RetryAfterSeconds(); got != 30 {
		t.Fatalf("expected retry after 30s, got %d", got)
	}

	if got, _ := server.ZMembers("rl:auth_login:203.0.113.7"); len(got) != 3 {
		t.Fatalf("denied request must not be logged, got %d members", len(got))
	}
	if ttl := server.TTL("rl:auth_login:203.0.113.7"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl within (0, 1m], got %v", ttl)
	}

	now = now.Add(30 * time.Second)
	decision, err = repo.Consume(ctx, "auth_login:203.0.113.7", 3, time.Minute)
	if err != nil {
		t.Fatalf("consume returned error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("request should be allowed once the oldest entry leaves the window")
	}
}

func TestRateLimitRepository_KeysAreIndependent(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{})
	ctx := context.Background()

	if d, err := repo.Consume(ctx, "admin_unblock:a", 1, time.Minute); err != nil || !d.Allowed {
		t.Fatalf("first key should pass, allowed=%v err=%v", d.Allowed, err)
	}
	if d, err := repo.Consume(ctx, "admin_unblock:b", 1, time.Minute); err != nil || !d.Allowed {
		t.Fatalf("second key should pass, allowed=%v err=%v", d.Allowed, err)
	}
	if d, err := repo.Consume(ctx, "admin_unblock:a", 1, time.Minute); err != nil || d.Allowed {
		t.Fatalf("first key should be exhausted, allowed=%v err=%v", d.Allowed, err)
	}
}

func TestRateLimitRepository_BackendError(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{})
	server.Close()

	if _, err := repo.Consume(context.Background(), "k", 1, time.Minute); err == nil {
		t.Fatal("expected error when redis is unreachable")
	}
}
