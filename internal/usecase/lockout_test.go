package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository/memory"
)

const (
	lockEmail = "owner@example.com"
	lockIP    = "203.0.113.7"
)

func TestLockoutServiceStateMachine(t *testing.T) {
	env := newTestEnv(t, domain.LockoutExpiryPolicy{})
	ctx := context.Background()

	for i := 1; i < domain.DefaultLockoutThreshold; i++ {
		if err := env.lockouts.RecordFailure(ctx, lockEmail, lockIP, "(provided)"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("failure %d: expected ErrInvalidCredentials, got %v", i, err)
		}
		status, err := env.lockouts.Status(ctx, lockEmail, lockIP)
		if err != nil {
			t.Fatalf("Status returned error: %v", err)
		}
		if status.State != domain.LockoutStateAttempting || status.Attempts != i {
			t.Fatalf("failure %d: unexpected status %+v", i, status)
		}
	}

	if err := env.lockouts.RecordFailure(ctx, lockEmail, lockIP, "(provided)"); !errors.Is(err, ErrLocked) {
		t.Fatalf("fifth failure: expected ErrLocked, got %v", err)
	}

	if got := env.lockoutDB.LockoutCount(); got != 1 {
		t.Fatalf("expected exactly one lockout, got %d", got)
	}
	if _, err := env.lockoutDB.GetAttempt(ctx, lockEmail, lockIP); err == nil {
		t.Fatal("attempt row must be removed when the lockout is created")
	}
	if env.notifier.count() != 1 {
		t.Fatalf("expected one operator notification, got %d", env.notifier.count())
	}
	if len(env.publisher.created) != 1 {
		t.Fatalf("expected one lockout created event, got %d", len(env.publisher.created))
	}

	notification := env.notifier.notifications[0]
	if strings.Contains(notification.MaskedEmail, "owner@") {
		t.Fatalf("notification must carry a masked email, got %q", notification.MaskedEmail)
	}
	if !strings.HasPrefix(notification.UnblockURL, "https://anjela.example/admin/unblock?token=") {
		t.Fatalf("unexpected unblock url %q", notification.UnblockURL)
	}
	if notification.Attempts != domain.DefaultLockoutThreshold {
		t.Fatalf("unexpected attempts %d", notification.Attempts)
	}

	if err := env.lockouts.Check(ctx, lockEmail, lockIP); !errors.Is(err, ErrLocked) {
		t.Fatalf("sixth attempt: expected ErrLocked, got %v", err)
	}
	if _, err := env.lockoutDB.GetAttempt(ctx, lockEmail, lockIP); err == nil {
		t.Fatal("a locked pair must not accumulate attempts")
	}

	token := tokenFromURL(t, notification.UnblockURL)
	if token != env.tokens[0] {
		t.Fatalf("notification token does not match the generated token")
	}
	lockout, err := env.lockouts.Unblock(ctx, token, "link")
	if err != nil {
		t.Fatalf("Unblock returned error: %v", err)
	}
	if lockout.Email != lockEmail {
		t.Fatalf("unexpected lockout %+v", lockout)
	}

	status, err := env.lockouts.Status(ctx, lockEmail, lockIP)
	if err != nil {
		t.Fatalf("Status returned error: %v", err)
	}
	if status.State != domain.LockoutStateClean {
		t.Fatalf("expected CLEAN after unblock, got %+v", status)
	}
	if len(env.publisher.cleared) != 1 {
		t.Fatalf("expected one lockout cleared event, got %d", len(env.publisher.cleared))
	}

	if _, err := env.lockouts.Unblock(ctx, token, "link"); !errors.Is(err, ErrUnblockTokenInvalid) {
		t.Fatalf("second unblock: expected ErrUnblockTokenInvalid, got %v", err)
	}
}

func TestLockoutServiceUnblockValidation(t *testing.T) {
	env := newTestEnv(t, domain.LockoutExpiryPolicy{})
	ctx := context.Background()

	if _, err := env.lockouts.Unblock(ctx, "   ", "link"); !errors.Is(err, ErrUnblockTokenRequired) {
		t.Fatalf("expected ErrUnblockTokenRequired, got %v", err)
	}
	if _, err := env.lockouts.Unblock(ctx, "never-issued", "link"); !errors.Is(err, ErrUnblockTokenInvalid) {
		t.Fatalf("expected ErrUnblockTokenInvalid, got %v", err)
	}
}

func TestLockoutServiceBlocksByEmailOrAddress(t *testing.T) {
	env := newTestEnv(t, domain.LockoutExpiryPolicy{})
	ctx := context.Background()

	for i := 0; i < domain.DefaultLockoutThreshold; i++ {
		_ = env.lockouts.RecordFailure(ctx, lockEmail, lockIP, "(provided)")
	}

	if err := env.lockouts.Check(ctx, lockEmail, "198.51.100.20"); !errors.Is(err, ErrLocked) {
		t.Fatalf("same email from another address must be locked, got %v", err)
	}
	if err := env.lockouts.Check(ctx, "someone@example.com", lockIP); !errors.Is(err, ErrLocked) {
		t.Fatalf("another email from the same address must be locked, got %v", err)
	}
	if err := env.lockouts.Check(ctx, "someone@example.com", "198.51.100.20"); err != nil {
		t.Fatalf("unrelated pair must be clean, got %v", err)
	}
}

func TestLockoutServiceRecordSuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t, domain.LockoutExpiryPolicy{})
	ctx := context.Background()

	for i := 0; i < domain.DefaultLockoutThreshold-1; i++ {
		_ = env.lockouts.RecordFailure(ctx, lockEmail, lockIP, "(provided)")
	}
	if err := env.lockouts.RecordSuccess(ctx, lockEmail, lockIP); err != nil {
		t.Fatalf("RecordSuccess returned error: %v", err)
	}
	if err := env.lockouts.RecordFailure(ctx, lockEmail, lockIP, "(provided)"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("counter must restart after success, got %v", err)
	}
}

func TestLockoutServiceTTLPolicy(t *testing.T) {
	repo := memory.NewLockoutRepository()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	svc := NewLockoutService(repo, nil, nil, nil, nil,
		LockoutConfig{Expiry: domain.NewLockoutExpiryPolicy("ttl", time.Hour)},
		zaptest.NewLogger(t),
		WithLockoutClock(clock),
	)
	ctx := context.Background()

	for i := 0; i < domain.DefaultLockoutThreshold; i++ {
		_ = svc.RecordFailure(ctx, lockEmail, lockIP, "(empty)")
	}
	if err := svc.Check(ctx, lockEmail, lockIP); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked within ttl, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	if err := svc.Check(ctx, lockEmail, lockIP); err != nil {
		t.Fatalf("expected lockout to expire under ttl policy, got %v", err)
	}
	removed, err := svc.PurgeExpired(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("PurgeExpired = %d, %v", removed, err)
	}
}

func TestLockoutServiceManualPolicyNeverExpires(t *testing.T) {
	repo := memory.NewLockoutRepository()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	svc := NewLockoutService(repo, nil, nil, nil, nil,
		LockoutConfig{Expiry: domain.NewLockoutExpiryPolicy("manual", time.Hour)},
		zaptest.NewLogger(t),
		WithLockoutClock(fixedClock(now)),
	)
	ctx := context.Background()

	for i := 0; i < domain.DefaultLockoutThreshold; i++ {
		_ = svc.RecordFailure(ctx, lockEmail, lockIP, "(empty)")
	}

	later := NewLockoutService(repo, nil, nil, nil, nil,
		LockoutConfig{Expiry: domain.NewLockoutExpiryPolicy("manual", time.Hour)},
		zaptest.NewLogger(t),
		WithLockoutClock(fixedClock(now.Add(365*24*time.Hour))),
	)
	if err := later.Check(ctx, lockEmail, lockIP); !errors.Is(err, ErrLocked) {
		t.Fatalf("manual lockouts must not expire, got %v", err)
	}
	if removed, err := later.PurgeExpired(ctx); err != nil || removed != 0 {
		t.Fatalf("PurgeExpired under manual policy = %d, %v", removed, err)
	}
}

func TestLockoutServiceClearLockoutsWhenNotificationLost(t *testing.T) {
	env := newTestEnv(t, domain.LockoutExpiryPolicy{})
	env.notifier.err = errors.New("notify: queue full")
	ctx := context.Background()

	for i := 0; i < domain.DefaultLockoutThreshold; i++ {
		_ = env.lockouts.RecordFailure(ctx, lockEmail, lockIP, "(provided)")
	}
	for i := 0; i < domain.DefaultLockoutThreshold; i++ {
		_ = env.lockouts.RecordFailure(ctx, "editor@example.com", "198.51.100.20", "(provided)")
	}
	if got := env.lockoutDB.LockoutCount(); got != 2 {
		t.Fatalf("expected two lockouts despite the failed notification, got %d", got)
	}

	if _, err := env.lockouts.ClearLockouts(ctx, "", " ", "cli"); !errors.Is(err, ErrLockoutTargetRequired) {
		t.Fatalf("expected ErrLockoutTargetRequired, got %v", err)
	}

	removed, err := env.lockouts.ClearLockouts(ctx, " Owner@Example.com ", "", "cli")
	if err != nil {
		t.Fatalf("ClearLockouts returned error: %v", err)
	}
	if len(removed) != 1 || removed[0].IP != lockIP {
		t.Fatalf("unexpected removed lockouts %+v", removed)
	}
	if err := env.lockouts.Check(ctx, lockEmail, "192.0.2.99"); err != nil {
		t.Fatalf("expected email to be usable again, got %v", err)
	}
	if err := env.lockouts.Check(ctx, "editor@example.com", "198.51.100.20"); !errors.Is(err, ErrLocked) {
		t.Fatalf("unrelated lockout must remain, got %v", err)
	}
	if len(env.publisher.cleared) != 1 || env.publisher.cleared[0].ClearedBy != "cli" {
		t.Fatalf("expected one cleared event by cli, got %+v", env.publisher.cleared)
	}

	if _, err := env.lockouts.ClearLockouts(ctx, lockEmail, "", "cli"); !errors.Is(err, ErrLockoutNotFound) {
		t.Fatalf("expected ErrLockoutNotFound, got %v", err)
	}
}

func TestLockoutServiceConcurrentFailuresAtThreshold(t *testing.T) {
	env := newTestEnv(t, domain.LockoutExpiryPolicy{})
	ctx := context.Background()

	for i := 1; i < domain.DefaultLockoutThreshold; i++ {
		_ = env.lockouts.RecordFailure(ctx, lockEmail, lockIP, "(provided)")
	}

	// Fewer racers than the threshold, so a fresh counter can never reach it again.
	racers := domain.DefaultLockoutThreshold - 1
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs <- env.lockouts.RecordFailure(ctx, lockEmail, lockIP, "(provided)")
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		if !errors.Is(err, ErrLocked) && !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("unexpected error %v", err)
		}
	}
	if got := env.lockoutDB.LockoutCount(); got != 1 {
		t.Fatalf("expected exactly one lockout, got %d", got)
	}
	if got := env.notifier.count(); got != 1 {
		t.Fatalf("expected exactly one notification, got %d", got)
	}
}
