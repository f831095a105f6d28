package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/security"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository/memory"
)

func TestSessionServiceIssueAndResolve(t *testing.T) {
	env := newTestEnv(t, domain.LockoutExpiryPolicy{})
	identity := env.createIdentity(t, "owner@example.com", "pw", domain.RoleAdmin)
	ctx := context.Background()

	issued, err := env.sessions.Issue(ctx, *identity)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if issued.Token == "" || issued.ExpiresAt.IsZero() {
		t.Fatalf("unexpected issued session %+v", issued)
	}

	resolved, err := env.sessions.Resolve(ctx, issued.Token)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved == nil || resolved.ID != identity.ID || resolved.Role != domain.RoleAdmin {
		t.Fatalf("unexpected resolved identity %+v", resolved)
	}
	if resolved.PasswordHash != "" {
		t.Fatal("resolved identity must not carry the password hash")
	}
}

func TestSessionServiceRevokeAllInvalidatesExistingTokens(t *testing.T) {
	env := newTestEnv(t, domain.LockoutExpiryPolicy{})
	identity := env.createIdentity(t, "owner@example.com", "pw", domain.RoleAdmin)
	ctx := context.Background()

	issued, err := env.sessions.Issue(ctx, *identity)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	version, err := env.sessions.RevokeAll(ctx, identity.ID, "test")
	if err != nil {
		t.Fatalf("RevokeAll returned error: %v", err)
	}
	if version != identity.TokenVersion+1 {
		t.Fatalf("expected version %d, got %d", identity.TokenVersion+1, version)
	}

	resolved, err := env.sessions.Resolve(ctx, issued.Token)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if resolved != nil {
		t.Fatal("token issued before RevokeAll must not resolve")
	}

	if len(env.publisher.revoked) != 1 || env.publisher.revoked[0].TokenVersion != version {
		t.Fatalf("expected one sessions revoked event, got %+v", env.publisher.revoked)
	}

	current, err := env.identities.GetByID(ctx, identity.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	fresh, err := env.sessions.Issue(ctx, *current)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if resolved, _ := env.sessions.Resolve(ctx, fresh.Token); resolved == nil {
		t.Fatal("token issued after RevokeAll must resolve")
	}
}

func TestSessionServiceResolveRejects(t *testing.T) {
	env := newTestEnv(t, domain.LockoutExpiryPolicy{})
	ctx := context.Background()

	inactive, err := env.identities.Upsert(ctx, domain.Identity{Email: "gone@example.com", PasswordHash: "plain$pw", Role: domain.RoleAdmin, IsActive: false})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	inactiveToken, err := env.sessions.Issue(ctx, *inactive)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	orphanToken, err := env.sessions.Issue(ctx, domain.Identity{ID: "does-not-exist", Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	for name, token := range map[string]string{
		"empty":    "",
		"garbage":  "a.b.c",
		"inactive": inactiveToken.Token,
		"orphan":   orphanToken.Token,
	} {
		identity, err := env.sessions.Resolve(ctx, token)
		if err != nil {
			t.Fatalf("%s: Resolve returned error: %v", name, err)
		}
		if identity != nil {
			t.Fatalf("%s: expected anonymous, got %+v", name, identity)
		}
	}
}

func TestSessionServiceMissingSecretIsAnError(t *testing.T) {
	codec := security.NewTokenCodec(security.NewStaticKeyProvider(""))
	sessions := NewSessionService(codec, memory.NewIdentityRepository(), nil, nil, zaptest.NewLogger(t))

	if _, err := sessions.Resolve(context.Background(), "a.b.c"); !errors.Is(err, security.ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := sessions.Issue(context.Background(), domain.Identity{ID: "id"}); !errors.Is(err, security.ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret from Issue, got %v", err)
	}
}

func TestSessionServiceRevokeAllUnknownIdentity(t *testing.T) {
	env := newTestEnv(t, domain.LockoutExpiryPolicy{})
	if _, err := env.sessions.RevokeAll(context.Background(), "missing", "test"); !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
}

func TestSessionServiceConcurrentRevokeAllBumpsEveryTime(t *testing.T) {
	env := newTestEnv(t, domain.LockoutExpiryPolicy{})
	identity := env.createIdentity(t, "owner@example.com", "pw", domain.RoleAdmin)
	ctx := context.Background()

	issued, err := env.sessions.Issue(ctx, *identity)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	const logouts = 16
	versions := make(chan int64, logouts)
	var wg sync.WaitGroup
	for i := 0; i < logouts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			version, err := env.sessions.RevokeAll(ctx, identity.ID, "logout")
			if err != nil {
				t.Errorf("RevokeAll returned error: %v", err)
				return
			}
			versions <- version
		}()
	}
	wg.Wait()
	close(versions)

	seen := make(map[int64]bool)
	for version := range versions {
		if seen[version] {
			t.Fatalf("token version %d returned twice", version)
		}
		seen[version] = true
	}

	stored, err := env.identities.GetByID(ctx, identity.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if want := identity.TokenVersion + logouts; stored.TokenVersion != want {
		t.Fatalf("expected token version %d, got %d", want, stored.TokenVersion)
	}

	resolved, err := env.sessions.Resolve(ctx, issued.Token)
	if err != nil || resolved != nil {
		t.Fatalf("expected pre-revocation token to be rejected, got %+v (%v)", resolved, err)
	}
}
