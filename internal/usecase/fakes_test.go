package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/security"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository/memory"
)

const testSessionSecret = "usecase-test-secret-0123456789abcdef"

// plainHasher keeps tests fast; production uses security.Argon2Hasher.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "plain$" + password, nil }

func (plainHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "plain$"+password, nil
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []domain.LockoutNotification
	// err, when set, is returned after the notification is recorded.
	err error
}

func (n *recordingNotifier) NotifyLockout(_ context.Context, notification domain.LockoutNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notifications)
}

type recordingPublisher struct {
	mu      sync.Mutex
	created []domain.LockoutCreatedEvent
	cleared []domain.LockoutClearedEvent
	revoked []domain.SessionsRevokedEvent
}

func (p *recordingPublisher) PublishLockoutCreated(_ context.Context, event domain.LockoutCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, event)
	return nil
}

func (p *recordingPublisher) PublishLockoutCleared(_ context.Context, event domain.LockoutClearedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cleared = append(p.cleared, event)
	return nil
}

func (p *recordingPublisher) PublishSessionsRevoked(_ context.Context, event domain.SessionsRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, event)
	return nil
}

type testEnv struct {
	identities *memory.IdentityRepository
	lockoutDB  *memory.LockoutRepository
	auditLog   *memory.AuditLog
	notifier   *recordingNotifier
	publisher  *recordingPublisher
	codec      *security.TokenCodec
	sessions   *SessionService
	lockouts   *LockoutService
	audit      *AuditService
	auth       *AuthService

	tokensMu sync.Mutex
	tokens   []string
}

func newTestEnv(t *testing.T, expiry domain.LockoutExpiryPolicy) *testEnv {
	t.Helper()

	log := zaptest.NewLogger(t)
	env := &testEnv{
		identities: memory.NewIdentityRepository(),
		lockoutDB:  memory.NewLockoutRepository(),
		auditLog:   memory.NewAuditLog(),
		notifier:   &recordingNotifier{},
		publisher:  &recordingPublisher{},
		codec:      security.NewTokenCodec(security.NewStaticKeyProvider(testSessionSecret)),
	}

	env.audit = NewAuditService(env.auditLog, log)
	env.sessions = NewSessionService(env.codec, env.identities, env.publisher, nil, log)
	env.lockouts = NewLockoutService(env.lockoutDB, env.notifier, env.publisher, env.audit, nil,
		LockoutConfig{Expiry: expiry, SiteURL: "https://anjela.example/"}, log,
		WithTokenGenerator(func() (string, error) {
			token, err := security.GenerateSecureToken(security.UnblockTokenBytes)
			if err == nil {
				env.tokensMu.Lock()
				env.tokens = append(env.tokens, token)
				env.tokensMu.Unlock()
			}
			return token, err
		}),
	)

	auth, err := NewAuthService(env.identities, plainHasher{}, env.sessions, env.lockouts, env.audit, nil, log)
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}
	env.auth = auth
	return env
}

func (e *testEnv) createIdentity(t *testing.T, email, password string, role domain.Role) *domain.Identity {
	t.Helper()
	identity, err := e.identities.Upsert(context.Background(), domain.Identity{
		Email:        email,
		PasswordHash: "plain$" + password,
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	return identity
}

func tokenFromURL(t *testing.T, unblockURL string) string {
	t.Helper()
	_, token, ok := strings.Cut(unblockURL, "?token=")
	if !ok {
		t.Fatalf("unblock url without token: %s", unblockURL)
	}
	return token
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
