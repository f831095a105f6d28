package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/security"
)

type fakeResolver struct {
	identities map[string]*domain.Identity
	err        error
	calls      int
}

func (f *fakeResolver) Resolve(_ context.Context, token string) (*domain.Identity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.identities[token], nil
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{identities: map[string]*domain.Identity{
		"admin-token": {ID: "admin-1", Email: "admin@example.com", Role: domain.RoleAdmin, IsActive: true},
		"user-token":  {ID: "user-1", Email: "user@example.com", Role: domain.RoleUser, IsActive: true},
	}}
}

func TestSessionCookieNameFollowsTransport(t *testing.T) {
	if got := (SessionCookie{}).Name(); got != "admin_token" {
		t.Fatalf("expected admin_token, got %q", got)
	}
	if got := (SessionCookie{Secure: true}).Name(); got != "__Host-admin_token" {
		t.Fatalf("expected __Host-admin_token, got %q", got)
	}
}

func TestSessionCookieSetAttributes(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	SessionCookie{Secure: true, MaxAge: 30 * time.Minute}.Set(c, "abc")

	header := rr.Header().Get("Set-Cookie")
	for _, want := range []string{"__Host-admin_token=abc", "Path=/", "Max-Age=1800", "HttpOnly", "Secure", "SameSite=Strict"} {
		if !strings.Contains(header, want) {
			t.Fatalf("expected %q in Set-Cookie %q", want, header)
		}
	}
}

func newProtectedRouter(t *testing.T, resolver SessionResolver, cookie SessionCookie) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zaptest.NewLogger(t)
	router := gin.New()
	router.Use(Authenticate(resolver, cookie, log))
	router.GET("/api/admin/audit-log", RequireAPI(domain.RoleAdmin), func(c *gin.Context) {
		identity, _ := CurrentIdentity(c)
		c.String(http.StatusOK, identity.ID)
	})
	router.GET("/admin/dashboard", RequirePage(domain.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func getWithCookie(router http.Handler, path, cookieName, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRequireAPIStatuses(t *testing.T) {
	cookie := SessionCookie{}
	router := newProtectedRouter(t, newFakeResolver(), cookie)

	cases := []struct {
		name   string
		token  string
		status int
	}{
		{name: "anonymous", token: "", status: http.StatusUnauthorized},
		{name: "unknown token", token: "forged", status: http.StatusUnauthorized},
		{name: "insufficient role", token: "user-token", status: http.StatusForbidden},
		{name: "admin", token: "admin-token", status: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := getWithCookie(router, "/api/admin/audit-log", cookie.Name(), tc.token)
			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
		})
	}
}

func TestRequirePageRedirectsToLogin(t *testing.T) {
	cookie := SessionCookie{}
	router := newProtectedRouter(t, newFakeResolver(), cookie)

	for _, token := range []string{"", "forged", "user-token"} {
		rr := getWithCookie(router, "/admin/dashboard?tab=1", cookie.Name(), token)
		if rr.Code != http.StatusFound {
			t.Fatalf("token %q: expected 302, got %d", token, rr.Code)
		}
		want := "/login?redirect=%2Fadmin%2Fdashboard%3Ftab%3D1"
		if got := rr.Header().Get("Location"); got != want {
			t.Fatalf("token %q: expected location %q, got %q", token, want, got)
		}
	}

	if rr := getWithCookie(router, "/admin/dashboard", cookie.Name(), "admin-token"); rr.Code != http.StatusOK {
		t.Fatalf("expected admin page 200, got %d", rr.Code)
	}
}

func TestAuthenticateIgnoresCookieWithOtherName(t *testing.T) {
	resolver := newFakeResolver()
	router := newProtectedRouter(t, resolver, SessionCookie{Secure: true})

	rr := getWithCookie(router, "/api/admin/audit-log", "admin_token", "admin-token")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if resolver.calls != 0 {
		t.Fatalf("expected resolver not to be called, got %d", resolver.calls)
	}
}

func TestAuthenticateResolverFailureReturns500(t *testing.T) {
	resolver := &fakeResolver{err: security.ErrMissingSecret}
	cookie := SessionCookie{}
	router := newProtectedRouter(t, resolver, cookie)

	rr := getWithCookie(router, "/api/admin/audit-log", cookie.Name(), "anything")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestAuthenticateOptionalContinuesOnResolverFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	resolver := &fakeResolver{err: security.ErrMissingSecret}
	cookie := SessionCookie{}
	router := gin.New()
	router.Use(AuthenticateOptional(resolver, cookie, zaptest.NewLogger(t)))
	router.POST("/api/auth/logout", func(c *gin.Context) {
		if _, ok := CurrentIdentity(c); ok {
			t.Errorf("expected anonymous request")
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: cookie.Name(), Value: "anything"})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if resolver.calls != 1 {
		t.Fatalf("expected one resolve call, got %d", resolver.calls)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SecurityHeaders(true))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rr.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Fatalf("unexpected X-Frame-Options %q", got)
	}
	if !strings.Contains(rr.Header().Get("Content-Security-Policy"), "frame-ancestors 'self'") {
		t.Fatalf("missing frame-ancestors in CSP")
	}
	if rr.Header().Get("Strict-Transport-Security") == "" {
		t.Fatalf("expected HSTS under TLS")
	}
}
