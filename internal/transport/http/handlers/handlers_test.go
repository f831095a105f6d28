package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository/memory"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/usecase"
)

func TestReadinessReportsFailingCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewHealthHandler(
		WithReadinessCheck("database", func(context.Context) error { return nil }),
		WithReadinessCheck("redis", func(context.Context) error { return errors.New("down") }),
	)
	router := gin.New()
	router.GET("/readyz", h.Readiness)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	var resp ReadyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Checks["database"] != "ok" || resp.Checks["redis"] != "unavailable" {
		t.Fatalf("unexpected checks %v", resp.Checks)
	}
}

func TestAuditListHonoursLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	log := zaptest.NewLogger(t)
	audit := usecase.NewAuditService(memory.NewAuditLog(), log)
	for i := 0; i < 3; i++ {
		audit.Record(context.Background(), domain.AuditEntry{Action: domain.AuditActionLoginFailed, Email: "a@example.com", IP: "192.0.2.1"})
	}

	router := gin.New()
	router.GET("/api/admin/audit-log", NewAuditHandler(audit, log).List)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/audit-log?limit=2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp AuditLogResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(resp.Entries))
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/admin/audit-log?limit=abc", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid limit, got %d", rr.Code)
	}
}

func TestMapErrorFallsBack(t *testing.T) {
	status, code, message := mapError(errors.New("db down"), loginErrorCases, http.StatusInternalServerError, "login failed")
	if status != http.StatusInternalServerError || code != "internal_error" || message != "login failed" {
		t.Fatalf("unexpected mapping %d %q %q", status, code, message)
	}

	status, code, _ = mapError(usecase.ErrLocked, loginErrorCases, http.StatusInternalServerError, "")
	if status != http.StatusForbidden || code != "locked" {
		t.Fatalf("unexpected locked mapping %d %q", status, code)
	}
}
