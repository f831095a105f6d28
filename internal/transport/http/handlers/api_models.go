package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, code, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		Code:    code,
		TraceID: middleware.GetTraceID(c),
	}
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// Admin restricts the login to ADMIN identities.
	Admin bool `json:"admin"`
}

// LoginResponse is returned with the session cookie.
type LoginResponse struct {
	Role string `json:"role"`
}

// OKResponse acknowledges an action.
type OKResponse struct {
	OK bool `json:"ok"`
}

// SessionStatusResponse describes the caller's session.
type SessionStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Role          string `json:"role,omitempty"`
}

// AuditEntryResponse is one audit log record.
type AuditEntryResponse struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Email     string    `json:"email,omitempty"`
	IP        string    `json:"ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditLogResponse wraps a page of audit entries, newest first.
type AuditLogResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
}

func newAuditEntryResponse(entry domain.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:        entry.ID,
		Action:    string(entry.Action),
		Email:     entry.Email,
		IP:        entry.IP,
		UserAgent: entry.UserAgent,
		Detail:    entry.Detail,
		CreatedAt: entry.CreatedAt,
	}
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
