package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/logger"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/transport/http/middleware"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/usecase"
)

// AuditHandler exposes the security audit log to administrators.
type AuditHandler struct {
	audit  *usecase.AuditService
	logger *zap.Logger
}

// NewAuditHandler constructs AuditHandler.
func NewAuditHandler(audit *usecase.AuditService, log *zap.Logger) *AuditHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuditHandler{audit: audit, logger: log}
}

// List godoc
// @Summary List recent audit entries
// @Tags Admin
// @Produce json
// @Param limit query int false "Maximum entries (default 100, max 500)"
// @Success 200 {object} AuditLogResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /api/admin/audit-log [get]
func (h *AuditHandler) List(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid_request", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.FromContext(c.Request.Context(), h.logger).Error("list audit entries failed", zap.String("trace_id", middleware.GetTraceID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal_error", "failed to load audit log"))
		return
	}

	resp := AuditLogResponse{Entries: make([]AuditEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		resp.Entries = append(resp.Entries, newAuditEntryResponse(entry))
	}
	c.JSON(http.StatusOK, resp)
}
