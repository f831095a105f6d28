package handlers

import (
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/logger"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/transport/http/middleware"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/usecase"
)

const unblockPage = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><meta name="robots" content="noindex"><title>%s</title></head>
<body><h1>%s</h1><p>%s</p></body>
</html>
`

// UnblockHandler serves the one-time unblock link sent to the operator.
type UnblockHandler struct {
	lockouts *usecase.LockoutService
	logger   *zap.Logger
}

// NewUnblockHandler constructs UnblockHandler.
func NewUnblockHandler(lockouts *usecase.LockoutService, log *zap.Logger) *UnblockHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UnblockHandler{lockouts: lockouts, logger: log}
}

// Unblock godoc
// @Summary Clear a login lockout
// @Description Consumes the one-time token from the operator notification.
// @Tags Lockout
// @Produce json,html
// @Param token query string true "Unblock token"
// @Success 200 {object} OKResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /admin/unblock [get]
func (h *UnblockHandler) Unblock(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Referrer-Policy", "no-referrer")

	clearedBy := "link:" + logger.MaskIP(middleware.ClientIP(c))
	_, err := h.lockouts.Unblock(c.Request.Context(), c.Query("token"), clearedBy)

	wantsHTML := c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML

	if err != nil {
		status, code, message := mapError(err, unblockErrorCases, http.StatusInternalServerError, "unblock failed")
		if status == http.StatusInternalServerError {
			logger.FromContext(c.Request.Context(), h.logger).Error("unblock failed", zap.String("trace_id", middleware.GetTraceID(c)), zap.Error(err))
		}
		if wantsHTML {
			renderUnblockPage(c, status, "Unblock failed", message)
			return
		}
		c.JSON(status, NewErrorResponse(c, code, message))
		return
	}

	if wantsHTML {
		renderUnblockPage(c, http.StatusOK, "Unblocked", "The login block has been cleared.")
		return
	}
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

func renderUnblockPage(c *gin.Context, status int, title, message string) {
	body := fmt.Sprintf(unblockPage, html.EscapeString(title), html.EscapeString(title), html.EscapeString(message))
	c.Data(status, "text/html; charset=utf-8", []byte(body))
}
