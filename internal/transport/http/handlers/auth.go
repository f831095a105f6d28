package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/logger"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/transport/http/middleware"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/usecase"
)

// AuthHandler exposes login, logout and session status endpoints.
type AuthHandler struct {
	auth   *usecase.AuthService
	cookie middleware.SessionCookie
	logger *zap.Logger
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService, cookie middleware.SessionCookie, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{auth: auth, cookie: cookie, logger: log}
}

// maxLoginBodyBytes bounds the login body well above the email and password caps.
const maxLoginBodyBytes = 4 << 10

// Login godoc
// @Summary Log in with email and password
// @Description Verifies credentials and sets the session cookie. Failures are generic.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} middleware.ProblemDetails
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxLoginBodyBytes)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid_request", "email and password are required"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	result, err := h.auth.Login(c.Request.Context(), usecase.LoginRequest{
		Email:        req.Email,
		Password:     req.Password,
		IP:           reqCtx.IP,
		UserAgent:    reqCtx.UserAgent,
		RequireAdmin: req.Admin,
	})
	if err != nil {
		status, _, _ := mapError(err, loginErrorCases, http.StatusInternalServerError, "")
		if status == http.StatusInternalServerError {
			logger.FromContext(c.Request.Context(), h.logger).Error("login failed",
				zap.String("trace_id", middleware.GetTraceID(c)),
				zap.String("client_ip", logger.MaskIP(reqCtx.IP)),
				zap.Error(err),
			)
		}
		RespondWithMappedError(c, err, loginErrorCases, http.StatusInternalServerError, "login failed")
		return
	}

	h.cookie.Set(c, result.Session.Token)
	c.JSON(http.StatusOK, LoginResponse{Role: string(result.Identity.Role)})
}

// Logout godoc
// @Summary Log out
// @Description Clears the session cookie and revokes every session of the caller. Always succeeds.
// @Tags Authentication
// @Produce json
// @Success 200 {object} OKResponse
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	if identity, ok := middleware.CurrentIdentity(c); ok {
		reqCtx := middleware.GetRequestContext(c)
		if err := h.auth.Logout(c.Request.Context(), identity, reqCtx.IP, reqCtx.UserAgent); err != nil {
			logger.FromContext(c.Request.Context(), h.logger).Error("logout revocation failed",
				zap.String("trace_id", middleware.GetTraceID(c)),
				zap.String("identity_id", identity.ID),
				zap.Error(err),
			)
		}
	}

	h.cookie.Clear(c)
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// Session reports whether the caller carries a valid session.
func (h *AuthHandler) Session(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusOK, SessionStatusResponse{Authenticated: false})
		return
	}
	c.JSON(http.StatusOK, SessionStatusResponse{Authenticated: true, Role: string(identity.Role)})
}
