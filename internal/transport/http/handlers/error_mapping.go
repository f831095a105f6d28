package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/ratelimit"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/security"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// loginErrorCases keep every credential failure generic: the body never says
// whether the email exists or which half of the pair is locked.
var loginErrorCases = []ErrorCase{
	{Err: usecase.ErrMalformedCredentials, Status: http.StatusBadRequest, Code: "invalid_request", Message: "email and password are required"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "invalid credentials"},
	{Err: usecase.ErrLocked, Status: http.StatusForbidden, Code: "locked", Message: "login temporarily blocked"},
	{Err: ratelimit.ErrLimiterUnavailable, Status: http.StatusServiceUnavailable, Code: "rate_limiter_unavailable", Message: "service temporarily unavailable"},
	{Err: security.ErrMissingSecret, Status: http.StatusInternalServerError, Code: "missing_configuration", Message: "service misconfigured"},
}

var unblockErrorCases = []ErrorCase{
	{Err: usecase.ErrUnblockTokenRequired, Status: http.StatusBadRequest, Code: "token_required", Message: "unblock token is required"},
	{Err: usecase.ErrUnblockTokenInvalid, Status: http.StatusNotFound, Code: "token_invalid", Message: "unblock token is invalid or already used"},
}

// RespondWithMappedError resolves the provided error against known cases or falls back to a generic response.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	status, code, message := mapError(err, cases, fallbackStatus, fallbackMessage)
	c.JSON(status, NewErrorResponse(c, code, message))
}

func mapError(err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) (int, string, string) {
	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			return cs.Status, cs.Code, cs.Message
		}
	}
	return fallbackStatus, "internal_error", fallbackMessage
}
