package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/logger"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/security"
)

// OriginGuard rejects state-changing requests whose Origin or Referer does
// not name the serving host. With the authenticated fallback, a request
// carrying neither header passes only when its session resolves.
func OriginGuard(fallback security.OriginFallback, resolver SessionResolver, cookie SessionCookie, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		authenticated := false
		if fallback == security.OriginFallbackAuthenticated && !hasOriginHeaders(c.Request.Header) {
			identity, err := resolveIdentity(c, resolver, cookie)
			if err != nil {
				log.Error("session resolution failed", zap.String("trace_id", GetTraceID(c)), zap.Error(err))
			}
			authenticated = identity != nil
		}

		if err := security.CheckSameOrigin(c.Request.Header, c.Request.Host, fallback, authenticated); err != nil {
			log.Warn("origin check rejected request",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", logger.MaskIP(ClientIP(c))),
				zap.Error(err),
			)
			markRejected(c, ReasonInvalidOrigin)
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "invalid_origin", "invalid origin"))
			return
		}

		c.Next()
	}
}

func hasOriginHeaders(h http.Header) bool {
	return h.Get("Origin") != "" || h.Get("Referer") != ""
}

// SecurityHeaders applies the hardening headers to every response.
func SecurityHeaders(tls bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		security.ApplySecurityHeaders(c.Writer.Header(), tls)
		c.Next()
	}
}
