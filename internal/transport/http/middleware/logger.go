package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appLogger "github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/logger"
)

var probePaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
	"/metrics": {},
}

// Logger writes one access log line per request. IPs are masked and the level
// follows the outcome: probes at debug, guard rejections at warn, 5xx at error.
func Logger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("trace_id", GetTraceID(c)),
			zap.String("request_id", appLogger.RequestIDFromContext(c.Request.Context())),
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", appLogger.MaskIP(ClientIP(c))),
		}

		if ua := c.Request.UserAgent(); ua != "" {
			fields = append(fields, zap.String("user_agent", ua))
		}
		if identity, ok := CurrentIdentity(c); ok {
			fields = append(fields, zap.String("identity_id", identity.ID))
		}
		reason := c.GetString(rejectionReasonKey)
		if reason != "" {
			fields = append(fields, zap.String("rejected", reason))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		level := zapcore.InfoLevel
		switch {
		case status >= http.StatusInternalServerError || len(c.Errors) > 0:
			level = zapcore.ErrorLevel
		case reason != "":
			level = zapcore.WarnLevel
		default:
			if _, probe := probePaths[c.Request.URL.Path]; probe {
				level = zapcore.DebugLevel
			}
		}

		if ce := log.Check(level, "request completed"); ce != nil {
			ce.Write(fields...)
		}
	}
}
