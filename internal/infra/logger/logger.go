package logger

import (
	"context"
	"net"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	lg   *zap.Logger
	once sync.Once
)

// New returns the process logger, built once. Production writes JSON at info
// level without stack traces on warnings; every other environment gets the
// colored development console.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if env != "production" {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}

		lg, err = cfg.Build()
	})

	return lg, err
}

// FromContext returns base annotated with the request id stored on ctx.
// A nil base falls back to the process logger.
func FromContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = lg
	}
	if base == nil {
		return zap.NewNop()
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		return base.With(zap.String("request_id", requestID))
	}
	return base
}

// ContextWithRequestID stores the request identifier for WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey{}, requestID)
}

// RequestIDFromContext returns the identifier stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(RequestIDKey{}).(string); ok {
		return val
	}
	return ""
}

// RequestIDKey is used to store a request identifier on the context.
type RequestIDKey struct{}

var emailRegex = regexp.MustCompile(`^([^@]{1,3})[^@]*(@.+)$`)

// MaskEmail keeps the first three characters of the local part and the domain.
// Example: john.doe@example.com -> joh***@example.com
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	matches := emailRegex.FindStringSubmatch(email)
	if len(matches) == 3 {
		return matches[1] + "***" + matches[2]
	}

	parts := strings.SplitN(email, "@", 2)
	if len(parts) == 2 {
		return "***@" + parts[1]
	}

	return "***"
}

// MaskIP keeps the first two octets of an IPv4 address and the first four
// groups of an IPv6 address. Non-addresses such as "unknown" pass through.
// Example: 192.168.1.100 -> 192.168.*.*
func MaskIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return ip
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "***"
	}

	if v4 := parsed.To4(); v4 != nil && strings.Contains(ip, ".") {
		parts := strings.Split(v4.String(), ".")
		return parts[0] + "." + parts[1] + ".*.*"
	}

	parts := strings.Split(ip, ":")
	if len(parts) >= 4 {
		return strings.Join(parts[:4], ":") + ":*:*:*:*"
	}
	return "***"
}
