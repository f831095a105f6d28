package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/AdamTroyan/AnjelaTroyaWeb/internal/transport/http"

// TracingOptions customises the tracing middleware behaviour.
type TracingOptions struct {
	TracerProvider trace.TracerProvider
	Propagators    propagation.TextMapPropagator
}

// Tracing starts a server span per request, continuing any propagated trace.
// Probe endpoints are not traced.
func Tracing(opts TracingOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, probe := probePaths[c.Request.URL.Path]; probe {
			c.Next()
			return
		}

		provider := opts.TracerProvider
		if provider == nil {
			provider = otel.GetTracerProvider()
		}
		propagator := opts.Propagators
		if propagator == nil {
			propagator = otel.GetTextMapPropagator()
		}

		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx, span := provider.Tracer(tracerName).Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if reason := c.GetString(rejectionReasonKey); reason != "" {
			span.SetAttributes(attribute.String("auth.rejected", reason))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last())
		}
	}
}
