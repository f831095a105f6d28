package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingRecordsServerSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	router := gin.New()
	router.Use(Tracing(TracingOptions{TracerProvider: provider, Propagators: propagation.TraceContext{}}))
	router.Use(EnrichContext())
	router.GET("/api/auth/session", func(c *gin.Context) {
		c.String(http.StatusOK, GetTraceID(c))
	})
	router.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if got := rr.Body.String(); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("expected propagated trace id, got %q", got)
	}

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "GET /api/auth/session" {
		t.Fatalf("unexpected span name %q", spans[0].Name())
	}
	if !hasIntAttribute(spans[0].Attributes(), "http.response.status_code", http.StatusOK) {
		t.Fatalf("missing status code attribute: %v", spans[0].Attributes())
	}
	if spans[1].Status().Code != codes.Error {
		t.Fatalf("expected error status for 500, got %v", spans[1].Status().Code)
	}
}

func hasIntAttribute(attrs []attribute.KeyValue, key string, value int) bool {
	for _, kv := range attrs {
		if string(kv.Key) == key && kv.Value.AsInt64() == int64(value) {
			return true
		}
	}
	return false
}
