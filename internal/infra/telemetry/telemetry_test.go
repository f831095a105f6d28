package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
)

func TestSecurityMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics, err := NewSecurityMetrics(SecurityMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("NewSecurityMetrics returned error: %v", err)
	}

	metrics.LoginAttempt("success")
	metrics.LoginAttempt("invalid")
	metrics.LoginAttempt("invalid")
	metrics.LockoutCreated()
	metrics.LockoutCleared()
	metrics.SessionsRevoked()
	metrics.LimiterDegraded(domain.DegradationReasonCircuitOpen)
	metrics.NotificationResult("log", "sent")

	if got := testutil.ToFloat64(metrics.Logins.WithLabelValues("invalid")); got != 2 {
		t.Fatalf("expected 2 invalid logins, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.Lockouts.WithLabelValues("created")); got != 1 {
		t.Fatalf("expected 1 lockout created, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.Revocations); got != 1 {
		t.Fatalf("expected 1 revocation, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.Degradations.WithLabelValues("circuit_open")); got != 1 {
		t.Fatalf("expected 1 degradation, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.Notifications.WithLabelValues("log", "sent")); got != 1 {
		t.Fatalf("expected 1 notification, got %f", got)
	}
}

func TestSecurityMetricsReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first, err := NewSecurityMetrics(SecurityMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("first NewSecurityMetrics returned error: %v", err)
	}
	second, err := NewSecurityMetrics(SecurityMetricsOptions{Registerer: registry})
	if err != nil {
		t.Fatalf("second NewSecurityMetrics returned error: %v", err)
	}

	first.LockoutCreated()
	if got := testutil.ToFloat64(second.Lockouts.WithLabelValues("created")); got != 1 {
		t.Fatalf("expected shared collector, got %f", got)
	}
}

func TestSecurityMetricsNilIsNoop(t *testing.T) {
	var metrics *SecurityMetrics
	metrics.LoginAttempt("success")
	metrics.LockoutCreated()
	metrics.LimiterDegraded(domain.DegradationReasonLimiterUnavailable)
}

func TestTracerProviderRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := newTracerProvider(context.Background(), config.TelemetrySettings{SamplingRate: 1},
		config.AppSettings{Name: "anjelaweb-auth", Env: "test"},
		sdktrace.WithSpanProcessor(recorder), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newTracerProvider returned error: %v", err)
	}
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "lockout.record_failure")
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 || ended[0].Name() != "lockout.record_failure" {
		t.Fatalf("expected one recorded span, got %d", len(ended))
	}

	attrs := map[string]string{}
	for _, kv := range ended[0].Resource().Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	if attrs["service.name"] != "anjelaweb-auth" || attrs["deployment.environment"] != "test" {
		t.Fatalf("unexpected resource attributes: %v", attrs)
	}
}

func TestNilTracerProviderShutdown(t *testing.T) {
	var tp *TracerProvider
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("nil Shutdown returned error: %v", err)
	}
}
