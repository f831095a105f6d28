package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"john.doe@example.com", "joh***@example.com"},
		{"ab@example.com", "ab***@example.com"},
		{"@example.com", "***@example.com"},
		{"not-an-email", "***"},
	}
	for _, tc := range cases {
		if got := MaskEmail(tc.in); got != tc.want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskIP(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"unknown", "unknown"},
		{"192.168.1.100", "192.168.*.*"},
		{"2001:0db8:85a3:0000:0000:8a2e:0370:7334", "2001:0db8:85a3:0000:*:*:*:*"},
		{"::1", "***"},
		{"garbage", "***"},
	}
	for _, tc := range cases {
		if got := MaskIP(tc.in); got != tc.want {
			t.Fatalf("MaskIP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}

func TestFromContextAddsRequestID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	FromContext(ContextWithRequestID(context.Background(), "req-9"), base).Info("unblock failed")
	FromContext(context.Background(), base).Info("no request")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-9" {
		t.Fatalf("expected request_id req-9, got %v", got)
	}
	if _, ok := entries[1].ContextMap()["request_id"]; ok {
		t.Fatal("expected no request_id without one on the context")
	}
	if FromContext(context.Background(), nil) == nil {
		t.Fatal("FromContext returned nil logger")
	}
}
