package telemetry

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
)

const defaultNamespace = "anjela"

// SecurityMetricsOptions configures the security collectors.
type SecurityMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// SecurityMetrics counts login outcomes, lockout transitions, session
// revocations, limiter degradations and operator notification results.
type SecurityMetrics struct {
	Logins        *prometheus.CounterVec
	Lockouts      *prometheus.CounterVec
	Revocations   prometheus.Counter
	Degradations  *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

// NewSecurityMetrics registers the collectors, reusing ones already registered.
func NewSecurityMetrics(opts SecurityMetricsOptions) (*SecurityMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	loginAttempts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Login attempts partitioned by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}

	lockouts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "lockout_transitions_total",
		Help:      "Lockouts created and cleared.",
	}, []string{"transition"}))
	if err != nil {
		return nil, err
	}

	revokes, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "session_revocations_total",
		Help:      "Token version bumps that invalidated every session of an identity.",
	}))
	if err != nil {
		return nil, err
	}

	degraded, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rate_limit",
		Name:      "degraded_total",
		Help:      "Rate limiter calls that fell back because the backend was unavailable.",
	}, []string{"reason"}))
	if err != nil {
		return nil, err
	}

	notifications, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notify",
		Name:      "operator_notifications_total",
		Help:      "Operator notifications partitioned by provider and result.",
	}, []string{"provider", "result"}))
	if err != nil {
		return nil, err
	}

	return &SecurityMetrics{
		Logins:        loginAttempts,
		Lockouts:      lockouts,
		Revocations:   revokes,
		Degradations:  degraded,
		Notifications: notifications,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, collector T) (T, error) {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return collector, fmt.Errorf("register collector: %w", err)
		}
		existing, ok := already.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("existing collector has unexpected type %T", already.ExistingCollector)
		}
		return existing, nil
	}
	return collector, nil
}

// LoginAttempt counts one login outcome.
func (m *SecurityMetrics) LoginAttempt(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

// LockoutCreated counts a CLEAN/ATTEMPTING to LOCKED transition.
func (m *SecurityMetrics) LockoutCreated() {
	if m == nil {
		return
	}
	m.Lockouts.WithLabelValues("created").Inc()
}

// LockoutCleared counts a consumed unblock token.
func (m *SecurityMetrics) LockoutCleared() {
	if m == nil {
		return
	}
	m.Lockouts.WithLabelValues("cleared").Inc()
}

// SessionsRevoked counts a token version bump.
func (m *SecurityMetrics) SessionsRevoked() {
	if m == nil {
		return
	}
	m.Revocations.Inc()
}

// LimiterDegraded counts a limiter fallback. Its signature matches ratelimit.DegradationHook.
func (m *SecurityMetrics) LimiterDegraded(reason domain.DegradationReason) {
	if m == nil {
		return
	}
	m.Degradations.WithLabelValues(string(reason)).Inc()
}

// NotificationResult counts a delivery attempt to the operator.
func (m *SecurityMetrics) NotificationResult(provider, result string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(provider, result).Inc()
}
