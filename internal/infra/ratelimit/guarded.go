package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
)

// ErrLimiterUnavailable is returned when the backend cannot answer and the
// policy fails closed for the operation.
var ErrLimiterUnavailable = errors.New("ratelimit: limiter unavailable")

// GuardConfig tunes the circuit breaker around a distributed backend.
type GuardConfig struct {
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold uint32
	// OpenTimeout is how long the circuit stays open before probing again.
	OpenTimeout time.Duration
	// CallTimeout bounds a single backend call. Zero disables it.
	CallTimeout time.Duration
}

// DefaultGuardConfig returns the production defaults.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
		CallTimeout:      250 * time.Millisecond,
	}
}

// DegradationHook is notified every time a request is decided without the backend.
type DegradationHook func(reason domain.DegradationReason)

// Guarded wraps a backend with a circuit breaker and applies the degradation policy on failure.
type Guarded struct {
	backend port.RateLimiter
	breaker *gobreaker.CircuitBreaker
	policy  domain.DegradationPolicy
	cfg     GuardConfig
	logger  *zap.Logger
	hook    DegradationHook
	now     func() time.Time
}

// NewGuarded builds the guard. A nil hook is ignored.
func NewGuarded(backend port.RateLimiter, policy domain.DegradationPolicy, cfg GuardConfig, logger *zap.Logger, hook DegradationHook) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultGuardConfig().FailureThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultGuardConfig().OpenTimeout
	}

	g := &Guarded{
		backend: backend,
		policy:  policy,
		cfg:     cfg,
		logger:  logger,
		hook:    hook,
		now:     time.Now,
	}

	threshold := cfg.FailureThreshold
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rate-limiter",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("rate limiter circuit state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return g
}

// Consume delegates to the backend through the breaker.
func (g *Guarded) Consume(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	callCtx := ctx
	if g.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.backend.Consume(callCtx, key, limit, window)
	})
	if err == nil {
		return result.(domain.RateLimitDecision), nil
	}

	reason := domain.DegradationReasonLimiterUnavailable
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		reason = domain.DegradationReasonCircuitOpen
	}
	if g.hook != nil {
		g.hook(reason)
	}

	operation := domain.RateLimitOperation(key)
	if !g.policy.AllowsFallback(operation, reason) {
		g.logger.Error("rate limiter unavailable, rejecting request",
			zap.String("operation", operation),
			zap.String("reason", string(reason)),
			zap.Error(err),
		)
		return domain.RateLimitDecision{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	g.logger.Warn("rate limiter unavailable, allowing request",
		zap.String("operation", operation),
		zap.String("reason", string(reason)),
		zap.Error(err),
	)
	return domain.RateLimitDecision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit,
		ResetAt:   g.now().Add(window),
		Degraded:  true,
	}, nil
}

// State reports the breaker state for readiness output.
func (g *Guarded) State() string {
	return g.breaker.State().String()
}

var _ port.RateLimiter = (*Guarded)(nil)
