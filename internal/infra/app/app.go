package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/logger"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/ratelimit"
	redisinfra "github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/redis"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/telemetry"
	redisrepo "github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository/redis"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/transport/http/middleware"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/transport/http/routes"
)

const defaultSweepInterval = time.Minute

type Application struct {
	cfg        *config.AppConfig
	core       *Core
	engine     *gin.Engine
	logger     *zap.Logger
	redis      *redisinfra.Client
	memLimiter *ratelimit.MemoryLimiter
	tracer     *telemetry.TracerProvider
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}

	if cfg.Telemetry.TracingEnabled {
		tracer, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App, log)
		if err != nil {
			return nil, fmt.Errorf("init telemetry: %w", err)
		}
		a.tracer = tracer
	}

	core, err := NewCore(ctx, cfg, log)
	if err != nil {
		a.shutdownTracer()
		return nil, err
	}
	a.core = core

	backend, err := a.newRateLimitBackend()
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init rate limiter: %w", err)
	}

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{Registerer: core.Registry})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	deps := routes.Dependencies{
		Config:         cfg,
		Logger:         log,
		Limiters:       ratelimit.NewRegistry(backend),
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.HandlerFor(core.Registry, promhttp.HandlerOpts{}),
		Services: routes.ServiceSet{
			Auth:     core.Auth,
			Sessions: core.Sessions,
			Lockouts: core.Lockouts,
			Audit:    core.Audit,
		},
	}
	if pool := core.Pool(); pool != nil {
		deps.Database = pool
	}
	if a.redis != nil {
		deps.Cache = a.redis
	}
	a.engine = routes.Register(deps)

	return a, nil
}

// newRateLimitBackend selects redis or memory. The redis backend runs behind
// the circuit breaker and the configured degradation policy.
func (a *Application) newRateLimitBackend() (port.RateLimiter, error) {
	cfg := a.cfg

	if !cfg.RateLimit.UsesRedis(cfg.Redis) {
		a.memLimiter = ratelimit.NewMemoryLimiter(a.logger, ratelimit.WithSweepInterval(cfg.RateLimit.SweepInterval))
		return a.memLimiter, nil
	}

	client, err := redisinfra.NewClient(cfg.Redis, cfg.RateLimit.CallTimeout, a.logger)
	if err != nil {
		return nil, err
	}
	a.redis = client

	store := redisrepo.NewRateLimitRepository(client.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.KeyPrefix,
	})

	guard := ratelimit.DefaultGuardConfig()
	if cfg.RateLimit.BreakerThreshold > 0 {
		guard.FailureThreshold = cfg.RateLimit.BreakerThreshold
	}
	if cfg.RateLimit.BreakerOpenTimeout > 0 {
		guard.OpenTimeout = cfg.RateLimit.BreakerOpenTimeout
	}
	if cfg.RateLimit.CallTimeout > 0 {
		guard.CallTimeout = cfg.RateLimit.CallTimeout
	}

	policy := domain.NewDegradationPolicy(
		domain.ParseDegradationPolicyMode(cfg.RateLimit.DegradationPolicy),
		middleware.OperationLogin,
		middleware.OperationUnblock,
	)
	a.logger.Info("redis rate limiter enabled", zap.String("degradation_policy", string(policy.Mode())))

	return ratelimit.NewGuarded(store, policy, guard, a.logger, a.core.Metrics.LimiterDegraded), nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.close()

	a.core.Start(ctx)
	if a.memLimiter != nil {
		a.memLimiter.Start(ctx)
	}

	sweepDone := make(chan struct{})
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go a.sweepLockouts(sweepCtx, sweepDone)
	defer func() {
		stopSweep()
		<-sweepDone
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting auth API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
		zap.String("store", a.cfg.Store.Driver),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		timeout := a.cfg.App.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}

// sweepLockouts purges TTL-expired lockouts. Under the manual expiry policy
// PurgeExpired is a no-op.
func (a *Application) sweepLockouts(ctx context.Context, done chan struct{}) {
	defer close(done)

	interval := a.cfg.RateLimit.SweepInterval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.core.Lockouts.PurgeExpired(ctx)
			if err != nil {
				a.logger.Warn("purge expired lockouts failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				a.logger.Info("purged expired lockouts", zap.Int64("removed", removed))
			}
		}
	}
}

func (a *Application) close() {
	if a.memLimiter != nil {
		a.memLimiter.Stop()
	}
	if a.core != nil {
		a.core.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.shutdownTracer()
}

func (a *Application) shutdownTracer() {
	if a.tracer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("shutdown tracer provider", zap.Error(err))
	}
}
