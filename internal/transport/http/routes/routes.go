package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/ratelimit"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/security"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/transport/http/handlers"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/transport/http/middleware"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/usecase"
)

const defaultRateLimitWindow = 10 * time.Minute

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth     *usecase.AuthService
	Sessions *usecase.SessionService
	Lockouts *usecase.LockoutService
	Audit    *usecase.AuditService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Limiters *ratelimit.Registry
	Metrics  *middleware.HTTPMetrics
	// MetricsHandler serves /metrics. Defaults to the global registry.
	MetricsHandler http.Handler
	Services       ServiceSet
	Database       DatabaseChecker
	Cache          CacheChecker
	// AdminPages mounts the server-rendered admin pages. The group already
	// requires an ADMIN session.
	AdminPages func(*gin.RouterGroup)
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	cfg := deps.Config
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.App.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, forwarding headers ignored", zap.Error(err))
		_ = r.SetTrustedProxies(nil)
	}

	tls := cfg.App.ServesTLS()
	cookie := middleware.SessionCookie{Secure: tls, MaxAge: cfg.Session.TTL}
	if deps.Services.Sessions != nil {
		cookie.MaxAge = deps.Services.Sessions.TTL()
	}

	r.Use(gin.Recovery())
	r.Use(middleware.Tracing(middleware.TracingOptions{}))
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(deps.Metrics.Handler())
	r.Use(middleware.SecurityHeaders(tls))

	healthOptions := make([]handlers.HealthOption, 0, 2)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	healthHandler := handlers.NewHealthHandler(healthOptions...)

	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))

	var resolver middleware.SessionResolver
	if deps.Services.Sessions != nil {
		resolver = deps.Services.Sessions
	}
	authenticate := middleware.Authenticate(resolver, cookie, log)
	originGuard := middleware.OriginGuard(security.ParseOriginFallback(cfg.Security.OriginFallback), resolver, cookie, log)

	window := cfg.RateLimit.Window
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	limit := func(operation string, budget int) gin.HandlerFunc {
		if deps.Limiters == nil || budget <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(operation, deps.Limiters.For(budget, window), log)
	}

	authHandler := handlers.NewAuthHandler(deps.Services.Auth, cookie, log)
	unblockHandler := handlers.NewUnblockHandler(deps.Services.Lockouts, log)
	auditHandler := handlers.NewAuditHandler(deps.Services.Audit, log)

	api := r.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/login",
			originGuard,
			limit(middleware.OperationLogin, cfg.RateLimit.LoginLimit(cfg.App)),
			authHandler.Login,
		)
		authGroup.POST("/logout",
			originGuard,
			limit(middleware.OperationLogout, cfg.RateLimit.LogoutMaxAttempts),
			middleware.AuthenticateOptional(resolver, cookie, log),
			authHandler.Logout,
		)
		authGroup.GET("/session", authenticate, authHandler.Session)

		adminAPI := api.Group("/admin")
		adminAPI.Use(authenticate, middleware.RequireAPI(domain.RoleAdmin))
		adminAPI.GET("/audit-log", auditHandler.List)
	}

	r.GET(usecase.UnblockPath,
		limit(middleware.OperationUnblock, cfg.RateLimit.UnblockMaxAttempts),
		unblockHandler.Unblock,
	)

	if deps.AdminPages != nil {
		pages := r.Group("/admin")
		pages.Use(authenticate, middleware.RequirePage(domain.RoleAdmin))
		deps.AdminPages(pages)
	}

	return r
}
