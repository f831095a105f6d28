package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/database"
	kafkainfra "github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/kafka"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/notify"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/security"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/telemetry"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository/memory"
	postgresrepo "github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository/postgres"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/usecase"
)

const (
	storeDriverMemory   = "memory"
	storeDriverPostgres = "postgres"
)

// Core holds the stores and services shared by the HTTP server and authctl.
type Core struct {
	Config   *config.AppConfig
	Logger   *zap.Logger
	Metrics  *telemetry.SecurityMetrics
	Registry *prometheus.Registry

	Sessions *usecase.SessionService
	Auth     *usecase.AuthService
	Lockouts *usecase.LockoutService
	Audit    *usecase.AuditService
	Operator *usecase.OperatorService

	pool       *pgxpool.Pool
	producer   *kafkainfra.Producer
	dispatcher *notify.Dispatcher
}

type stores struct {
	identities port.IdentityRepository
	lockouts   port.LockoutRepository
	audit      port.AuditLog
}

// NewCore opens the credential store and builds every service.
func NewCore(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Core, error) {
	if cfg.Argon2.Memory > 0 {
		if err := security.ConfigureArgon2(security.Argon2Config{
			Memory:      cfg.Argon2.Memory,
			Iterations:  cfg.Argon2.Iterations,
			Parallelism: cfg.Argon2.Parallelism,
			SaltLength:  cfg.Argon2.SaltLength,
			KeyLength:   cfg.Argon2.KeyLength,
		}); err != nil {
			return nil, fmt.Errorf("configure argon2: %w", err)
		}
	}

	core := &Core{Config: cfg, Logger: log, Registry: prometheus.NewRegistry()}
	core.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	metrics, err := telemetry.NewSecurityMetrics(telemetry.SecurityMetricsOptions{Registerer: core.Registry})
	if err != nil {
		return nil, fmt.Errorf("init security metrics: %w", err)
	}
	core.Metrics = metrics

	st, err := core.openStores(ctx)
	if err != nil {
		return nil, err
	}

	events := core.newEventPublisher()

	notifier, provider, err := notify.New(cfg.Notify, log)
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("init notifier: %w", err)
	}
	core.dispatcher = notify.NewDispatcher(notifier, provider, notify.DispatcherConfig{
		RatePerMinute: cfg.Notify.RatePerMinute,
		Burst:         cfg.Notify.Burst,
		QueueSize:     cfg.Notify.QueueSize,
		MaxAttempts:   cfg.Notify.MaxAttempts,
		RetryBackoff:  cfg.Notify.RetryBackoff,
	}, metrics, log)

	codec := security.NewTokenCodec(
		security.NewStaticKeyProvider(cfg.Session.Secret),
		security.WithTokenTTL(cfg.Session.TTL),
	)

	hasher := security.Argon2Hasher{}
	core.Audit = usecase.NewAuditService(st.audit, log)
	core.Sessions = usecase.NewSessionService(codec, st.identities, events, metrics, log)
	core.Lockouts = usecase.NewLockoutService(st.lockouts, core.dispatcher, events, core.Audit, metrics,
		usecase.LockoutConfig{
			Threshold: cfg.Lockout.Threshold,
			Expiry:    domain.NewLockoutExpiryPolicy(cfg.Lockout.Expiry, cfg.Lockout.TTL),
			SiteURL:   cfg.App.SiteURL,
		}, log)

	core.Auth, err = usecase.NewAuthService(st.identities, hasher, core.Sessions, core.Lockouts, core.Audit, metrics, log)
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	core.Operator = usecase.NewOperatorService(st.identities, hasher,
		func(email string) port.PasswordPolicy { return security.AdminPasswordPolicy(email) },
		core.Sessions, core.Audit)

	return core, nil
}

func (c *Core) openStores(ctx context.Context) (stores, error) {
	switch c.Config.Store.Driver {
	case storeDriverMemory:
		c.Logger.Warn("in-memory credential store enabled; state is lost on restart")
		return stores{
			identities: memory.NewIdentityRepository(),
			lockouts:   memory.NewLockoutRepository(),
			audit:      memory.NewAuditLog(),
		}, nil
	case storeDriverPostgres, "":
		pool, err := database.NewPostgresPool(ctx, c.Config.Postgres, c.Config.App.Name, c.Logger)
		if err != nil {
			return stores{}, fmt.Errorf("init postgres: %w", err)
		}
		c.pool = pool

		if c.Config.Postgres.AutoMigrate {
			if err := postgresrepo.EnsureSchema(ctx, pool); err != nil {
				pool.Close()
				return stores{}, fmt.Errorf("ensure schema: %w", err)
			}
		}

		repos := postgresrepo.NewRepositories(pool)
		return stores{identities: repos.Identities, lockouts: repos.Lockouts, audit: repos.Audit}, nil
	default:
		return stores{}, fmt.Errorf("%w: unknown store driver %q", config.ErrMissingConfiguration, c.Config.Store.Driver)
	}
}

func (c *Core) newEventPublisher() port.EventPublisher {
	if !c.Config.Kafka.Enabled || len(c.Config.Kafka.Brokers) == 0 {
		c.Logger.Info("kafka disabled, using stub publisher")
		return kafkainfra.NewStubPublisher(c.Logger)
	}

	producer, err := kafkainfra.NewProducer(c.Config.Kafka, c.Config.App.Name, c.Logger)
	if err != nil {
		c.Logger.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(c.Logger)
	}
	c.producer = producer
	c.Logger.Info("kafka event publisher initialized", zap.Strings("brokers", c.Config.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, c.Config.App, c.Logger)
}

// Pool returns the postgres pool, or nil for the memory store.
func (c *Core) Pool() *pgxpool.Pool {
	return c.pool
}

// Start begins background delivery of operator notifications.
func (c *Core) Start(ctx context.Context) {
	if c.dispatcher != nil {
		c.dispatcher.Start(ctx)
	}
}

// Close drains pending notifications and releases connections.
func (c *Core) Close() {
	if c.dispatcher != nil {
		c.dispatcher.Stop()
	}
	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			c.Logger.Warn("close kafka producer", zap.Error(err))
		}
	}
	if c.pool != nil {
		c.pool.Close()
	}
}
