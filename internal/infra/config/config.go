package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvProduction enables production-only checks and limits.
	EnvProduction = "production"

	minProductionSecretBytes = 32
)

// ErrMissingConfiguration marks settings the service cannot start without.
var ErrMissingConfiguration = errors.New("missing configuration")

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Session   SessionSettings   `mapstructure:"session"`
	Security  SecuritySettings  `mapstructure:"security"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Lockout   LockoutSettings   `mapstructure:"lockout"`
	Notify    NotifySettings    `mapstructure:"notify"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	Argon2    Argon2Settings    `mapstructure:"argon2"`
	Store     StoreSettings     `mapstructure:"store"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// SiteURL is the public origin used in unblock links.
	SiteURL         string        `mapstructure:"site_url"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// IsProduction reports whether production rules apply.
func (a AppSettings) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(a.Env), EnvProduction)
}

// ServesTLS reports whether the public site is reached over https.
func (a AppSettings) ServesTLS() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.SiteURL)), "https://")
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	StatementTimeout  time.Duration `mapstructure:"statement_timeout"`
	AutoMigrate       bool          `mapstructure:"auto_migrate"`
}

// DSN renders the connection string for pgxpool.
func (p PostgresSettings) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Database,
		p.SSLMode,
	)
}

// RedisSettings configures the distributed rate-limit backend.
type RedisSettings struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	DB         int    `mapstructure:"db"`
	Password   string `mapstructure:"password"`
	TLSEnabled bool   `mapstructure:"tls_enabled"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// KafkaSettings configures the security event producer.
type KafkaSettings struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
}

// SessionSettings configures session tokens.
type SessionSettings struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// SecuritySettings configures request checks.
type SecuritySettings struct {
	// OriginFallback is "reject" or "authenticated".
	OriginFallback string `mapstructure:"origin_fallback"`
}

// RateLimitSettings configures per-operation budgets and the backend.
type RateLimitSettings struct {
	// Backend is "memory", "redis" or "auto".
	Backend           string        `mapstructure:"backend"`
	DegradationPolicy string        `mapstructure:"degradation_policy"`
	Window            time.Duration `mapstructure:"window"`
	// LoginMaxAttempts of zero selects the environment default.
	LoginMaxAttempts   int           `mapstructure:"login_max_attempts"`
	LogoutMaxAttempts  int           `mapstructure:"logout_max_attempts"`
	UnblockMaxAttempts int           `mapstructure:"unblock_max_attempts"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	BreakerThreshold   uint32        `mapstructure:"breaker_threshold"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
	CallTimeout        time.Duration `mapstructure:"call_timeout"`
}

// LoginLimit returns the login budget for env: 5 in production, 20 elsewhere,
// unless configured explicitly.
func (r RateLimitSettings) LoginLimit(app AppSettings) int {
	if r.LoginMaxAttempts > 0 {
		return r.LoginMaxAttempts
	}
	if app.IsProduction() {
		return 5
	}
	return 20
}

// UsesRedis reports whether the distributed backend is selected.
func (r RateLimitSettings) UsesRedis(redis RedisSettings) bool {
	switch strings.ToLower(strings.TrimSpace(r.Backend)) {
	case "redis":
		return true
	case "auto":
		return redis.Enabled
	default:
		return false
	}
}

// LockoutSettings configures the failed-login state machine.
type LockoutSettings struct {
	Threshold int `mapstructure:"threshold"`
	// Expiry is "manual" or "ttl".
	Expiry string        `mapstructure:"expiry"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// NotifySettings configures operator lockout notifications.
type NotifySettings struct {
	// Provider is "log", "smtp", "mailgun" or "sendgrid".
	Provider      string           `mapstructure:"provider"`
	OperatorEmail string           `mapstructure:"operator_email"`
	From          string           `mapstructure:"from"`
	RatePerMinute float64          `mapstructure:"rate_per_minute"`
	Burst         int              `mapstructure:"burst"`
	QueueSize     int              `mapstructure:"queue_size"`
	// MaxAttempts bounds delivery tries per notification; RetryBackoff doubles after each failure.
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	SMTP          SMTPSettings     `mapstructure:"smtp"`
	Mailgun       MailgunSettings  `mapstructure:"mailgun"`
	SendGrid      SendGridSettings `mapstructure:"sendgrid"`
}

type SMTPSettings struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type MailgunSettings struct {
	Domain  string `mapstructure:"domain"`
	APIKey  string `mapstructure:"api_key"`
	APIBase string `mapstructure:"api_base"`
}

type SendGridSettings struct {
	APIKey string `mapstructure:"api_key"`
}

// Argon2Settings configures Argon2id password hashing parameters
type Argon2Settings struct {
	Memory      uint32 `mapstructure:"memory"`
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
	SaltLength  uint32 `mapstructure:"salt_length"`
	KeyLength   uint32 `mapstructure:"key_length"`
}

type TelemetrySettings struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	Insecure       bool    `mapstructure:"insecure"`
	ServiceName    string  `mapstructure:"service_name"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// StoreSettings selects the credential store.
type StoreSettings struct {
	// Driver is "postgres" or "memory".
	Driver string `mapstructure:"driver"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ANJELA")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.site_url",
		"app.trusted_proxies",
		"app.shutdown_timeout",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"postgres.statement_timeout",
		"postgres.auto_migrate",
		"redis.enabled",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.key_prefix",
		"kafka.enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"session.secret",
		"session.ttl",
		"security.origin_fallback",
		"rate_limit.backend",
		"rate_limit.degradation_policy",
		"rate_limit.window",
		"rate_limit.login_max_attempts",
		"rate_limit.logout_max_attempts",
		"rate_limit.unblock_max_attempts",
		"rate_limit.sweep_interval",
		"rate_limit.breaker_threshold",
		"rate_limit.breaker_open_timeout",
		"rate_limit.call_timeout",
		"lockout.threshold",
		"lockout.expiry",
		"lockout.ttl",
		"notify.provider",
		"notify.operator_email",
		"notify.from",
		"notify.rate_per_minute",
		"notify.burst",
		"notify.queue_size",
		"notify.max_attempts",
		"notify.retry_backoff",
		"notify.smtp.host",
		"notify.smtp.port",
		"notify.smtp.username",
		"notify.smtp.password",
		"notify.mailgun.domain",
		"notify.mailgun.api_key",
		"notify.mailgun.api_base",
		"notify.sendgrid.api_key",
		"telemetry.tracing_enabled",
		"telemetry.otlp_endpoint",
		"telemetry.insecure",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"argon2.memory",
		"argon2.iterations",
		"argon2.parallelism",
		"argon2.salt_length",
		"argon2.key_length",
		"store.driver",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "anjelaweb-auth")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.site_url", "http://localhost:3000")
	v.SetDefault("app.trusted_proxies", []string{"127.0.0.1", "::1"})
	v.SetDefault("app.shutdown_timeout", "10s")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "anjela")
	v.SetDefault("postgres.password", "anjela_password")
	v.SetDefault("postgres.database", "anjela")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")
	v.SetDefault("postgres.statement_timeout", "5s")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.key_prefix", "anjela:rl")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "anjela")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", "30m")

	v.SetDefault("security.origin_fallback", "reject")

	v.SetDefault("rate_limit.backend", "auto")
	v.SetDefault("rate_limit.degradation_policy", "lenient")
	v.SetDefault("rate_limit.window", "10m")
	v.SetDefault("rate_limit.login_max_attempts", 0)
	v.SetDefault("rate_limit.logout_max_attempts", 30)
	v.SetDefault("rate_limit.unblock_max_attempts", 10)
	v.SetDefault("rate_limit.sweep_interval", "1m")
	v.SetDefault("rate_limit.breaker_threshold", 5)
	v.SetDefault("rate_limit.breaker_open_timeout", "30s")
	v.SetDefault("rate_limit.call_timeout", "250ms")

	v.SetDefault("lockout.threshold", 5)
	v.SetDefault("lockout.expiry", "manual")
	v.SetDefault("lockout.ttl", "24h")

	v.SetDefault("notify.provider", "log")
	v.SetDefault("notify.operator_email", "")
	v.SetDefault("notify.from", "no-reply@localhost")
	v.SetDefault("notify.rate_per_minute", 6)
	v.SetDefault("notify.burst", 3)
	v.SetDefault("notify.queue_size", 256)
	v.SetDefault("notify.max_attempts", 4)
	v.SetDefault("notify.retry_backoff", "5s")
	v.SetDefault("notify.smtp.port", 587)

	v.SetDefault("telemetry.tracing_enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	v.SetDefault("telemetry.insecure", true)
	v.SetDefault("telemetry.service_name", "anjelaweb-auth")
	v.SetDefault("telemetry.sampling_rate", 1.0)

	v.SetDefault("argon2.memory", 65536) // 64 MB
	v.SetDefault("argon2.iterations", 3)
	v.SetDefault("argon2.parallelism", 4)
	v.SetDefault("argon2.salt_length", 16)
	v.SetDefault("argon2.key_length", 32)

	v.SetDefault("store.driver", "postgres")
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "ANJELA_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}

// Validate rejects configurations the service must not start with.
func (c *AppConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrMissingConfiguration)
	}

	secret := strings.TrimSpace(c.Session.Secret)
	if secret == "" {
		return fmt.Errorf("%w: session.secret", ErrMissingConfiguration)
	}
	if c.App.IsProduction() && len(secret) < minProductionSecretBytes {
		return fmt.Errorf("%w: session.secret must be at least %d bytes in production", ErrMissingConfiguration, minProductionSecretBytes)
	}

	switch strings.ToLower(c.Store.Driver) {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}
	if c.App.IsProduction() && strings.EqualFold(c.Store.Driver, "memory") {
		return fmt.Errorf("store.driver memory is not allowed in production")
	}

	switch strings.ToLower(c.RateLimit.Backend) {
	case "memory", "redis", "auto":
	default:
		return fmt.Errorf("unsupported rate_limit.backend %q", c.RateLimit.Backend)
	}
	if strings.EqualFold(c.RateLimit.Backend, "redis") && !c.Redis.Enabled {
		return fmt.Errorf("%w: rate_limit.backend redis requires redis.enabled", ErrMissingConfiguration)
	}

	switch strings.ToLower(c.Security.OriginFallback) {
	case "reject", "authenticated":
	default:
		return fmt.Errorf("unsupported security.origin_fallback %q", c.Security.OriginFallback)
	}

	switch strings.ToLower(c.Lockout.Expiry) {
	case "manual", "ttl":
	default:
		return fmt.Errorf("unsupported lockout.expiry %q", c.Lockout.Expiry)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka.brokers", ErrMissingConfiguration)
	}

	return c.Notify.validate()
}

func (n NotifySettings) validate() error {
	provider := strings.ToLower(strings.TrimSpace(n.Provider))
	if provider != "log" && strings.TrimSpace(n.OperatorEmail) == "" {
		return fmt.Errorf("%w: notify.operator_email", ErrMissingConfiguration)
	}

	switch provider {
	case "log":
	case "smtp":
		if n.SMTP.Host == "" {
			return fmt.Errorf("%w: notify.smtp.host", ErrMissingConfiguration)
		}
	case "mailgun":
		if n.Mailgun.Domain == "" || n.Mailgun.APIKey == "" {
			return fmt.Errorf("%w: notify.mailgun.domain and notify.mailgun.api_key", ErrMissingConfiguration)
		}
	case "sendgrid":
		if n.SendGrid.APIKey == "" {
			return fmt.Errorf("%w: notify.sendgrid.api_key", ErrMissingConfiguration)
		}
	default:
		return fmt.Errorf("unsupported notify.provider %q", n.Provider)
	}
	return nil
}
