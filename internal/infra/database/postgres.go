package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
)

const (
	authSchema  = "auth"
	pingTimeout = 5 * time.Second
)

// PoolConfig translates settings into a pgxpool config. Sessions get auth
// first on the search path, the application name and a statement timeout so a
// stuck query cannot hold a login request open.
func PoolConfig(cfg config.PostgresSettings, appName string) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	params := poolConfig.ConnConfig.RuntimeParams
	if params == nil {
		params = make(map[string]string)
		poolConfig.ConnConfig.RuntimeParams = params
	}
	params["search_path"] = authSchema + ",public"
	if appName != "" {
		params["application_name"] = appName
	}
	if cfg.StatementTimeout > 0 {
		params["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}

	return poolConfig, nil
}

// NewPostgresPool opens the credential store pool and pings it once.
func NewPostgresPool(ctx context.Context, cfg config.PostgresSettings, appName string, log *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := PoolConfig(cfg, appName)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Info("connected to credential store",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.Int32("max_conns", poolConfig.MaxConns),
		zap.Duration("statement_timeout", cfg.StatementTimeout),
	)

	return pool, nil
}
