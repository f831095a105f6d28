package database

import (
	"testing"
	"time"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/infra/config"
)

func TestPoolConfigAppliesSettings(t *testing.T) {
	cfg := config.PostgresSettings{
		Host:             "localhost",
		Port:             5432,
		User:             "anjela",
		Password:         "secret",
		Database:         "anjela",
		SSLMode:          "disable",
		MaxConns:         7,
		MinConns:         1,
		MaxConnLifetime:  time.Hour,
		StatementTimeout: 1500 * time.Millisecond,
	}

	poolConfig, err := PoolConfig(cfg, "anjelaweb-auth")
	if err != nil {
		t.Fatalf("PoolConfig returned error: %v", err)
	}

	if poolConfig.MaxConns != 7 || poolConfig.MinConns != 1 || poolConfig.MaxConnLifetime != time.Hour {
		t.Fatalf("pool limits not applied: max=%d min=%d lifetime=%s", poolConfig.MaxConns, poolConfig.MinConns, poolConfig.MaxConnLifetime)
	}

	params := poolConfig.ConnConfig.RuntimeParams
	want := map[string]string{
		"search_path":       "auth,public",
		"application_name":  "anjelaweb-auth",
		"statement_timeout": "1500",
	}
	for key, value := range want {
		if params[key] != value {
			t.Fatalf("expected %s=%q, got %q", key, value, params[key])
		}
	}
}

func TestPoolConfigOmitsUnsetTimeout(t *testing.T) {
	poolConfig, err := PoolConfig(config.PostgresSettings{Host: "localhost", Port: 5432, User: "u", Database: "d", SSLMode: "disable"}, "")
	if err != nil {
		t.Fatalf("PoolConfig returned error: %v", err)
	}
	if _, ok := poolConfig.ConnConfig.RuntimeParams["statement_timeout"]; ok {
		t.Fatal("expected no statement_timeout when unset")
	}
	if _, ok := poolConfig.ConnConfig.RuntimeParams["application_name"]; ok {
		t.Fatal("expected no application_name when empty")
	}
}
