package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
)

func TestAuditLogRepository_Append(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAuditLogRepository(mock)

	mock.ExpectExec(`INSERT INTO auth\.audit_log \(id,action,email,ip,user_agent,detail,created_at\)`).
		WithArgs(pgxmock.AnyArg(), "login.failed", "o***@example.com", "203.0.113.7", "curl/8", "attempt 2", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Append(context.Background(), domain.AuditEntry{
		Action:    domain.AuditActionLoginFailed,
		Email:     "o***@example.com",
		IP:        "203.0.113.7",
		UserAgent: "curl/8",
		Detail:    "attempt 2",
	})
	if err != nil {
		t.Fatalf("Append returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAuditLogRepository_Recent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAuditLogRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "action", "email", "ip", "user_agent", "detail", "created_at"}).
		AddRow("a-2", "logout", "o***@example.com", "203.0.113.7", "", "", now).
		AddRow("a-1", "login.succeeded", "o***@example.com", "203.0.113.7", "", "", now.Add(-time.Minute))

	mock.ExpectQuery(`SELECT .* FROM auth\.audit_log ORDER BY created_at DESC LIMIT 2`).
		WillReturnRows(rows)

	entries, err := repo.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != domain.AuditActionLogout {
		t.Fatalf("unexpected entries %+v", entries)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureSchemaAppliesEmbeddedSQL(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).
		WithArgs(schemaLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS auth`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCommit()

	if err := EnsureSchema(context.Background(), mock); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestEnsureSchemaRollsBackOnFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs(schemaLockKey).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS auth`).
		WillReturnError(errors.New("permission denied for database"))
	mock.ExpectRollback()

	if err := EnsureSchema(context.Background(), mock); err == nil {
		t.Fatal("expected EnsureSchema to fail")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
