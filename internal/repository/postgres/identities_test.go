package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository"
)

var identityRowColumns = []string{"id", "email", "password_hash", "role", "is_active", "token_version", "created_at", "updated_at"}

func TestIdentityRepository_GetByEmailNormalises(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewIdentityRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(identityRowColumns).
		AddRow("id-1", "owner@example.com", "argon2id$hash", "ADMIN", true, int64(3), now, now)

	mock.ExpectQuery(`SELECT .* FROM auth\.identities WHERE email = \$1 LIMIT 1`).
		WithArgs("owner@example.com").
		WillReturnRows(rows)

	identity, err := repo.GetByEmail(context.Background(), "  Owner@Example.COM ")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	if identity.ID != "id-1" || identity.Role != domain.RoleAdmin || identity.TokenVersion != 3 || !identity.IsActive {
		t.Fatalf("unexpected identity %+v", identity)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityRepository_GetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewIdentityRepository(mock)

	mock.ExpectQuery(`SELECT .* FROM auth\.identities WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityRepository_Upsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewIdentityRepository(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO auth\.identities .* ON CONFLICT \(email\) DO UPDATE .* RETURNING id, email`).
		WithArgs("id-1", "owner@example.com", "argon2id$hash", "ADMIN", true, int64(0), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(identityRowColumns).
			AddRow("id-1", "owner@example.com", "argon2id$hash", "ADMIN", true, int64(1), now, now))

	stored, err := repo.Upsert(context.Background(), domain.Identity{
		ID:           "id-1",
		Email:        "Owner@example.com",
		PasswordHash: "argon2id$hash",
		Role:         domain.RoleAdmin,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if stored.TokenVersion != 1 {
		t.Fatalf("expected stored token version 1, got %d", stored.TokenVersion)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestIdentityRepository_UpsertRequiresHash(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewIdentityRepository(mock)
	if _, err := repo.Upsert(context.Background(), domain.Identity{Email: "owner@example.com"}); err == nil {
		t.Fatal("expected error for missing password hash")
	}
}

func TestIdentityRepository_IncrementTokenVersion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewIdentityRepository(mock)

	mock.ExpectQuery(`UPDATE auth\.identities SET token_version = token_version \+ 1, updated_at = \$1 WHERE id = \$2 RETURNING token_version`).
		WithArgs(pgxmock.AnyArg(), "id-1").
		WillReturnRows(pgxmock.NewRows([]string{"token_version"}).AddRow(int64(4)))

	version, err := repo.IncrementTokenVersion(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("IncrementTokenVersion returned error: %v", err)
	}
	if version != 4 {
		t.Fatalf("expected version 4, got %d", version)
	}

	mock.ExpectQuery(`UPDATE auth\.identities`).
		WithArgs(pgxmock.AnyArg(), "gone").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.IncrementTokenVersion(context.Background(), "gone"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
