package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/domain"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/core/port"
	"github.com/AdamTroyan/AnjelaTroyaWeb/internal/repository"
)

var identityColumns = []string{
	"id",
	"email",
	"password_hash",
	"role",
	"is_active",
	"token_version",
	"created_at",
	"updated_at",
}

// IdentityRepository implements port.IdentityRepository using PostgreSQL.
type IdentityRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewIdentityRepository wires a PostgreSQL-backed identity repository.
func NewIdentityRepository(exec pgExecutor) *IdentityRepository {
	return &IdentityRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *IdentityRepository) WithTx(tx pgx.Tx) *IdentityRepository {
	if tx == nil {
		return r
	}
	return &IdentityRepository{
		exec:    tx,
		builder: r.builder,
		now:     r.now,
	}
}

var _ port.IdentityRepository = (*IdentityRepository)(nil)

// GetByID retrieves an identity by identifier.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, repository.ErrNotFound
	}
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves an identity by normalised email.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, repository.ErrNotFound
	}
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

func (r *IdentityRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Identity, error) {
	stmt, args, err := r.builder.
		Select(identityColumns...).
		From("auth.identities").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select identity sql: %w", err)
	}

	identity, err := scanIdentity(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// Upsert inserts the identity or, when the email exists, replaces its password
// hash, role and active flag. A changed password hash also bumps the token
// version so sessions issued under the old password stop resolving.
func (r *IdentityRepository) Upsert(ctx context.Context, identity domain.Identity) (*domain.Identity, error) {
	email := domain.NormalizeEmail(identity.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if identity.PasswordHash == "" {
		return nil, fmt.Errorf("password hash is required")
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	if identity.Role == "" {
		identity.Role = domain.RoleUser
	}

	now := r.now()
	stmt, args, err := r.builder.
		Insert("auth.identities").
		Columns(identityColumns...).
		Values(
			identity.ID,
			email,
			identity.PasswordHash,
			string(identity.Role),
			identity.IsActive,
			int64(0),
			now,
			now,
		).
		Suffix(`ON CONFLICT (email) DO UPDATE
            SET token_version = CASE
                    WHEN auth.identities.password_hash <> EXCLUDED.password_hash
                    THEN auth.identities.token_version + 1
                    ELSE auth.identities.token_version
                END,
                password_hash = EXCLUDED.password_hash,
                role = EXCLUDED.role,
                is_active = EXCLUDED.is_active,
                updated_at = EXCLUDED.updated_at
        RETURNING ` + strings.Join(identityColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upsert identity sql: %w", err)
	}

	stored, err := scanIdentity(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("upsert identity: %w", err)
	}
	return stored, nil
}

// IncrementTokenVersion bumps the version in a single statement and returns the new value.
func (r *IdentityRepository) IncrementTokenVersion(ctx context.Context, id string) (int64, error) {
	stmt, args, err := r.builder.
		Update("auth.identities").
		Set("token_version", squirrel.Expr("token_version + 1")).
		Set("updated_at", r.now()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING token_version").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build increment token version sql: %w", err)
	}

	var version int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("increment token version: %w", err)
	}
	return version, nil
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		identity domain.Identity
		role     string
	)
	if err := row.Scan(
		&identity.ID,
		&identity.Email,
		&identity.PasswordHash,
		&role,
		&identity.IsActive,
		&identity.TokenVersion,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	identity.Role = domain.ParseRole(role)
	return &identity, nil
}
