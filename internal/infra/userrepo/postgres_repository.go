package userrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
)

// PostgresRepository persists users in Postgres.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new user row.
func (r *PostgresRepository) Create(ctx context.Context, email, passwordHash string, role auth.Role) (auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, role, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, role, password_hash, created_at
	`, email, string(role), passwordHash)
	user, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return auth.User{}, auth.ErrEmailExists
		}
		return auth.User{}, err
	}
	return user, nil
}

// GetByEmail fetches a user by email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (auth.User, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, role, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, false, nil
	}
	if err != nil {
		return auth.User{}, false, err
	}
	return user, true, nil
}

// GetByID fetches by primary key.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (auth.User, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, role, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, false, nil
	}
	if err != nil {
		return auth.User{}, false, err
	}
	return user, true, nil
}

// GetRefreshToken loads the stored refresh hash record.
func (r *PostgresRepository) GetRefreshToken(ctx context.Context, userID int64) (auth.RefreshTokenRecord, bool, error) {
	var record auth.RefreshTokenRecord
	err := r.pool.QueryRow(ctx, `
		SELECT refresh_token_hash, refresh_token_expires_at
		FROM users
		WHERE id = $1 AND refresh_token_hash IS NOT NULL
	`, userID).Scan(&record.Hash, &record.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.RefreshTokenRecord{}, false, nil
	}
	if err != nil {
		return auth.RefreshTokenRecord{}, false, err
	}
	record.ExpiresAt = record.ExpiresAt.UTC()
	return record, true, nil
}

// SetRefreshToken unconditionally replaces the stored record.
func (r *PostgresRepository) SetRefreshToken(ctx context.Context, userID int64, hash string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET refresh_token_hash = $2, refresh_token_expires_at = $3
		WHERE id = $1
	`, userID, hash, expiresAt)
	return err
}

// RotateRefreshToken swaps the stored record only while it still holds
// oldHash. The WHERE clause is the compare half of the compare-and-swap;
// a concurrent rotation that already replaced the hash makes this a no-op.
func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, userID int64, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET refresh_token_hash = $3, refresh_token_expires_at = $4
		WHERE id = $1 AND refresh_token_hash = $2
	`, userID, oldHash, newHash, expiresAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ClearRefreshToken drops the stored record.
func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET refresh_token_hash = NULL, refresh_token_expires_at = NULL
		WHERE id = $1
	`, userID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (auth.User, error) {
	var user auth.User
	var role string
	var created time.Time
	if err := row.Scan(&user.ID, &user.Email, &role, &user.PasswordHash, &created); err != nil {
		return auth.User{}, err
	}
	user.Role = auth.Role(role)
	user.CreatedAt = created.UTC()
	return user, nil
}

var _ auth.Repository = (*PostgresRepository)(nil)
