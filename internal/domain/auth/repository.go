package auth

import (
	"context"
	"time"
)

// Repository abstracts user persistence.
type Repository interface {
	Create(ctx context.Context, email, passwordHash string, role Role) (User, error)
	GetByEmail(ctx context.Context, email string) (User, bool, error)
	GetByID(ctx context.Context, id int64) (User, bool, error)

	// GetRefreshToken returns the stored hash record, with ok=false when
	// the user has no active refresh token.
	GetRefreshToken(ctx context.Context, userID int64) (RefreshTokenRecord, bool, error)

	// SetRefreshToken unconditionally replaces the stored record (login).
	SetRefreshToken(ctx context.Context, userID int64, hash string, expiresAt time.Time) error

	// RotateRefreshToken replaces the stored record only while it still
	// equals oldHash, and reports whether the swap landed. Two concurrent
	// refreshes presenting the same token race here; exactly one wins.
	RotateRefreshToken(ctx context.Context, userID int64, oldHash, newHash string, expiresAt time.Time) (bool, error)

	// ClearRefreshToken drops the stored record (logout). Clearing an
	// already-empty record is not an error.
	ClearRefreshToken(ctx context.Context, userID int64) error
}

// LoginLimiter throttles repeated failed logins per key.
type LoginLimiter interface {
	TooManyFailures(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}
