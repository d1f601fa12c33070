package userrepo

import (
	"context"
	"sync"
	"time"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
)

// MemoryRepository provides an in-memory user store for tests/dev.
type MemoryRepository struct {
	mu         sync.RWMutex
	users      map[int64]auth.User
	emailIndex map[string]int64
	refresh    map[int64]auth.RefreshTokenRecord
	seq        int64
}

// NewMemoryRepository constructs a new in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:      make(map[int64]auth.User),
		emailIndex: make(map[string]int64),
		refresh:    make(map[int64]auth.RefreshTokenRecord),
	}
}

// Create stores the user record.
func (r *MemoryRepository) Create(_ context.Context, email, passwordHash string, role auth.Role) (auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.emailIndex[email]; exists {
		return auth.User{}, auth.ErrEmailExists
	}
	r.seq++
	user := auth.User{
		ID:           r.seq,
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	r.users[user.ID] = user
	r.emailIndex[email] = user.ID
	return user, nil
}

// GetByEmail returns a user by email.
func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (auth.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.emailIndex[email]; ok {
		return r.users[id], true, nil
	}
	return auth.User{}, false, nil
}

// GetByID fetches by ID.
func (r *MemoryRepository) GetByID(_ context.Context, id int64) (auth.User, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	return user, ok, nil
}

// GetRefreshToken loads the stored refresh hash record.
func (r *MemoryRepository) GetRefreshToken(_ context.Context, userID int64) (auth.RefreshTokenRecord, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.refresh[userID]
	return record, ok, nil
}

// SetRefreshToken unconditionally replaces the stored record.
func (r *MemoryRepository) SetRefreshToken(_ context.Context, userID int64, hash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh[userID] = auth.RefreshTokenRecord{Hash: hash, ExpiresAt: expiresAt}
	return nil
}

// RotateRefreshToken performs the compare-and-swap under the store lock.
func (r *MemoryRepository) RotateRefreshToken(_ context.Context, userID int64, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.refresh[userID]
	if !ok || record.Hash != oldHash {
		return false, nil
	}
	r.refresh[userID] = auth.RefreshTokenRecord{Hash: newHash, ExpiresAt: expiresAt}
	return true, nil
}

// ClearRefreshToken drops the stored record.
func (r *MemoryRepository) ClearRefreshToken(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.refresh, userID)
	return nil
}

var _ auth.Repository = (*MemoryRepository)(nil)
