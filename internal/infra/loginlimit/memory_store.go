package loginlimit

import (
	"context"
	"sync"
	"time"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
)

// MemoryStore counts failed logins per key in process memory. Suitable for
// tests and single-node deployments.
type MemoryStore struct {
	mu          sync.Mutex
	entries     map[string]entry
	maxFailures int
	window      time.Duration
}

type entry struct {
	count     int
	windowEnd time.Time
}

// NewMemoryStore constructs the in-memory limiter.
func NewMemoryStore(maxFailures int, window time.Duration) *MemoryStore {
	return &MemoryStore{
		entries:     make(map[string]entry),
		maxFailures: maxFailures,
		window:      window,
	}
}

func (s *MemoryStore) TooManyFailures(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || time.Now().After(e.windowEnd) {
		return false, nil
	}
	return e.count >= s.maxFailures, nil
}

func (s *MemoryStore) RecordFailure(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	e, ok := s.entries[key]
	if !ok || now.After(e.windowEnd) {
		s.entries[key] = entry{count: 1, windowEnd: now.Add(s.window)}
		return nil
	}
	e.count++
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

var _ auth.LoginLimiter = (*MemoryStore)(nil)
