package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/jchen-dev/recipebox/pkg/errors"
)

func newTestService(t *testing.T, cfg Config) (Service, *memoryRepo, *stubLimiter) {
	t.Helper()
	repo := newMemoryRepo()
	limiter := &stubLimiter{maxFailures: 10}
	keyring, err := NewKeyring([]SigningKey{{Version: "v1", Secret: "test-secret"}}, "v1")
	require.NoError(t, err)
	svc := NewService(cfg, repo, keyring, NewHasher(testHashParams()), limiter, newTestLogger())
	return svc, repo, limiter
}

func defaultTestConfig() Config {
	return Config{
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
	}
}

func registerAndLogin(t *testing.T, svc Service) Session {
	t.Helper()
	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "cook@example.com",
		Password: "pass1234",
	})
	require.NoError(t, err)
	session, err := svc.Login(context.Background(), LoginRequest{
		Email:    "cook@example.com",
		Password: "pass1234",
	})
	require.NoError(t, err)
	return session
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService(t, defaultTestConfig())

	view, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "Cook@Example.com",
		Password: "pass1234",
	})
	require.NoError(t, err)
	require.Equal(t, "cook@example.com", view.Email)
	require.Equal(t, RoleUser, view.Role)

	session, err := svc.Login(context.Background(), LoginRequest{
		Email:    "cook@example.com",
		Password: "pass1234",
	})
	require.NoError(t, err)
	require.NotEmpty(t, session.AccessToken)
	require.NotEmpty(t, session.RefreshToken)

	claims, err := svc.Verify(context.Background(), session.AccessToken)
	require.NoError(t, err)
	require.Equal(t, view.ID, claims.UserID)
	require.Equal(t, RoleUser, claims.Role)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestService_LoginFailuresShareOneCode(t *testing.T) {
	svc, _, _ := newTestService(t, defaultTestConfig())
	registerAndLogin(t, svc)

	// Wrong password and unknown account must be indistinguishable.
	_, err := svc.Login(context.Background(), LoginRequest{Email: "cook@example.com", Password: "wrong-pass"})
	require.True(t, apperrors.IsCode(err, CodeInvalidCredentials))

	_, err = svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "pass1234"})
	require.True(t, apperrors.IsCode(err, CodeInvalidCredentials))
}

func TestService_LoginThrottle(t *testing.T) {
	svc, _, limiter := newTestService(t, defaultTestConfig())
	registerAndLogin(t, svc)
	limiter.maxFailures = 3

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), LoginRequest{Email: "cook@example.com", Password: "wrong-pass"})
		require.True(t, apperrors.IsCode(err, CodeInvalidCredentials))
	}
	// Blocked before the password is even checked.
	_, err := svc.Login(context.Background(), LoginRequest{Email: "cook@example.com", Password: "pass1234"})
	require.True(t, apperrors.IsCode(err, CodeTooManyAttempts))
}

func TestService_RefreshRotatesToken(t *testing.T) {
	svc, _, _ := newTestService(t, defaultTestConfig())
	session := registerAndLogin(t, svc)

	refreshed, err := svc.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotEqual(t, session.RefreshToken, refreshed.RefreshToken)

	// Rotation-on-use: the presented token is dead after a successful
	// refresh even though it has not expired.
	_, err = svc.Refresh(context.Background(), session.RefreshToken)
	require.True(t, apperrors.IsCode(err, CodeInvalidCredentials))

	// The rotated replacement works exactly once more.
	_, err = svc.Refresh(context.Background(), refreshed.RefreshToken)
	require.NoError(t, err)
}

func TestService_RefreshNeverIssuedToken(t *testing.T) {
	svc, repo, _ := newTestService(t, defaultTestConfig())
	session := registerAndLogin(t, svc)

	// Syntactically valid, correct user id, but a random part that was
	// never issued.
	forged := "1.bm90LXRoZS1yZWFsLXJhbmRvbQ"
	_, err := svc.Refresh(context.Background(), forged)
	require.True(t, apperrors.IsCode(err, CodeInvalidCredentials))

	// The stored record is untouched and the real token still works.
	_, ok, err := repo.GetRefreshToken(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = svc.Refresh(context.Background(), session.RefreshToken)
	require.NoError(t, err)
}

func TestService_RefreshMalformedToken(t *testing.T) {
	svc, _, _ := newTestService(t, defaultTestConfig())
	registerAndLogin(t, svc)

	for _, presented := range []string{"", "garbage", "1.", ".xyz", "one.two"} {
		_, err := svc.Refresh(context.Background(), presented)
		require.True(t, apperrors.IsCode(err, CodeInvalidCredentials), "presented=%q", presented)
	}
}

func TestService_RefreshExpiredRecord(t *testing.T) {
	svc, repo, _ := newTestService(t, defaultTestConfig())
	session := registerAndLogin(t, svc)

	// Age the stored record past its expiry; the hash itself still matches.
	repo.mu.Lock()
	record := repo.refresh[1]
	record.ExpiresAt = time.Now().Add(-time.Minute)
	repo.refresh[1] = record
	repo.mu.Unlock()

	_, err := svc.Refresh(context.Background(), session.RefreshToken)
	require.True(t, apperrors.IsCode(err, CodeInvalidCredentials))
}

func TestService_ConcurrentRefreshSingleWinner(t *testing.T) {
	svc, _, _ := newTestService(t, defaultTestConfig())
	session := registerAndLogin(t, svc)

	const refreshers = 8
	var wg sync.WaitGroup
	results := make([]Session, refreshers)
	errs := make([]error, refreshers)
	for i := 0; i < refreshers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Refresh(context.Background(), session.RefreshToken)
		}(i)
	}
	wg.Wait()

	// The compare-and-swap admits exactly one winner; everyone else loses
	// with the generic credential error.
	winners := 0
	var winner Session
	for i := range errs {
		if errs[i] == nil {
			winners++
			winner = results[i]
		} else {
			require.True(t, apperrors.IsCode(errs[i], CodeInvalidCredentials))
		}
	}
	require.Equal(t, 1, winners)

	// Exactly one refresh token is valid afterwards: the winner's.
	_, err := svc.Refresh(context.Background(), winner.RefreshToken)
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background(), session.RefreshToken)
	require.True(t, apperrors.IsCode(err, CodeInvalidCredentials))
}

func TestService_VerifyClassification(t *testing.T) {
	cfg := defaultTestConfig()
	svc, _, _ := newTestService(t, cfg)
	registerAndLogin(t, svc)

	_, err := svc.Verify(context.Background(), "not-a-token")
	require.True(t, apperrors.IsCode(err, CodeInvalidAccessToken))

	_, err = svc.Verify(context.Background(), "")
	require.True(t, apperrors.IsCode(err, CodeInvalidAccessToken))

	// An expired token signed with the same keyring gets the retryable code.
	keyring, kerr := NewKeyring([]SigningKey{{Version: "v1", Secret: "test-secret"}}, "v1")
	require.NoError(t, kerr)
	expired, serr := keyring.SignAccessToken(Claims{
		UserID:    1,
		Role:      RoleUser,
		IssuedAt:  time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	})
	require.NoError(t, serr)
	_, err = svc.Verify(context.Background(), expired)
	require.True(t, apperrors.IsCode(err, CodeExpiredAccessToken))
}

func TestService_LogoutRevokesRefreshToken(t *testing.T) {
	svc, _, _ := newTestService(t, defaultTestConfig())
	session := registerAndLogin(t, svc)

	require.NoError(t, svc.Logout(context.Background(), session.User.ID))

	_, err := svc.Refresh(context.Background(), session.RefreshToken)
	require.True(t, apperrors.IsCode(err, CodeInvalidCredentials))
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

// memoryRepo mirrors the infra memory repository without importing it,
// which would cycle back into this package.
type memoryRepo struct {
	mu      sync.Mutex
	users   map[int64]User
	emails  map[string]int64
	refresh map[int64]RefreshTokenRecord
	seq     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		users:   make(map[int64]User),
		emails:  make(map[string]int64),
		refresh: make(map[int64]RefreshTokenRecord),
	}
}

func (m *memoryRepo) Create(_ context.Context, email, passwordHash string, role Role) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.emails[email]; exists {
		return User{}, ErrEmailExists
	}
	m.seq++
	user := User{ID: m.seq, Email: email, Role: role, PasswordHash: passwordHash, CreatedAt: time.Now()}
	m.users[user.ID] = user
	m.emails[email] = user.ID
	return user, nil
}

func (m *memoryRepo) GetByEmail(_ context.Context, email string) (User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.emails[email]; ok {
		return m.users[id], true, nil
	}
	return User{}, false, nil
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	return user, ok, nil
}

func (m *memoryRepo) GetRefreshToken(_ context.Context, userID int64) (RefreshTokenRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.refresh[userID]
	return record, ok, nil
}

func (m *memoryRepo) SetRefreshToken(_ context.Context, userID int64, hash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[userID] = RefreshTokenRecord{Hash: hash, ExpiresAt: expiresAt}
	return nil
}

func (m *memoryRepo) RotateRefreshToken(_ context.Context, userID int64, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.refresh[userID]
	if !ok || record.Hash != oldHash {
		return false, nil
	}
	m.refresh[userID] = RefreshTokenRecord{Hash: newHash, ExpiresAt: expiresAt}
	return true, nil
}

func (m *memoryRepo) ClearRefreshToken(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, userID)
	return nil
}

type stubLimiter struct {
	mu          sync.Mutex
	failures    map[string]int
	maxFailures int
}

func (s *stubLimiter) TooManyFailures(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[key] >= s.maxFailures, nil
}

func (s *stubLimiter) RecordFailure(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures == nil {
		s.failures = make(map[string]int)
	}
	s.failures[key]++
	return nil
}

func (s *stubLimiter) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, key)
	return nil
}
