package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/jchen-dev/recipebox/pkg/errors"
)

// Service exposes the session authentication workflows.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (UserView, error)
	Login(ctx context.Context, req LoginRequest) (Session, error)
	Refresh(ctx context.Context, presented string) (Session, error)
	Verify(ctx context.Context, accessToken string) (Claims, error)
	Logout(ctx context.Context, userID int64) error
}

type service struct {
	cfg     Config
	repo    Repository
	keyring *Keyring
	hasher  *Hasher
	limiter LoginLimiter
	logger  *slog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg Config, repo Repository, keyring *Keyring, hasher *Hasher, limiter LoginLimiter, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg,
		repo:    repo,
		keyring: keyring,
		hasher:  hasher,
		limiter: limiter,
		logger:  logger.With("component", "auth.service"),
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (UserView, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return UserView{}, apperrors.Wrap("bad_request", "invalid email address", err)
	}
	if len(req.Password) < 8 {
		return UserView{}, apperrors.Wrap("bad_request", "password must be at least 8 characters", nil)
	}
	_, exists, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return UserView{}, apperrors.Wrap(CodeInternal, "failed to check user", err)
	}
	if exists {
		return UserView{}, apperrors.Wrap(CodeEmailExists, "email already registered", nil)
	}
	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return UserView{}, apperrors.Wrap(CodeInternal, "failed to hash password", err)
	}
	user, err := s.repo.Create(ctx, email, hashed, RoleUser)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return UserView{}, apperrors.Wrap(CodeEmailExists, "email already registered", err)
		}
		return UserView{}, apperrors.Wrap(CodeInternal, "failed to create user", err)
	}
	return toView(user), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (Session, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return Session{}, apperrors.Wrap(CodeInvalidCredentials, "invalid email or password", nil)
	}
	if strings.TrimSpace(req.Password) == "" {
		return Session{}, apperrors.Wrap(CodeInvalidCredentials, "invalid email or password", nil)
	}
	if blocked, err := s.limiter.TooManyFailures(ctx, email); err != nil {
		s.logger.Warn("login limiter unavailable, allowing attempt", "error", err)
	} else if blocked {
		return Session{}, apperrors.Wrap(CodeTooManyAttempts, "too many failed login attempts", nil)
	}
	user, found, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return Session{}, apperrors.Wrap(CodeInternal, "failed to fetch user", err)
	}
	if !found {
		s.recordFailure(ctx, email)
		return Session{}, apperrors.Wrap(CodeInvalidCredentials, "invalid email or password", nil)
	}
	match, err := s.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return Session{}, apperrors.Wrap(CodeInternal, "failed to verify password", err)
	}
	if !match {
		s.recordFailure(ctx, email)
		return Session{}, apperrors.Wrap(CodeInvalidCredentials, "invalid email or password", nil)
	}
	if err := s.limiter.Reset(ctx, email); err != nil {
		s.logger.Warn("failed to reset login limiter", "error", err)
	}
	return s.issueSession(ctx, user, "")
}

// Refresh exchanges a presented refresh token for a new token pair,
// rotating the stored hash so the presented token cannot be replayed.
// Every credential problem collapses to invalid_credentials; the real
// cause is only distinguished in logs.
func (s *service) Refresh(ctx context.Context, presented string) (Session, error) {
	userID, random, err := splitRefreshToken(presented)
	if err != nil {
		s.logger.Info("refresh rejected", "reason", "malformed token")
		return Session{}, apperrors.Wrap(CodeInvalidCredentials, "invalid refresh token", nil)
	}
	record, found, err := s.repo.GetRefreshToken(ctx, userID)
	if err != nil {
		return Session{}, apperrors.Wrap(CodeInternal, "failed to load refresh token", err)
	}
	if !found {
		s.logger.Info("refresh rejected", "reason", "no stored token", "user_id", userID)
		return Session{}, apperrors.Wrap(CodeInvalidCredentials, "invalid refresh token", nil)
	}
	if time.Now().After(record.ExpiresAt) {
		s.logger.Info("refresh rejected", "reason", "token expired", "user_id", userID)
		return Session{}, apperrors.Wrap(CodeInvalidCredentials, "invalid refresh token", nil)
	}
	match, err := s.hasher.Verify(random, record.Hash)
	if err != nil {
		return Session{}, apperrors.Wrap(CodeInternal, "failed to verify refresh token", err)
	}
	if !match {
		s.logger.Info("refresh rejected", "reason", "hash mismatch", "user_id", userID)
		return Session{}, apperrors.Wrap(CodeInvalidCredentials, "invalid refresh token", nil)
	}
	user, found, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return Session{}, apperrors.Wrap(CodeInternal, "failed to load user", err)
	}
	if !found {
		s.logger.Info("refresh rejected", "reason", "user gone", "user_id", userID)
		return Session{}, apperrors.Wrap(CodeInvalidCredentials, "invalid refresh token", nil)
	}
	return s.issueSession(ctx, user, record.Hash)
}

func (s *service) Verify(_ context.Context, accessToken string) (Claims, error) {
	if strings.TrimSpace(accessToken) == "" {
		return Claims{}, apperrors.Wrap(CodeInvalidAccessToken, "access token missing", nil)
	}
	claims, err := s.keyring.VerifyAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Claims{}, apperrors.Wrap(CodeExpiredAccessToken, "access token expired", err)
		}
		return Claims{}, apperrors.Wrap(CodeInvalidAccessToken, "access token invalid", err)
	}
	return claims, nil
}

func (s *service) Logout(ctx context.Context, userID int64) error {
	if err := s.repo.ClearRefreshToken(ctx, userID); err != nil {
		return apperrors.Wrap(CodeInternal, "failed to clear refresh token", err)
	}
	return nil
}

// issueSession mints a new token pair and persists the refresh hash. When
// rotatingFrom is non-empty the write is a compare-and-swap against that
// hash: of two concurrent refreshes presenting the same token, exactly one
// swap lands and the loser reports invalid_credentials.
func (s *service) issueSession(ctx context.Context, user User, rotatingFrom string) (Session, error) {
	refreshToken, random, err := newRefreshToken(user.ID)
	if err != nil {
		return Session{}, apperrors.Wrap(CodeInternal, "failed to generate refresh token", err)
	}
	refreshHash, err := s.hasher.Hash(random)
	if err != nil {
		return Session{}, apperrors.Wrap(CodeInternal, "failed to hash refresh token", err)
	}
	expiresAt := time.Now().Add(s.cfg.RefreshTokenTTL)
	if rotatingFrom == "" {
		if err := s.repo.SetRefreshToken(ctx, user.ID, refreshHash, expiresAt); err != nil {
			return Session{}, apperrors.Wrap(CodeInternal, "failed to store refresh token", err)
		}
	} else {
		rotated, err := s.repo.RotateRefreshToken(ctx, user.ID, rotatingFrom, refreshHash, expiresAt)
		if err != nil {
			return Session{}, apperrors.Wrap(CodeInternal, "failed to rotate refresh token", err)
		}
		if !rotated {
			s.logger.Info("refresh rejected", "reason", "lost rotation race", "user_id", user.ID)
			return Session{}, apperrors.Wrap(CodeInvalidCredentials, "invalid refresh token", nil)
		}
	}
	now := time.Now()
	accessToken, err := s.keyring.SignAccessToken(Claims{
		UserID:    user.ID,
		Role:      user.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.AccessTokenTTL),
	})
	if err != nil {
		return Session{}, apperrors.Wrap(CodeInternal, "failed to sign access token", err)
	}
	return Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         toView(user),
	}, nil
}

func (s *service) recordFailure(ctx context.Context, email string) {
	if err := s.limiter.RecordFailure(ctx, email); err != nil {
		s.logger.Warn("failed to record login failure", "error", err)
	}
}

func toView(user User) UserView {
	return UserView{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", errors.New("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", err
	}
	return email, nil
}
