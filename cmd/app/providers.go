package main

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/valkey-io/valkey-go"

	"github.com/jchen-dev/recipebox/internal/domain/auth"
	"github.com/jchen-dev/recipebox/internal/domain/recipe"
	"github.com/jchen-dev/recipebox/internal/infra/config"
	"github.com/jchen-dev/recipebox/internal/infra/loginlimit"
	"github.com/jchen-dev/recipebox/internal/infra/migrations"
	"github.com/jchen-dev/recipebox/internal/infra/reciperepo"
	"github.com/jchen-dev/recipebox/internal/infra/userrepo"
	httpiface "github.com/jchen-dev/recipebox/internal/interface/http"
)

func provideAuthConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
	}
}

func provideKeyring(cfg *config.Config) (*auth.Keyring, error) {
	keys := make([]auth.SigningKey, 0, len(cfg.Auth.Secrets))
	for _, secret := range cfg.Auth.Secrets {
		keys = append(keys, auth.SigningKey{Version: secret.Version, Secret: secret.Secret})
	}
	return auth.NewKeyring(keys, cfg.Auth.ActiveVersion)
}

func provideHasher(cfg *config.Config) *auth.Hasher {
	return auth.NewHasher(auth.HashParams{
		Memory:      cfg.Auth.Hashing.Memory,
		Time:        cfg.Auth.Hashing.Time,
		Parallelism: cfg.Auth.Hashing.Parallelism,
		SaltLength:  cfg.Auth.Hashing.SaltLength,
		KeyLength:   cfg.Auth.Hashing.KeyLength,
	})
}

func provideLoginLimiter(cfg *config.Config, logger *slog.Logger) auth.LoginLimiter {
	throttle := cfg.Auth.Throttle
	fallback := loginlimit.NewMemoryStore(throttle.MaxFailures, throttle.Window)
	addr := strings.TrimSpace(throttle.ValkeyAddr)
	if addr == "" {
		return fallback
	}
	client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		logger.Error("failed to create valkey client, using memory login limiter", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, using memory login limiter", "error", err)
		return fallback
	}
	logger.Info("valkey login limiter enabled", "addr", addr)
	return loginlimit.NewValkeyStore(client, "loginfail", throttle.MaxFailures, throttle.Window)
}

// providePool returns nil when Postgres is not configured or unreachable,
// in which case repositories fall back to memory stores.
func providePool(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory repositories")
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repositories", "error", err)
		return nil
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repositories", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repositories", "error", err)
		pool.Close()
		return nil
	}
	if err := runMigrations(ctx, dsn); err != nil {
		logger.Error("migrations failed, using memory repositories", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("postgres repositories enabled")
	return pool
}

func runMigrations(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

func provideUserRepository(pool *pgxpool.Pool) auth.Repository {
	if pool == nil {
		return userrepo.NewMemoryRepository()
	}
	return userrepo.NewPostgresRepository(pool)
}

func provideRecipeRepository(pool *pgxpool.Pool) recipe.Repository {
	if pool == nil {
		return reciperepo.NewMemoryRepository()
	}
	return reciperepo.NewPostgresRepository(pool)
}

func provideCookieConfig(cfg *config.Config) httpiface.CookieConfig {
	return httpiface.NewCookieConfig(cfg.Auth)
}
