package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service. It is
// loaded once at startup and treated as immutable afterwards.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address         string          `yaml:"address"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	AllowedOrigins  []string        `yaml:"allowedOrigins"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// AuthConfig holds the session authentication surface: cookie naming,
// token lifetimes, the signing secret table, hashing cost factors, and the
// failed-login throttle.
type AuthConfig struct {
	AccessCookie    string          `yaml:"accessCookie"`
	RefreshCookie   string          `yaml:"refreshCookie"`
	CSRFCookie      string          `yaml:"csrfCookie"`
	CSRFHeader      string          `yaml:"csrfHeader"`
	CookieSecure    bool            `yaml:"cookieSecure"`
	AccessTokenTTL  time.Duration   `yaml:"accessTokenTtl"`
	RefreshTokenTTL time.Duration   `yaml:"refreshTokenTtl"`
	ActiveVersion   string          `yaml:"activeVersion"`
	Secrets         []SigningSecret `yaml:"secrets"`
	Hashing         HashingConfig   `yaml:"hashing"`
	Throttle        ThrottleConfig  `yaml:"throttle"`
}

// SigningSecret is one (version, secret) pair of the rotation table.
type SigningSecret struct {
	Version string `yaml:"version"`
	Secret  string `yaml:"secret"`
}

// HashingConfig carries the argon2id cost factors.
type HashingConfig struct {
	Memory      uint32 `yaml:"memory"`
	Time        uint32 `yaml:"time"`
	Parallelism uint8  `yaml:"parallelism"`
	SaltLength  uint32 `yaml:"saltLength"`
	KeyLength   uint32 `yaml:"keyLength"`
}

// ThrottleConfig configures the failed-login limiter.
type ThrottleConfig struct {
	MaxFailures int           `yaml:"maxFailures"`
	Window      time.Duration `yaml:"window"`
	ValkeyAddr  string        `yaml:"valkeyAddr"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// Load reads configuration from a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("AUTH_ACCESS_TOKEN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Auth.AccessTokenTTL = parsed
		}
	}
	if v := os.Getenv("AUTH_REFRESH_TOKEN_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Auth.RefreshTokenTTL = parsed
		}
	}
	if v := os.Getenv("AUTH_COOKIE_SECURE"); v != "" {
		cfg.Auth.CookieSecure = v == "1" || strings.EqualFold(v, "true")
	}
	// AUTH_ACTIVE_SECRET replaces or appends the secret for the active
	// version, so deployments can keep secrets out of the config file.
	if v := os.Getenv("AUTH_ACTIVE_SECRET"); v != "" {
		replaced := false
		for i := range cfg.Auth.Secrets {
			if cfg.Auth.Secrets[i].Version == cfg.Auth.ActiveVersion {
				cfg.Auth.Secrets[i].Secret = v
				replaced = true
			}
		}
		if !replaced {
			cfg.Auth.Secrets = append(cfg.Auth.Secrets, SigningSecret{Version: cfg.Auth.ActiveVersion, Secret: v})
		}
	}
	if v := os.Getenv("AUTH_THROTTLE_VALKEY_ADDR"); v != "" {
		cfg.Auth.Throttle.ValkeyAddr = v
	}
	if v := os.Getenv("AUTH_THROTTLE_MAX_FAILURES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Auth.Throttle.MaxFailures = parsed
		}
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("POSTGRES_MIN_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.MinConns = int32(parsed)
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:         ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
		},
		Auth: AuthConfig{
			AccessCookie:    "rb_access",
			RefreshCookie:   "rb_refresh",
			CSRFCookie:      "rb_csrf",
			CSRFHeader:      "X-CSRF-Token",
			CookieSecure:    true,
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 30 * 24 * time.Hour,
			ActiveVersion:   "v1",
			Hashing: HashingConfig{
				Memory:      64 * 1024,
				Time:        3,
				Parallelism: 2,
				SaltLength:  16,
				KeyLength:   32,
			},
			Throttle: ThrottleConfig{
				MaxFailures: 10,
				Window:      15 * time.Minute,
			},
		},
		Postgres: PostgresConfig{
			MaxConns: 4,
			MinConns: 0,
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return errors.New("http.shutdownTimeout must be positive")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.Auth.AccessCookie == "" || c.Auth.RefreshCookie == "" || c.Auth.CSRFCookie == "" {
		return errors.New("auth cookie names cannot be empty")
	}
	if c.Auth.CSRFHeader == "" {
		return errors.New("auth.csrfHeader cannot be empty")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return errors.New("auth.accessTokenTtl must be positive")
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		return errors.New("auth.refreshTokenTtl must exceed auth.accessTokenTtl")
	}
	if c.Auth.ActiveVersion == "" {
		return errors.New("auth.activeVersion cannot be empty")
	}
	active := false
	for _, secret := range c.Auth.Secrets {
		if secret.Version == "" || secret.Secret == "" {
			return errors.New("auth.secrets entries require both version and secret")
		}
		if secret.Version == c.Auth.ActiveVersion {
			active = true
		}
	}
	if !active {
		return fmt.Errorf("auth.activeVersion %q has no matching entry in auth.secrets", c.Auth.ActiveVersion)
	}
	if c.Auth.Hashing.Memory == 0 || c.Auth.Hashing.Time == 0 || c.Auth.Hashing.Parallelism == 0 {
		return errors.New("auth.hashing cost factors must be positive")
	}
	if c.Auth.Hashing.SaltLength < 8 || c.Auth.Hashing.KeyLength < 16 {
		return errors.New("auth.hashing salt/key lengths are too small")
	}
	if c.Auth.Throttle.MaxFailures <= 0 {
		return errors.New("auth.throttle.maxFailures must be positive")
	}
	if c.Auth.Throttle.Window <= 0 {
		return errors.New("auth.throttle.window must be positive")
	}
	return nil
}
