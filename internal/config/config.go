// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment. "production" turns on Secure cookies and JSON logs.
	Env string `mapstructure:"APP_ENV"`

	// DatabaseDriver selects the SQL backend: "sqlite" (default) or "postgres".
	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	// DatabaseURL is a file path for sqlite or a postgres:// URL for postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// SessionTTL is the fixed session lifetime from issuance (default 8h).
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// SessionStore selects where sessions live: "sql" (default) or "redis".
	SessionStore string `mapstructure:"SESSION_STORE"`
	// RedisURL is the redis:// URL used when SessionStore is "redis".
	RedisURL string `mapstructure:"REDIS_URL"`
	// SessionSweepInterval enables a periodic expired-session sweep when positive (e.g. "15m").
	SessionSweepInterval string `mapstructure:"SESSION_SWEEP_INTERVAL"`

	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// MinPasswordLength is the minimum accepted password length; default 8.
	MinPasswordLength int `mapstructure:"MIN_PASSWORD_LENGTH"`
	// UniformLoginErrors reports an inactive firm as invalid credentials.
	UniformLoginErrors bool `mapstructure:"AUTH_UNIFORM_LOGIN_ERRORS"`

	// LoginRatePerMinute and LoginRateBurst shape the per-IP login token bucket.
	LoginRatePerMinute int `mapstructure:"LOGIN_RATE_PER_MINUTE"`
	LoginRateBurst     int `mapstructure:"LOGIN_RATE_BURST"`

	// KafkaBrokers is a comma-separated broker list; empty logs registration events instead.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// RegistrationTopic is the Kafka topic for firm registration events.
	RegistrationTopic string `mapstructure:"REGISTRATION_TOPIC"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// CORSAllowedOrigins is a comma-separated list of frontend origins.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// TLSEnabled serves HTTPS with a certificate from TLSCertDir, generating a self-signed one if missing.
	TLSEnabled bool   `mapstructure:"TLS_ENABLED"`
	TLSCertDir string `mapstructure:"TLS_CERT_DIR"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "./cozyhome.db")
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("SESSION_STORE", "sql")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "0")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("MIN_PASSWORD_LENGTH", 8)
	v.SetDefault("AUTH_UNIFORM_LOGIN_ERRORS", false)
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 10)
	v.SetDefault("LOGIN_RATE_BURST", 5)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("REGISTRATION_TOPIC", "cozyhome.firm-registrations")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("TLS_ENABLED", false)
	v.SetDefault("TLS_CERT_DIR", "./certs")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL must be set")
	}
	switch c.SessionStore {
	case "sql":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("config: REDIS_URL must be set when SESSION_STORE=redis")
		}
	default:
		return fmt.Errorf("config: SESSION_STORE must be sql or redis, got %q", c.SessionStore)
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.MinPasswordLength < 1 || c.MinPasswordLength > 72 {
		return errors.New("config: MIN_PASSWORD_LENGTH must be between 1 and 72")
	}
	if c.LoginRatePerMinute <= 0 || c.LoginRateBurst <= 0 {
		return errors.New("config: LOGIN_RATE_PER_MINUTE and LOGIN_RATE_BURST must be positive")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SessionLifetime parses SessionTTL. Returns 8h if unset or invalid.
func (c *Config) SessionLifetime() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 8 * time.Hour
	}
	return d
}

// SweepInterval parses SessionSweepInterval. Returns 0 (disabled) if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.SessionSweepInterval)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	return splitList(c.KafkaBrokers)
}

// AllowedOrigins returns CORS origins from the comma-separated config.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.CORSAllowedOrigins)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
