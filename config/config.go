// Package config loads and validates the core's configuration from env and
// an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"authcore"
	"authcore/token"
)

// Config holds the core's configuration loaded from the environment.
type Config struct {
	// JWTSecret is the HMAC signing secret (at least 32 bytes). Set either
	// this or the PEM key pair, not both.
	JWTSecret string `mapstructure:"AUTHCORE_JWT_SECRET"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to
	// file; used with AUTHCORE_JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"AUTHCORE_JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file.
	JWTPublicKey string `mapstructure:"AUTHCORE_JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim stamped into every token.
	JWTIssuer string `mapstructure:"AUTHCORE_JWT_ISSUER"`
	// JWTAudience is the aud claim stamped into every token.
	JWTAudience string `mapstructure:"AUTHCORE_JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"AUTHCORE_JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"AUTHCORE_JWT_REFRESH_TTL"`
	// MaxSessionsPerUser caps live sessions per user; default 5.
	MaxSessionsPerUser int `mapstructure:"AUTHCORE_MAX_SESSIONS_PER_USER"`
	// LockoutThreshold is how many failures within the window lock an email;
	// default 5.
	LockoutThreshold int `mapstructure:"AUTHCORE_LOCKOUT_THRESHOLD"`
	// LockoutWindow is the sliding lockout window (e.g. "15m").
	LockoutWindow string `mapstructure:"AUTHCORE_LOCKOUT_WINDOW"`
	// RotateRefreshTokens rotates the refresh token on every refresh;
	// default true.
	RotateRefreshTokens bool `mapstructure:"AUTHCORE_ROTATE_REFRESH_TOKENS"`
	// BcryptCost is the bcrypt cost factor (4 to 31); default 12.
	BcryptCost int `mapstructure:"AUTHCORE_BCRYPT_COST"`
	// HashConcurrency caps concurrent bcrypt computations; 0 uses GOMAXPROCS.
	HashConcurrency int `mapstructure:"AUTHCORE_HASH_CONCURRENCY"`
	// SweepInterval is the background sweep period (e.g. "1m").
	SweepInterval string `mapstructure:"AUTHCORE_SWEEP_INTERVAL"`

	// DatabaseURL is the Postgres DSN for kv-backed stores; empty keeps
	// everything in memory.
	DatabaseURL string `mapstructure:"AUTHCORE_DATABASE_URL"`
	// RedisAddr is the Redis address for kv-backed stores (e.g.
	// "localhost:6379").
	RedisAddr string `mapstructure:"AUTHCORE_REDIS_ADDR"`

	// OTLPEndpoint enables metric export when set (e.g.
	// "http://localhost:4317").
	OTLPEndpoint string `mapstructure:"AUTHCORE_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS for https OTLP endpoints (standard
	// OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"AUTHCORE_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment via Viper. Missing .env is ignored (e.g. in CI). Env vars
// override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("AUTHCORE_JWT_SECRET", "")
	v.SetDefault("AUTHCORE_JWT_PRIVATE_KEY", "")
	v.SetDefault("AUTHCORE_JWT_PUBLIC_KEY", "")
	v.SetDefault("AUTHCORE_JWT_ISSUER", "authcore")
	v.SetDefault("AUTHCORE_JWT_AUDIENCE", "authcore-clients")
	v.SetDefault("AUTHCORE_JWT_ACCESS_TTL", "15m")
	v.SetDefault("AUTHCORE_JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("AUTHCORE_MAX_SESSIONS_PER_USER", 5)
	v.SetDefault("AUTHCORE_LOCKOUT_THRESHOLD", 5)
	v.SetDefault("AUTHCORE_LOCKOUT_WINDOW", "15m")
	v.SetDefault("AUTHCORE_ROTATE_REFRESH_TOKENS", true)
	v.SetDefault("AUTHCORE_BCRYPT_COST", 12)
	v.SetDefault("AUTHCORE_HASH_CONCURRENCY", 0)
	v.SetDefault("AUTHCORE_SWEEP_INTERVAL", "1m")
	v.SetDefault("AUTHCORE_DATABASE_URL", "")
	v.SetDefault("AUTHCORE_REDIS_ADDR", "")
	v.SetDefault("AUTHCORE_OTLP_ENDPOINT", "")
	v.SetDefault("AUTHCORE_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: AUTHCORE_BCRYPT_COST must be between 4 and 31")
	}
	if cfg.MaxSessionsPerUser == 0 {
		cfg.MaxSessionsPerUser = 5
	}
	if cfg.MaxSessionsPerUser < 1 {
		return nil, errors.New("config: AUTHCORE_MAX_SESSIONS_PER_USER must be at least 1")
	}
	if cfg.LockoutThreshold == 0 {
		cfg.LockoutThreshold = 5
	}
	if cfg.LockoutThreshold < 1 {
		return nil, errors.New("config: AUTHCORE_LOCKOUT_THRESHOLD must be at least 1")
	}
	if cfg.JWTSecret != "" && cfg.JWTPrivateKey != "" {
		return nil, errors.New("config: set AUTHCORE_JWT_SECRET or AUTHCORE_JWT_PRIVATE_KEY, not both")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or
// invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset
// or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// LockoutDuration parses LockoutWindow as a time.Duration. Returns 15m if
// unset or invalid.
func (c *Config) LockoutDuration() time.Duration {
	d, err := time.ParseDuration(c.LockoutWindow)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// SweepPeriod parses SweepInterval as a time.Duration. Returns 1m if unset
// or invalid.
func (c *Config) SweepPeriod() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// Core builds the Manager configuration. Signing material is required here:
// AUTHCORE_JWT_SECRET for HS256, or the PEM pair for RS256/ES256.
func (c *Config) Core() (authcore.Config, error) {
	var (
		key *token.SigningKey
		err error
	)
	switch {
	case c.JWTSecret != "":
		key, err = token.NewSymmetricKey([]byte(c.JWTSecret))
	case c.JWTPrivateKey != "":
		if c.JWTPublicKey == "" {
			return authcore.Config{}, errors.New("config: AUTHCORE_JWT_PUBLIC_KEY must be set with AUTHCORE_JWT_PRIVATE_KEY")
		}
		key, err = token.NewKeypair(c.JWTPrivateKey, c.JWTPublicKey)
	default:
		return authcore.Config{}, errors.New("config: signing material required: set AUTHCORE_JWT_SECRET or the AUTHCORE_JWT_PRIVATE_KEY/AUTHCORE_JWT_PUBLIC_KEY pair")
	}
	if err != nil {
		return authcore.Config{}, fmt.Errorf("config: signing key: %w", err)
	}

	return authcore.Config{
		Key:                    key,
		Issuer:                 c.JWTIssuer,
		Audience:               c.JWTAudience,
		AccessTTL:              c.AccessTTL(),
		RefreshTTL:             c.RefreshTTL(),
		MaxSessionsPerUser:     c.MaxSessionsPerUser,
		LockoutThreshold:       c.LockoutThreshold,
		LockoutWindow:          c.LockoutDuration(),
		DisableRefreshRotation: !c.RotateRefreshTokens,
		BcryptCost:             c.BcryptCost,
		HashConcurrency:        c.HashConcurrency,
		SweepInterval:          c.SweepPeriod(),
	}, nil
}
