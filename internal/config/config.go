// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the admin HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production"). Production turns on Secure cookies.
	Env string `mapstructure:"APP_ENV"`
	// LogJSON selects the JSON log handler instead of text.
	LogJSON bool `mapstructure:"LOG_JSON"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA, ECDSA or Ed25519) or path to file. Required.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; derived from the private key when empty.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim of issued bearer tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim of issued bearer tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the bearer token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// TokenVerifyTimeout bounds one bearer verification (e.g. "2s").
	TokenVerifyTimeout string `mapstructure:"TOKEN_VERIFY_TIMEOUT"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// SessionTTL is the lifetime of a cookie session (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// SessionMaxPerUser caps concurrent live sessions per user; the least recently active is evicted.
	SessionMaxPerUser int `mapstructure:"SESSION_MAX_PER_USER"`
	// SessionSweepInterval is how often expired sessions are purged (e.g. "5m").
	SessionSweepInterval string `mapstructure:"SESSION_SWEEP_INTERVAL"`

	// AdminUsersFile is the YAML user directory. Required.
	AdminUsersFile string `mapstructure:"ADMIN_USERS_FILE"`
	// LoginRatePerMinute limits login requests per client IP; 0 disables the limit.
	LoginRatePerMinute int `mapstructure:"LOGIN_RATE_PER_MINUTE"`
	// CORSAllowedOrigins is a comma-separated list of origins allowed to call the admin API.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// TrustedProxiesList is a comma-separated list of CIDRs or IPs of reverse proxies whose
	// X-Forwarded-For and X-Real-IP headers are believed. Empty trusts no forwarding header.
	TrustedProxiesList string `mapstructure:"TRUSTED_PROXIES"`

	// OTLPEndpoint is the OpenTelemetry collector (e.g. http://localhost:4317). Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "admin-auth")
	v.SetDefault("JWT_AUDIENCE", "admin-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("TOKEN_VERIFY_TIMEOUT", "2s")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("SESSION_MAX_PER_USER", 3)
	v.SetDefault("SESSION_SWEEP_INTERVAL", "5m")
	v.SetDefault("ADMIN_USERS_FILE", "")
	v.SetDefault("LOGIN_RATE_PER_MINUTE", 5)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "admin-server")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if strings.TrimSpace(cfg.JWTPrivateKey) == "" {
		return nil, errors.New("config: JWT_PRIVATE_KEY must be set")
	}
	if strings.TrimSpace(cfg.AdminUsersFile) == "" {
		return nil, errors.New("config: ADMIN_USERS_FILE must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.SessionMaxPerUser < 1 {
		return nil, errors.New("config: SESSION_MAX_PER_USER must be at least 1")
	}
	if cfg.LoginRatePerMinute < 0 {
		return nil, errors.New("config: LOGIN_RATE_PER_MINUTE must not be negative")
	}
	for _, entry := range splitList(cfg.TrustedProxiesList) {
		if _, err := parsePrefix(entry); err != nil {
			return nil, fmt.Errorf("config: TRUSTED_PROXIES: %w", err)
		}
	}

	return &cfg, nil
}

// Production reports whether APP_ENV is production.
func (c *Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 15*time.Minute)
}

// SessionLifetime parses SessionTTL. Returns 24h if unset or invalid.
func (c *Config) SessionLifetime() time.Duration {
	return parseDuration(c.SessionTTL, 24*time.Hour)
}

// SweepInterval parses SessionSweepInterval. Returns 5m if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	return parseDuration(c.SessionSweepInterval, 5*time.Minute)
}

// VerifyTimeout parses TokenVerifyTimeout. Returns 2s if unset or invalid.
func (c *Config) VerifyTimeout() time.Duration {
	return parseDuration(c.TokenVerifyTimeout, 2*time.Second)
}

// CORSOrigins returns the allowed origins from the comma-separated config.
func (c *Config) CORSOrigins() []string {
	if c == nil {
		return nil
	}
	return splitList(c.CORSAllowedOrigins)
}

// TrustedProxies returns the trusted proxy networks. A bare IP becomes a single-address prefix.
// Entries were validated by Load; anything unparsable is skipped.
func (c *Config) TrustedProxies() []netip.Prefix {
	if c == nil {
		return nil
	}
	var out []netip.Prefix
	for _, entry := range splitList(c.TrustedProxiesList) {
		if p, err := parsePrefix(entry); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return netip.Prefix{}, err
		}
		return p.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
