// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTAccessSecret is the HMAC secret for access tokens, inline or a path to a file.
	JWTAccessSecret string `mapstructure:"JWT_ACCESS_SECRET"`
	// JWTRefreshSecret is the HMAC secret for refresh tokens, inline or a path to a file.
	// Must differ from JWTAccessSecret so the two token kinds never verify interchangeably.
	JWTRefreshSecret string `mapstructure:"JWT_REFRESH_SECRET"`
	// JWTIssuer is the iss claim (e.g. "cartshare-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "cartshare-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "720h" = 30d).
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// MaxSessions caps concurrent sessions per identity; oldest is evicted at login.
	MaxSessions int `mapstructure:"MAX_SESSIONS"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// RequireVerifiedEmail gates login on the email-verified flag when true.
	RequireVerifiedEmail bool `mapstructure:"REQUIRE_VERIFIED_EMAIL"`
	// CookieDomain is the Domain attribute for auth cookies; empty for host-only.
	CookieDomain string `mapstructure:"COOKIE_DOMAIN"`
	// CSRFDisabled turns off the CSRF guard. Test environments only; refused in production.
	CSRFDisabled bool `mapstructure:"CSRF_DISABLED"`
	// CORSAllowedOrigins is a comma-separated list of allowed browser origins.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// OTLPEndpoint is the OTLP trace collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// AuthRatePerMinute limits login/register/refresh requests per client IP per minute.
	AuthRatePerMinute int `mapstructure:"AUTH_RATE_PER_MINUTE"`
	// Env is the application environment (e.g. "development", "production").
	// Production switches auth cookies to Secure and SameSite=None.
	Env string `mapstructure:"APP_ENV"`
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
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ACCESS_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ISSUER", "cartshare-auth")
	v.SetDefault("JWT_AUDIENCE", "cartshare-api")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "720h") // 30d
	v.SetDefault("MAX_SESSIONS", 5)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("REQUIRE_VERIFIED_EMAIL", true)
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("CSRF_DISABLED", false)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("AUTH_RATE_PER_MINUTE", 60)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.CSRFDisabled && cfg.Env == "production" {
		return nil, errors.New("config: CSRF_DISABLED must not be true when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if cfg.MaxSessions < 1 {
		return nil, errors.New("config: MAX_SESSIONS must be at least 1")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// Production reports whether the app runs with production cookie policy
// (Secure cookies, SameSite=None).
func (c *Config) Production() bool {
	return c != nil && c.Env == "production"
}

// CORSOrigins returns allowed browser origins from the comma-separated config.
func (c *Config) CORSOrigins() []string {
	if c == nil || c.CORSAllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
