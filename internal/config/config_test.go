package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "cartshare-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "cartshare-auth")
	}
	if cfg.JWTAudience != "cartshare-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "cartshare-api")
	}
	if cfg.JWTAccessTTL != "15m" {
		t.Errorf("JWTAccessTTL = %q, want %q", cfg.JWTAccessTTL, "15m")
	}
	if cfg.JWTRefreshTTL != "720h" {
		t.Errorf("JWTRefreshTTL = %q, want %q", cfg.JWTRefreshTTL, "720h")
	}
	if cfg.MaxSessions != 5 {
		t.Errorf("MaxSessions = %d, want 5", cfg.MaxSessions)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if !cfg.RequireVerifiedEmail {
		t.Error("RequireVerifiedEmail should default to true")
	}
	if cfg.CSRFDisabled {
		t.Error("CSRFDisabled should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("MAX_SESSIONS", "3")
	os.Setenv("BCRYPT_COST", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.MaxSessions != 3 {
		t.Errorf("MaxSessions = %d, want 3", cfg.MaxSessions)
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
}

func TestLoad_RejectsBadBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("BCRYPT_COST", "50")

	if _, err := Load(); err == nil {
		t.Error("Load should reject BCRYPT_COST above 31")
	}
}

func TestLoad_RejectsZeroMaxSessions(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("MAX_SESSIONS", "0")

	if _, err := Load(); err == nil {
		t.Error("Load should reject MAX_SESSIONS below 1")
	}
}

func TestLoad_RejectsCSRFDisabledInProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("APP_ENV", "production")
	os.Setenv("CSRF_DISABLED", "true")

	if _, err := Load(); err == nil {
		t.Error("Load should reject CSRF_DISABLED in production")
	}
}

func TestConfig_TTLHelpers(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "5m", JWTRefreshTTL: "48h"}
	if got := cfg.AccessTTL(); got != 5*time.Minute {
		t.Errorf("AccessTTL = %v, want 5m", got)
	}
	if got := cfg.RefreshTTL(); got != 48*time.Hour {
		t.Errorf("RefreshTTL = %v, want 48h", got)
	}

	bad := &Config{JWTAccessTTL: "not-a-duration", JWTRefreshTTL: "-1h"}
	if got := bad.AccessTTL(); got != 15*time.Minute {
		t.Errorf("AccessTTL fallback = %v, want 15m", got)
	}
	if got := bad.RefreshTTL(); got != 720*time.Hour {
		t.Errorf("RefreshTTL fallback = %v, want 720h", got)
	}
}

func TestConfig_CORSOrigins(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: "https://app.cartshare.dev, http://localhost:5173 ,"}
	got := cfg.CORSOrigins()
	want := []string{"https://app.cartshare.dev", "http://localhost:5173"}
	if len(got) != len(want) {
		t.Fatalf("CORSOrigins = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
