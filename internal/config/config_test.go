package config

import (
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"SERVER_ADDR", "SERVER_PORT", "APP_ENV", "DB_HOST", "DB_PORT", "DB_SSLMODE", "REDIS_ADDR",
		"JWT_EXPIRES", "LOCKOUT_MAX_ATTEMPTS", "LOCKOUT_BLOCK_DURATION", "BIZ_NUMBER_MIN", "BIZ_NUMBER_MAX",
		"BOOTSTRAP_ADMIN_EMAIL", "BOOTSTRAP_ADMIN_PASSWORD", "RATE_LIMIT_ENABLED",
	} {
		t.Setenv(v, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q, want %q", cfg.Addr(), "0.0.0.0:8080")
	}
	if cfg.DBPort != 25432 {
		t.Errorf("DBPort = %d, want %d", cfg.DBPort, 25432)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want %v", cfg.TokenTTL, time.Hour)
	}
	if cfg.Lockout.MaxAttempts != 3 || cfg.Lockout.BlockDuration != 24*time.Hour {
		t.Errorf("Lockout = %+v, want 3 attempts / 24h", cfg.Lockout)
	}
	if cfg.BizNumber != (BizNumberConfig{Min: 1000000, Max: 9999999, MaxRetries: 5, MaxRestarts: 3}) {
		t.Errorf("BizNumber = %+v", cfg.BizNumber)
	}
	if cfg.PasswordPolicy.MinLength != 8 {
		t.Errorf("PasswordPolicy.MinLength = %d, want 8", cfg.PasswordPolicy.MinLength)
	}
	if !cfg.RateLimit.Enabled {
		t.Error("RateLimit should be enabled by default")
	}
	if cfg.HasRedis() || cfg.HasBootstrapAdmin() || cfg.IsProduction() {
		t.Error("optional features should be off by default")
	}
}

func TestLoad_RequiredJWTSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Errorf("Load error = %v, want JWT_SECRET error", err)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "custom-secret")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("JWT_EXPIRES", "30m")
	t.Setenv("LOCKOUT_MAX_ATTEMPTS", "5")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("BOOTSTRAP_ADMIN_EMAIL", "root@example.com")
	t.Setenv("BOOTSTRAP_ADMIN_PASSWORD", "change-me-now")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 9090)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("TokenTTL = %v, want %v", cfg.TokenTTL, 30*time.Minute)
	}
	if cfg.Lockout.MaxAttempts != 5 {
		t.Errorf("Lockout.MaxAttempts = %d, want 5", cfg.Lockout.MaxAttempts)
	}
	if cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled should be false")
	}
	if !cfg.IsProduction() || !cfg.HasRedis() || !cfg.HasBootstrapAdmin() {
		t.Error("expected production with redis and bootstrap admin")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			JWTSecret: "s",
			TokenTTL:  time.Hour,
			Lockout:   LockoutConfig{MaxAttempts: 3, BlockDuration: time.Hour},
			BizNumber: BizNumberConfig{Min: 1000000, Max: 9999999, MaxRetries: 5, MaxRestarts: 3},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero attempts", func(c *Config) { c.Lockout.MaxAttempts = 0 }, "LOCKOUT_MAX_ATTEMPTS"},
		{"zero block", func(c *Config) { c.Lockout.BlockDuration = 0 }, "LOCKOUT_BLOCK_DURATION"},
		{"narrow range", func(c *Config) { c.BizNumber.Min = 9999990 }, ""},
		{"range min above max", func(c *Config) { c.BizNumber.Min, c.BizNumber.Max = 9, 1 }, "business number range"},
		{"zero retries", func(c *Config) { c.BizNumber.MaxRetries = 0 }, "BIZ_NUMBER_MAX_RETRIES"},
		{"half bootstrap", func(c *Config) { c.BootstrapAdminEmail = "a@b.co" }, "must be set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvInt_InvalidValue(t *testing.T) {
	t.Setenv("TEST_INT", "not-a-number")

	if got := getEnvInt("TEST_INT", 42); got != 42 {
		t.Errorf("getEnvInt should return default for invalid value, got %d", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "yes")
	if got := getEnvBool("TEST_BOOL", true); !got {
		t.Error("getEnvBool should return default for unparsable value")
	}

	t.Setenv("TEST_BOOL", "0")
	if got := getEnvBool("TEST_BOOL", true); got {
		t.Error("getEnvBool(\"0\") should be false")
	}
}

func TestGetEnvDuration_InvalidValue(t *testing.T) {
	t.Setenv("TEST_DURATION", "invalid")

	if got := getEnvDuration("TEST_DURATION", 5*time.Minute); got != 5*time.Minute {
		t.Errorf("getEnvDuration should return default for invalid value, got %v", got)
	}
}
