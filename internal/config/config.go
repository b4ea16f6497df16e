package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr      string
	ServerPort      int
	Environment     string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	// DBAutoMigrate applies embedded schema migrations at startup.
	DBAutoMigrate bool

	// Redis holds the login attempt store when RedisAddr is set;
	// otherwise attempts live in Postgres.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	Lockout        LockoutConfig
	BizNumber      BizNumberConfig
	PasswordPolicy PasswordPolicyConfig
	Validation     ValidationConfig
	RateLimit      RateLimitConfig
	Security       SecurityHeadersConfig

	// Bootstrap admin, created or promoted at startup when both are set.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// LockoutConfig configures brute-force protection on login.
type LockoutConfig struct {
	MaxAttempts   int
	BlockDuration time.Duration
	// SweepSchedule is a cron expression for removing expired lockout records.
	SweepSchedule string
}

// BizNumberConfig configures business number allocation.
type BizNumberConfig struct {
	Min         int
	Max         int
	MaxRetries  int
	MaxRestarts int
}

// PasswordPolicyConfig defines password complexity requirements.
type PasswordPolicyConfig struct {
	MinLength        int
	MaxLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

// ValidationConfig controls registration email checks.
type ValidationConfig struct {
	StrictEmail          bool
	BlockDisposableEmail bool
}

// RateLimitConfig holds per-IP limits for sensitive endpoints.
type RateLimitConfig struct {
	Enabled                bool
	AuthRequestsPerMinute  int
	AuthWindow             time.Duration
	AdminRequestsPerMinute int
	AdminWindow            time.Duration
}

// SecurityHeadersConfig holds OWASP response header values.
type SecurityHeadersConfig struct {
	Enabled            bool
	CSP                string
	HSTSMaxAge         int
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddr:      getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort:      getEnvInt("SERVER_PORT", 8080),
		Environment:     getEnv("APP_ENV", "development"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 25432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "simple_cards"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		DBAutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "simple-cards"),
		TokenTTL:  getEnvDuration("JWT_EXPIRES", time.Hour),

		Lockout: LockoutConfig{
			MaxAttempts:   getEnvInt("LOCKOUT_MAX_ATTEMPTS", 3),
			BlockDuration: getEnvDuration("LOCKOUT_BLOCK_DURATION", 24*time.Hour),
			SweepSchedule: getEnv("LOCKOUT_SWEEP_SCHEDULE", "@every 1h"),
		},
		BizNumber: BizNumberConfig{
			Min:         getEnvInt("BIZ_NUMBER_MIN", 1000000),
			Max:         getEnvInt("BIZ_NUMBER_MAX", 9999999),
			MaxRetries:  getEnvInt("BIZ_NUMBER_MAX_RETRIES", 5),
			MaxRestarts: getEnvInt("BIZ_NUMBER_MAX_RESTARTS", 3),
		},
		PasswordPolicy: PasswordPolicyConfig{
			MinLength:        getEnvInt("PASSWORD_MIN_LENGTH", 8),
			MaxLength:        getEnvInt("PASSWORD_MAX_LENGTH", 256),
			RequireUppercase: getEnvBool("PASSWORD_REQUIRE_UPPERCASE", false),
			RequireLowercase: getEnvBool("PASSWORD_REQUIRE_LOWERCASE", false),
			RequireNumber:    getEnvBool("PASSWORD_REQUIRE_NUMBER", false),
			RequireSpecial:   getEnvBool("PASSWORD_REQUIRE_SPECIAL", false),
		},
		Validation: ValidationConfig{
			StrictEmail:          getEnvBool("EMAIL_STRICT_VALIDATION", true),
			BlockDisposableEmail: getEnvBool("EMAIL_BLOCK_DISPOSABLE", false),
		},
		RateLimit: RateLimitConfig{
			Enabled:                getEnvBool("RATE_LIMIT_ENABLED", true),
			AuthRequestsPerMinute:  getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 10),
			AuthWindow:             getEnvDuration("RATE_LIMIT_AUTH_WINDOW", time.Minute),
			AdminRequestsPerMinute: getEnvInt("RATE_LIMIT_ADMIN_REQUESTS", 60),
			AdminWindow:            getEnvDuration("RATE_LIMIT_ADMIN_WINDOW", time.Minute),
		},
		Security: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			CSP:                getEnv("SECURITY_CSP", "default-src 'none'; frame-ancestors 'none'"),
			HSTSMaxAge:         getEnvInt("SECURITY_HSTS_MAX_AGE", 31536000),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "no-referrer"),
			PermissionsPolicy:  getEnv("SECURITY_PERMISSIONS_POLICY", "geolocation=(), camera=(), microphone=()"),
		},

		BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", ""),
		BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES must be positive"))
	}
	if c.Lockout.MaxAttempts < 1 {
		errs = append(errs, errors.New("LOCKOUT_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Lockout.BlockDuration <= 0 {
		errs = append(errs, errors.New("LOCKOUT_BLOCK_DURATION must be positive"))
	}
	if c.BizNumber.Min < 1 || c.BizNumber.Min > c.BizNumber.Max {
		errs = append(errs, fmt.Errorf("business number range [%d, %d] is invalid", c.BizNumber.Min, c.BizNumber.Max))
	}
	if c.BizNumber.MaxRetries < 1 || c.BizNumber.MaxRestarts < 1 {
		errs = append(errs, errors.New("BIZ_NUMBER_MAX_RETRIES and BIZ_NUMBER_MAX_RESTARTS must be at least 1"))
	}
	if (c.BootstrapAdminEmail == "") != (c.BootstrapAdminPassword == "") {
		errs = append(errs, errors.New("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether internal error details must be hidden.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// HasRedis returns true if a Redis login attempt store is configured.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

// HasBootstrapAdmin returns true if a bootstrap admin is configured.
func (c *Config) HasBootstrapAdmin() bool {
	return c.BootstrapAdminEmail != "" && c.BootstrapAdminPassword != ""
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.ServerAddr, c.ServerPort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
