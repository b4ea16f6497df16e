// Package directory assembles the business card directory service from a
// database handle and settings.
//
// Setup:
//
//  1. Apply the schema (repository.Migrate, or DB_AUTO_MIGRATE=true)
//  2. Create a Directory and serve its Handler
//
// Basic usage:
//
//	db, _ := repository.NewDB(ctx, repository.Config{...})
//
//	dir, err := directory.New(ctx, directory.Config{
//	    DB:       db,
//	    Settings: cfg,
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if migrations haven't been run
//	}
//	dir.Start()
//	defer dir.Close(ctx)
//
//	http.ListenAndServe(":8080", dir.Handler())
//
// With Redis-backed lockout records:
//
//	dir, err := directory.New(ctx, directory.Config{
//	    DB:       db,
//	    Redis:    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    Settings: cfg,
//	})
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-redis/redis/v8"

	"github.com/tendant/simple-cards/internal/config"
	httpserver "github.com/tendant/simple-cards/internal/http"
	"github.com/tendant/simple-cards/internal/http/middleware"
	"github.com/tendant/simple-cards/internal/httputil"
	"github.com/tendant/simple-cards/internal/metrics"
	"github.com/tendant/simple-cards/internal/sweeper"
	"github.com/tendant/simple-cards/pkg/auth"
	"github.com/tendant/simple-cards/pkg/cards"
	"github.com/tendant/simple-cards/pkg/repository"
	"github.com/tendant/simple-cards/pkg/users"
)

// Config holds what a Directory is built from.
type Config struct {
	// DB is the database connection (required).
	DB *sql.DB

	// Redis stores login attempt records when set (optional).
	// Records live in Postgres otherwise.
	Redis redis.UniversalClient

	// Settings is the validated application configuration (required).
	Settings *config.Config

	// Logger is the structured logger (default: JSON to stdout).
	Logger *slog.Logger
}

// Directory is an assembled service instance.
type Directory struct {
	settings *config.Config
	logger   *slog.Logger

	usersRepo *repository.UsersRepository
	tracker   *auth.LoginAttemptTracker
	guard     *auth.Guard
	errs      *httputil.ErrorResponder
	metrics   *metrics.Metrics
	sweeper   *sweeper.Sweeper
	handler   http.Handler
}

// New creates a Directory. Returns an error if required tables don't exist.
func New(ctx context.Context, cfg Config) (*Directory, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	if err := validateSchema(ctx, cfg.DB); err != nil {
		return nil, err
	}

	s := cfg.Settings

	usersRepo := repository.NewUsersRepository(cfg.DB)
	cardsRepo := repository.NewCardsRepository(cfg.DB)

	var attemptStore auth.AttemptStore = repository.NewLoginAttemptsRepository(cfg.DB)
	if cfg.Redis != nil {
		attemptStore = repository.NewRedisLoginAttemptsStore(cfg.Redis)
	}

	m := metrics.New()

	tracker := auth.NewLoginAttemptTracker(attemptStore, auth.LockoutPolicy{
		MaxAttempts:   s.Lockout.MaxAttempts,
		BlockDuration: s.Lockout.BlockDuration,
	})
	tokens, err := auth.NewTokenProvider(auth.TokenConfig{
		Secret: []byte(s.JWTSecret),
		Issuer: s.JWTIssuer,
		TTL:    s.TokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}

	sw, err := sweeper.New(tracker, s.Lockout.SweepSchedule, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}

	allocator := cards.NewAllocator(cardsRepo, cards.AllocatorConfig{
		Min:         s.BizNumber.Min,
		Max:         s.BizNumber.Max,
		MaxRetries:  s.BizNumber.MaxRetries,
		MaxRestarts: s.BizNumber.MaxRestarts,
	}, m)

	guard := auth.NewGuard(tokens, usersRepo)
	errs := httputil.NewErrorResponder(cfg.Logger, !s.IsProduction())

	d := &Directory{
		settings:  s,
		logger:    cfg.Logger,
		usersRepo: usersRepo,
		tracker:   tracker,
		guard:     guard,
		errs:      errs,
		metrics:   m,
		sweeper:   sw,
	}
	d.handler = httpserver.NewRouter(httpserver.RouterConfig{
		Logger:  cfg.Logger,
		Metrics: m,
		Errors:  errs,
		Guard:   guard,
		Tokens:  tokens,
		PasswordService: auth.NewPasswordService(
			usersRepo,
			auth.NewPasswordPolicy(s.PasswordPolicy),
			s.Validation.StrictEmail,
			s.Validation.BlockDisposableEmail,
		),
		Verifier:        auth.NewCredentialVerifier(usersRepo, tracker, tokens, m),
		Users:           users.NewService(usersRepo, tracker),
		Cards:           cards.NewService(cardsRepo, allocator),
		DB:              cfg.DB,
		RateLimitConfig: s.RateLimit,
		SecurityHeaders: s.Security,
		MaxBodyBytes:    s.MaxBodyBytes,
	})
	return d, nil
}

// Handler returns the HTTP handler serving /users, /cards, /health and /metrics.
func (d *Directory) Handler() http.Handler {
	return d.handler
}

// AuthMiddleware returns middleware that requires a valid token from a
// non-blocked account. Use it to protect routes mounted next to the directory:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(dir.AuthMiddleware())
//	    r.Get("/protected", handler)
//	})
func (d *Directory) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Authenticate(d.guard, d.errs)
}

// Principal extracts the authenticated caller from a request.
// Use after AuthMiddleware.
func Principal(r *http.Request) (auth.Principal, bool) {
	return auth.PrincipalFromContext(r.Context())
}

// Metrics returns the collectors the directory reports to.
func (d *Directory) Metrics() *metrics.Metrics {
	return d.metrics
}

// EnsureBootstrapAdmin creates or promotes the configured bootstrap admin.
// It does nothing when none is configured.
func (d *Directory) EnsureBootstrapAdmin(ctx context.Context) error {
	if !d.settings.HasBootstrapAdmin() {
		return nil
	}
	created, err := users.BootstrapAdmin(ctx, d.usersRepo, d.settings.BootstrapAdminEmail, d.settings.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	d.logger.Info("bootstrap admin ensured",
		"email", auth.NormalizeEmail(d.settings.BootstrapAdminEmail),
		"created", created,
	)
	return nil
}

// Start schedules the expired lockout sweep.
func (d *Directory) Start() {
	d.sweeper.Start()
}

// Close stops the sweep and waits for a running pass until ctx is done.
func (d *Directory) Close(ctx context.Context) {
	d.sweeper.Stop(ctx)
}

func validateConfig(cfg *Config) error {
	if cfg.DB == nil {
		return errors.New("directory: DB is required")
	}
	if cfg.Settings == nil {
		return errors.New("directory: Settings is required")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
}

// validateSchema checks that required database tables exist.
func validateSchema(ctx context.Context, db *sql.DB) error {
	requiredTables := []string{"users", "login_attempts", "cards", "card_likes"}

	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1
	`

	for _, table := range requiredTables {
		var name string
		err := db.QueryRowContext(ctx, query, table).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("directory: missing table '%s' - run migrations first", table)
		}
		if err != nil {
			return fmt.Errorf("directory: failed to check schema: %w", err)
		}
	}

	return nil
}
