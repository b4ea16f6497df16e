package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tendant/simple-cards/internal/config"
	"github.com/tendant/simple-cards/internal/http/features/cards"
	"github.com/tendant/simple-cards/internal/http/features/users"
	"github.com/tendant/simple-cards/internal/http/middleware"
	"github.com/tendant/simple-cards/internal/httputil"
	"github.com/tendant/simple-cards/internal/metrics"
	"github.com/tendant/simple-cards/pkg/auth"
	cardsvc "github.com/tendant/simple-cards/pkg/cards"
	usersvc "github.com/tendant/simple-cards/pkg/users"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	Metrics         *metrics.Metrics
	Errors          *httputil.ErrorResponder
	Guard           *auth.Guard
	Tokens          *auth.TokenProvider
	PasswordService *auth.PasswordService
	Verifier        *auth.CredentialVerifier
	Users           *usersvc.Service
	Cards           *cardsvc.Service
	DB              Pinger
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	MaxBodyBytes    int64
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(chimw.Recoverer)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Instrument)
	}
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.DB.PingContext(ctx); err != nil {
				cfg.Logger.Error("health check failed", "error", err)
				httputil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	mw := middleware.NewSet(cfg.Guard, cfg.Errors, middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger))

	users.NewHandler(
		cfg.Logger,
		cfg.PasswordService,
		cfg.Verifier,
		cfg.Tokens,
		cfg.Users,
		cfg.Errors,
	).RegisterRoutes(r, mw)

	cards.NewHandler(cfg.Logger, cfg.Cards, cfg.Errors).RegisterRoutes(r, mw)

	return r
}
