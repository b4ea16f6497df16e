package middleware

import (
	"net/http"

	"github.com/tendant/simple-cards/pkg/auth"
)

// Set bundles the middleware that feature routes are mounted with.
type Set struct {
	Authenticate         func(http.Handler) http.Handler
	OptionalAuthenticate func(http.Handler) http.Handler
	RequireAdmin         func(http.Handler) http.Handler
	RequireBusiness      func(http.Handler) http.Handler
	AuthLimit            func(http.Handler) http.Handler
	AdminLimit           func(http.Handler) http.Handler
}

// NewSet builds the standard Set for guard.
func NewSet(guard *auth.Guard, errs ErrorWriter, limiters RateLimiters) Set {
	return Set{
		Authenticate:         Authenticate(guard, errs),
		OptionalAuthenticate: OptionalAuthenticate(guard, errs),
		RequireAdmin:         Require(errs, auth.RequireAdmin()),
		RequireBusiness:      Require(errs, auth.RequireBusiness()),
		AuthLimit:            limiters.Auth,
		AdminLimit:           limiters.Admin,
	}
}
