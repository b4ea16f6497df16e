package middleware

import (
	"errors"
	"net/http"

	"github.com/tendant/simple-cards/pkg/auth"
	"github.com/tendant/simple-cards/pkg/domain"
)

// ErrorWriter writes the HTTP response for a failed request.
type ErrorWriter interface {
	Respond(w http.ResponseWriter, r *http.Request, err error)
}

// Authenticate validates the session token, rejects identities blocked since the
// token was issued, and stores the principal in the request context.
func Authenticate(guard *auth.Guard, errs ErrorWriter) func(http.Handler) http.Handler {
	notBlocked := guard.RequireNotBlocked()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := guard.Authenticate(r)
			if err == nil {
				err = notBlocked(r.Context(), p)
			}
			if err != nil {
				errs.Respond(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalAuthenticate behaves like Authenticate when a token is present and
// passes anonymous requests through unchanged.
func OptionalAuthenticate(guard *auth.Guard, errs ErrorWriter) func(http.Handler) http.Handler {
	notBlocked := guard.RequireNotBlocked()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := guard.Authenticate(r)
			if errors.Is(err, domain.ErrAuthenticationRequired) {
				next.ServeHTTP(w, r)
				return
			}
			if err == nil {
				err = notBlocked(r.Context(), p)
			}
			if err != nil {
				errs.Respond(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// Require runs checks against the authenticated principal. It must be mounted
// after Authenticate.
func Require(errs ErrorWriter, checks ...auth.Check) func(http.Handler) http.Handler {
	check := auth.All(checks...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				errs.Respond(w, r, domain.ErrAuthenticationRequired)
				return
			}
			if err := check(r.Context(), p); err != nil {
				errs.Respond(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
