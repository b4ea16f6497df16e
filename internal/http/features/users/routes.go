package users

import (
	"github.com/go-chi/chi/v5"

	"github.com/tendant/simple-cards/internal/http/middleware"
)

// RegisterRoutes registers account routes under /users.
func (h *Handler) RegisterRoutes(r chi.Router, mw middleware.Set) {
	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mw.AuthLimit)
			r.Post("/", h.Register)
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate)
			r.Get("/me", h.GetMe)
			r.Get("/{id}", h.Get)
			r.Delete("/{id}", h.Delete)

			r.Group(func(r chi.Router) {
				r.Use(mw.AdminLimit)
				r.Use(mw.RequireAdmin)
				r.Get("/", h.List)
				r.Patch("/{id}/block", h.Block)
				r.Patch("/{id}/unblock", h.Unblock)
				r.Post("/login-attempts/reset", h.ResetLoginAttempts)
			})
		})
	})
}
