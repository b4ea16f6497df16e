package cards

import (
	"github.com/go-chi/chi/v5"

	"github.com/tendant/simple-cards/internal/http/middleware"
)

// RegisterRoutes registers card routes under /cards.
func (h *Handler) RegisterRoutes(r chi.Router, mw middleware.Set) {
	r.Route("/cards", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mw.OptionalAuthenticate)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate)
			r.Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Patch("/{id}", h.Patch)
			r.Delete("/{id}", h.Delete)
			r.Patch("/{id}/like", h.ToggleLike)
			r.Patch("/{id}/bizNumber", h.ChangeBizNumber)

			r.Group(func(r chi.Router) {
				r.Use(mw.RequireBusiness)
				r.Get("/sandbox", h.Sandbox)
				r.Get("/my-cards", h.Sandbox)
				r.Get("/my", h.LegacyMyCards)
			})

			r.Group(func(r chi.Router) {
				r.Use(mw.AdminLimit)
				r.Use(mw.RequireAdmin)
				r.Patch("/{id}/block", h.Block)
				r.Patch("/{id}/unblock", h.Unblock)
			})
		})
	})
}
