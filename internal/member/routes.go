package member

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers member registry endpoints with the Chi router
func RegisterRoutes(r chi.Router, handler *Handler) {
	r.Route("/members", func(r chi.Router) {
		// POST /api/v1/members - Create member
		r.Post("/", handler.Create)

		r.Route("/{id}", func(r chi.Router) {
			// GET /api/v1/members/:id - Fetch member
			r.Get("/", handler.Get)

			// PATCH /api/v1/members/:id/status - Set status and active flag
			r.Patch("/status", handler.UpdateStatus)

			// POST /api/v1/members/:id/suspensions - Record a suspension
			r.Post("/suspensions", handler.Suspend)

			// GET /api/v1/members/:id/suspensions - List suspensions
			r.Get("/suspensions", handler.ListSuspensions)
		})
	})
}
