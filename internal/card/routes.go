package card

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers card endpoints with the Chi router
func RegisterRoutes(r chi.Router, handler *Handler) {
	r.Route("/members/{id}/cards", func(r chi.Router) {
		// POST /api/v1/members/:id/cards - Issue (or reissue) a card
		r.Post("/", handler.Issue)

		// GET /api/v1/members/:id/cards - List issued cards
		r.Get("/", handler.List)
	})

	// GET /api/v1/cards/validate - Checksum validation
	r.Get("/cards/validate", handler.Validate)
}
