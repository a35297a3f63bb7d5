package verification

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers verification endpoints with the Chi router.
// The scan endpoint sits behind scanner API key auth and its own rate limit.
func RegisterRoutes(r chi.Router, handler *Handler, scannerAuth, scanRateLimit func(http.Handler) http.Handler) {
	r.Route("/verifications", func(r chi.Router) {
		// POST /api/v1/verifications/tokens - Issue a signed QR token
		r.Post("/tokens", handler.IssueToken)

		// POST /api/v1/verifications/scan - Verify a scanned token
		r.Group(func(r chi.Router) {
			if scannerAuth != nil {
				r.Use(scannerAuth)
			}
			if scanRateLimit != nil {
				r.Use(scanRateLimit)
			}
			r.Post("/scan", handler.Scan)
		})
	})

	// GET /api/v1/members/:id/scans - Scan audit trail
	r.Get("/members/{id}/scans", handler.ScanHistory)
}
