package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// System metrics (no auth required for basic monitoring)
		r.Get("/metrics", s.handleMetrics)

		// WebSocket. Browsers cannot set an Authorization header on the
		// upgrade request, so auth is a single-use ticket minted by the
		// protected ws-ticket endpoint and validated in the handler.
		r.Get("/ws", s.handleWebSocket)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication - user must be logged in
			// to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Scan session endpoints
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", s.handleListSessions)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetSession)
					r.Post("/rescan", s.handleSessionRescan)
					r.Post("/logout", s.handleSessionLogout)
				})
			})

			// Identity endpoints (the single verified-identity cell)
			r.Route("/identity", func(r chi.Router) {
				r.Get("/", s.handleGetIdentity)
				r.Delete("/", s.handleClearIdentity)
			})

			// Terminal endpoints
			r.Route("/terminals", func(r chi.Router) {
				r.Get("/", s.handleListTerminals)
				r.Get("/{id}", s.handleGetTerminal)
			})

			// Roster endpoints (counts only, never entries)
			r.Get("/roster/stats", s.handleRosterStats)

			// Audit endpoints
			r.Route("/audit", func(r chi.Router) {
				r.Get("/", s.handleListAudit)
				r.Get("/stats", s.handleAuditStats)
			})
		})
	})

	return r
}
