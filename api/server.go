/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the web client
  5. Auth:       Token verification + session (all /api routes but /api/stats)
  6. adminOnly:  Role gate for /api/admin

ROUTE GROUPS:
  /healthz              Liveness
  /api/stats            Public impact numbers
  /api/me/*             Caller session and profile
  /api/pickup-requests  Donor submission and reads
  /api/donors/*         Donor history and stats
  /api/admin/*          Triage, donors, dashboard, demo scenarios

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Authenticator, adminOnly
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, authn *Authenticator, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method "+r.Method+" not allowed", nil)
	})

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.PublicStats)

		r.Group(func(r chi.Router) {
			r.Use(authn.Middleware)

			// Caller routes
			r.Get("/me", h.GetMe)
			r.Put("/me/profile", h.PutProfile)

			// Pickup request routes
			r.Route("/pickup-requests", func(r chi.Router) {
				r.Post("/", h.SubmitPickup)
				r.Get("/{id}", h.GetPickup)
			})

			// Donor routes
			r.Route("/donors/{id}", func(r chi.Router) {
				r.Get("/pickup-requests", h.ListDonorPickups)
				r.Get("/stats", h.GetDonorStats)
			})

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly)

				r.Route("/pickup-requests", func(r chi.Router) {
					r.Get("/", h.ListAllPickups)
					r.Post("/{id}/confirm", h.ConfirmPickup)
					r.Post("/{id}/complete", h.CompletePickup)
					r.Post("/{id}/cancel", h.CancelPickup)
				})

				r.Route("/donors", func(r chi.Router) {
					r.Get("/", h.ListDonors)
					r.Get("/{id}", h.GetDonor)
				})

				r.Get("/stats", h.AdminStats)

				r.Route("/scenarios", func(r chi.Router) {
					r.Get("/", h.ListScenarios)
					r.Post("/load", h.LoadScenario)
				})
			})
		})
	})

	return r
}
