package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ridgelinehome/ridgeline-core/internal/panel"
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

	// Wall panel UI (embedded build, optionally overridden by a dev dir)
	r.Handle("/panel/*", http.StripPrefix("/panel", panel.Handler(s.panelDir)))
	r.Handle("/panel", http.RedirectHandler("/panel/", http.StatusMovedPermanently))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Panel ticket issuance + WebSocket upgrade (ticket validated in handler)
		r.Post("/auth/panel-ticket", s.handlePanelTicket)
		r.Get("/ws", s.handleWebSocket)

		// Device endpoints
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)
			r.Get("/stats", s.handleDeviceStats)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Patch("/", s.handleUpdateDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Get("/values", s.handleGetDeviceValues)
				r.Put("/values", s.handleSetDeviceValues)
				r.Post("/command", s.handleDeviceCommand)
			})
		})

		// Dashboard endpoints
		r.Route("/dashboards", func(r chi.Router) {
			r.Get("/", s.handleListDashboards)
			r.Post("/", s.handleCreateDashboard)
			r.Get("/default", s.handleGetDefaultDashboard)
			r.Get("/templates", s.handleListTemplates)
			r.Post("/from-template", s.handleCreateFromTemplate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDashboard)
				r.Patch("/", s.handleUpdateDashboard)
				r.Delete("/", s.handleDeleteDashboard)
				r.Put("/default", s.handleSetDefaultDashboard)

				// Layer binding editor
				r.Route("/layers/{layerID}/bindings", func(r chi.Router) {
					r.Get("/", s.handleListBindings)
					r.Post("/", s.handleCreateBinding)

					r.Route("/{bindingID}", func(r chi.Router) {
						r.Patch("/", s.handleUpdateBinding)
						r.Delete("/", s.handleDeleteBinding)
						r.Put("/position", s.handleSetBindingPosition)
					})
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
