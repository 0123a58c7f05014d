package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/calmhive/taskmirror/internal/api"
	apiMiddleware "github.com/calmhive/taskmirror/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	syncHandler := api.NewSyncHandler(app.orchestrator, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.RequireUserID)

			r.Post("/sync/enable", syncHandler.Enable)
			r.Post("/sync/disable", syncHandler.Disable)
			r.Get("/sync/status", syncHandler.Status)
			r.Post("/sync/resync", syncHandler.Resync)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
