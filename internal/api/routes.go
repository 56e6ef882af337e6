package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/aspect-export/internal/config"
)

// SetupRoutes configures the admin API routes.
func SetupRoutes(h *Handlers, cfg config.ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/schemas", func(r chi.Router) {
			r.Get("/", h.ListSchemas)
			r.Post("/", h.CreateSchema)
			r.Get("/{id}", h.GetSchema)
			r.Put("/{id}", h.UpdateSchema)
			r.Delete("/{id}", h.DeleteSchema)
			r.Post("/{id}/publish", h.PublishSchema)
			r.Post("/{id}/unpublish", h.UnpublishSchema)
			r.Get("/{id}/fields", h.ExportSchemaFields)
			r.Put("/{id}/fields", h.ImportSchemaFields)
			r.Post("/{id}/import-layout", h.ImportSchemaLayout)
		})

		r.Route("/batches", func(r chi.Router) {
			r.Get("/", h.ListBatches)
			r.Get("/pending-count", h.PendingBatchCount)
			r.Post("/process", h.ProcessBatchesNow)
			r.Get("/{id}", h.GetBatch)
			r.Post("/{id}/reprocess", h.ReprocessBatch)
			r.Delete("/{id}", h.DeleteBatch)
		})

		r.Route("/dispatch-logs", func(r chi.Router) {
			r.Get("/", h.ListDispatchLogs)
			r.Get("/export.csv", h.ExportDispatchLogsCSV)
			r.Post("/clear", h.ClearDispatchLogs)
			r.Get("/{id}", h.GetDispatchLog)
			r.Delete("/{id}", h.DeleteDispatchLog)
		})
	})

	return r
}
