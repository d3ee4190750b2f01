package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maxpert/airlock/telemetry"
	"github.com/rs/zerolog/log"
)

// NewRouter builds the admin API router. Paths are relative to /admin.
func NewRouter(handlers *AdminHandlers) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware)

	r.Get("/stats", handlers.handleStats)
	r.Get("/connectors", handlers.handleListKinds)
	r.Post("/statements", handlers.handleExecute)

	r.Route("/databases", func(r chi.Router) {
		r.Get("/", handlers.handleListDatabases)
		r.Get("/{name}", handlers.handleGetDatabase)
		r.Put("/{name}/access_mode", handlers.handleSetDatabaseAccessMode)
	})

	// Table names are dotted: db.schema.table, db.table or table
	r.Route("/tables", func(r chi.Router) {
		r.Get("/", handlers.handleListTables)
		r.Get("/{name}", handlers.handleGetTable)
		r.Put("/{name}/access_mode", handlers.handleSetTableAccessMode)
	})

	return r
}

// RegisterRoutes mounts the admin API under /admin and, when Prometheus is
// enabled, the metrics handler at /metrics.
func RegisterRoutes(mux *http.ServeMux, handlers *AdminHandlers) {
	mux.Handle("/admin", http.RedirectHandler("/admin/", http.StatusMovedPermanently))
	mux.Handle("/admin/", http.StripPrefix("/admin", NewRouter(handlers)))

	if metrics := telemetry.GetMetricsHandler(); metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	log.Info().Msg("Admin endpoints enabled at /admin/*")
}
