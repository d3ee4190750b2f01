package admin

import (
	"net/http"

	"github.com/maxpert/airlock/telemetry"
)

type kindView struct {
	Kind     string   `json:"kind"`
	Families []string `json:"writable"`
}

// handleStats handles GET /admin/stats
func (h *AdminHandlers) handleStats(w http.ResponseWriter, r *http.Request) {
	store := h.engine.Store()

	response := map[string]interface{}{
		"databases":       len(store.ListDatabases()),
		"tables":          len(store.ListTables()),
		"open_connectors": h.engine.OpenConnectors(),
	}
	if provider, ok := store.(telemetry.CatalogStatsProvider); ok {
		response["entries"] = provider.EntryCounts()
	}

	writeJSONResponse(w, response)
}

// handleListKinds handles GET /admin/connectors
func (h *AdminHandlers) handleListKinds(w http.ResponseWriter, r *http.Request) {
	registry := h.engine.Registry()

	kinds := registry.Kinds()
	result := make([]kindView, 0, len(kinds))
	for _, kind := range kinds {
		view := kindView{Kind: string(kind), Families: []string{}}
		caps, _ := registry.Capabilities(kind)
		for _, family := range caps.Families() {
			view.Families = append(view.Families, family.Label())
		}
		result = append(result, view)
	}

	writeJSONResponse(w, result)
}
