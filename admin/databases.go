package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maxpert/airlock/catalog"
)

type databaseView struct {
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	AccessMode string            `json:"access_mode"`
	Options    map[string]string `json:"options,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

func newDatabaseView(db catalog.ExternalDatabase) databaseView {
	return databaseView{
		Name:       db.Name,
		Kind:       string(db.Kind),
		AccessMode: db.Mode.String(),
		Options:    redactOptions(db.Options),
		CreatedAt:  formatTime(db.CreatedAt),
	}
}

// handleListDatabases handles GET /admin/databases
func (h *AdminHandlers) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	databases := h.engine.Store().ListDatabases()

	result := make([]databaseView, 0, len(databases))
	for _, db := range databases {
		result = append(result, newDatabaseView(db))
	}

	writeJSONResponse(w, result)
}

// handleGetDatabase handles GET /admin/databases/{name}
func (h *AdminHandlers) handleGetDatabase(w http.ResponseWriter, r *http.Request) {
	db, err := h.engine.Store().GetDatabase(catalog.Normalize(chi.URLParam(r, "name")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONResponse(w, newDatabaseView(db))
}

// handleSetDatabaseAccessMode handles PUT /admin/databases/{name}/access_mode
func (h *AdminHandlers) handleSetDatabaseAccessMode(w http.ResponseWriter, r *http.Request) {
	mode, err := decodeAccessMode(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	name := chi.URLParam(r, "name")
	if err := h.engine.SetDatabaseAccessMode(name, mode); err != nil {
		writeError(w, err)
		return
	}

	h.handleGetDatabase(w, r)
}
