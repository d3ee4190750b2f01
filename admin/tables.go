package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gobwas/glob"
	"github.com/maxpert/airlock/catalog"
)

type tableView struct {
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	AccessMode string            `json:"access_mode,omitempty"` // empty when inherited
	Options    map[string]string `json:"options,omitempty"`
	CreatedAt  string            `json:"created_at"`
}

func newTableView(tbl catalog.ExternalTable) tableView {
	view := tableView{
		Name:      tbl.Name.String(),
		Kind:      string(tbl.Kind),
		Options:   redactOptions(tbl.Options),
		CreatedAt: formatTime(tbl.CreatedAt),
	}
	if mode, ok := tbl.AccessModeOverride(); ok {
		view.AccessMode = mode.String()
	}
	return view
}

// handleListTables handles GET /admin/tables?match=<glob>
func (h *AdminHandlers) handleListTables(w http.ResponseWriter, r *http.Request) {
	var matcher glob.Glob
	if pattern := r.URL.Query().Get("match"); pattern != "" {
		g, err := glob.Compile(catalog.Normalize(pattern), '.')
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid match pattern: "+err.Error())
			return
		}
		matcher = g
	}

	tables := h.engine.Store().ListTables()
	result := make([]tableView, 0, len(tables))
	for _, tbl := range tables {
		if matcher != nil && !matcher.Match(tbl.Name.String()) {
			continue
		}
		result = append(result, newTableView(tbl))
	}

	writeJSONResponse(w, result)
}

// handleGetTable handles GET /admin/tables/{name}
func (h *AdminHandlers) handleGetTable(w http.ResponseWriter, r *http.Request) {
	name, err := catalog.ParseTableName(chi.URLParam(r, "name"))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	tbl, err := h.engine.Store().GetTable(name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONResponse(w, newTableView(tbl))
}

// handleSetTableAccessMode handles PUT /admin/tables/{name}/access_mode
func (h *AdminHandlers) handleSetTableAccessMode(w http.ResponseWriter, r *http.Request) {
	name, err := catalog.ParseTableName(chi.URLParam(r, "name"))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	mode, err := decodeAccessMode(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.SetTableAccessMode(name, mode); err != nil {
		writeError(w, err)
		return
	}

	h.handleGetTable(w, r)
}
