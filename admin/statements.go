package admin

import (
	"encoding/json"
	"io"
	"net/http"
)

type statementRequest struct {
	SQL string `json:"sql"`
}

type statementResponse struct {
	Type         string      `json:"type"`
	RowsAffected int64       `json:"rows_affected"`
	Databases    interface{} `json:"databases,omitempty"`
	Tables       interface{} `json:"tables,omitempty"`
}

// handleExecute handles POST /admin/statements
func (h *AdminHandlers) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req statementRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil || req.SQL == "" {
		writeErrorResponse(w, http.StatusBadRequest, "request body must carry a sql statement")
		return
	}

	res, err := h.engine.Execute(r.Context(), req.SQL)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := statementResponse{Type: res.Type.String(), RowsAffected: res.RowsAffected}
	if res.Databases != nil {
		views := make([]databaseView, 0, len(res.Databases))
		for _, db := range res.Databases {
			views = append(views, newDatabaseView(db))
		}
		resp.Databases = views
	}
	if res.Tables != nil {
		views := make([]tableView, 0, len(res.Tables))
		for _, tbl := range res.Tables {
			views = append(views, newTableView(tbl))
		}
		resp.Tables = views
	}

	writeJSONResponse(w, resp)
}
