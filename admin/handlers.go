// Package admin serves the catalog administration HTTP API.
package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/maxpert/airlock/authz"
	"github.com/maxpert/airlock/catalog"
	"github.com/maxpert/airlock/connector"
	"github.com/maxpert/airlock/engine"
	"github.com/maxpert/airlock/protocol"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 64 << 10

// AdminHandlers handles admin API endpoints for catalog operations
type AdminHandlers struct {
	engine *engine.Engine
}

// NewAdminHandlers creates a new AdminHandlers instance
func NewAdminHandlers(e *engine.Engine) *AdminHandlers {
	return &AdminHandlers{engine: e}
}

// accessModeRequest is the body of the access mode PUT endpoints
type accessModeRequest struct {
	AccessMode string `json:"access_mode"`
}

func decodeAccessMode(r *http.Request) (catalog.AccessMode, error) {
	var req accessModeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return 0, fmt.Errorf("invalid request body: %w", err)
	}
	return catalog.ParseAccessMode(req.AccessMode)
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	response := map[string]interface{}{
		"data": data,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := map[string]interface{}{
		"error": message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}

// writeError maps engine errors to HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	writeErrorResponse(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var syntaxErr *protocol.SyntaxError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, authz.ErrPolicyDenied):
		return http.StatusForbidden
	case errors.Is(err, connector.ErrCapabilityUnimplemented):
		return http.StatusNotImplemented
	case errors.Is(err, connector.ErrUnknownKind),
		errors.Is(err, protocol.ErrUnsupportedStatement),
		errors.As(err, &syntaxErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// formatTime renders catalog timestamps as RFC 3339
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
