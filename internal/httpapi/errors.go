package httpapi

import (
	"encoding/json"
	"net/http"

	"vanguardd/internal/manager"
	"vanguardd/internal/orchestrator"
	"vanguardd/internal/store"
	"vanguardd/pkg/types"
)

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeDomainError maps well-known domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case manager.IsModelUnavailable(err):
		writeJSONError(w, http.StatusServiceUnavailable, "Model not loaded. Brain is still initializing.")
	case manager.IsTooBusy(err):
		IncrementBackpressure("queue_full")
		writeJSONError(w, http.StatusTooManyRequests, err.Error())
	case store.IsUnknownSession(err):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case orchestrator.IsChainFailure(err):
		// Carries the PRIMARY-stage cause by construction.
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
