// Package handler provides HTTP request handlers.
//
// Every response carries a `success` boolean. Successful responses
// spread their payload next to it; failures carry a single `error`
// string and nothing else, so a client never sees partial data.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/toolvane/toolvane/internal/scheduler"
	"github.com/toolvane/toolvane/internal/store"
)

// envelope is the response body shape for every endpoint.
type envelope map[string]any

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a 200-family response with success:true spread
// over the payload fields.
func writeSuccess(w http.ResponseWriter, status int, payload envelope) {
	body := envelope{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeError writes a failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "error": message})
}

// writeStoreError maps domain errors onto HTTP statuses: missing
// records are 404, rejected input is 400, unknown job names are 400,
// anything else is a 500 with a generic message so internals never
// leak to clients.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduler.ErrUnknownJob):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// NotFound handles 404 responses for unrouted paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
