// Package routes implements the agentic wallet platform's REST and
// WebSocket surface: a thin HTTP translation over the Orchestrator,
// External Agent Registry, Wallet Binder, Intent Router, Strategy
// Registry, Event Bus, and shared history store.
package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nhb-labs/agentic-wallet/apperr"
)

// envelope is the response shape every endpoint returns, per the
// platform's {success, data?, error?, timestamp} convention.
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, now func() int64) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data, Timestamp: now()})
}

// writeError maps a structured apperr.Error to its HTTP status; any other
// error is treated as internal and never echoes its original message, so
// an unrecognised failure can't leak implementation detail to a caller.
func writeError(w http.ResponseWriter, err error, now func() int64) {
	w.Header().Set("Content-Type", "application/json")
	var status int
	var message string
	var ae *apperr.Error
	if errors.As(err, &ae) {
		status = ae.HTTPStatus()
		message = ae.Error()
	} else {
		status = http.StatusInternalServerError
		message = "internal error"
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: message, Timestamp: now()})
}

func writeBadRequest(w http.ResponseWriter, msg string, now func() int64) {
	writeError(w, apperr.Validation("%s", msg), now)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
