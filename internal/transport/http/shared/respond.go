// Package shared holds the JSON response helpers used by every handler
// package, keeping the error envelope consistent across the API.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "creditdesk/pkg/domain-errors"
)

// WriteJSON encodes v with the given status. Encoding failures are ignored;
// the status line is already on the wire.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope. Errors
// without a domain code map to 500 with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		status = dErrors.ToHTTPStatus(dErr.Code)
		message = dErr.Message
	}
	WriteJSON(w, status, map[string]string{"error": message})
}
