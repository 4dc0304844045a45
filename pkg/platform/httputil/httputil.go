// Package httputil centralizes JSON response writing so every handler emits the
// same envelopes.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "qidscan/pkg/domain-errors"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into an HTTP status and error envelope. Errors
// that are not domain errors become internal errors. Internal errors never
// expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	description := ""
	if de, ok := dErrors.As(err); ok {
		code = de.Code
		description = de.Message
	}
	status := dErrors.ToHTTPStatus(code)
	if status == http.StatusInternalServerError {
		code = dErrors.CodeInternal
		description = ""
	}
	WriteJSON(w, status, ErrorResponse{Error: string(code), ErrorDescription: description})
}
