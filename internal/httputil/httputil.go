// Package httputil holds the tiny JSON response helpers shared by every
// HTTP frontend in this module (record store, wallet server, app
// backend), so the {error, code} envelope and status mapping stay
// identical across all three.
package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/ethdenver2026/uristore/internal/apierr"
)

// WriteJSON writes body as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// WriteError maps err's taxonomy code to its HTTP status and writes the
// standard {error, code} envelope.
func WriteError(w http.ResponseWriter, err error) {
	code := apierr.CodeOf(err)
	WriteJSON(w, apierr.HTTPStatus(code), map[string]interface{}{
		"error": err.Error(),
		"code":  string(code),
	})
}
