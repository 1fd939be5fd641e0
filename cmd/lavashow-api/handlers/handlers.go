// Package handlers provides HTTP handlers for the Lava Show chat API.
package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorDTO is the body of every error response.
type ErrorDTO struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	writeJSON(w, status, ErrorDTO{Error: message, Message: message, Detail: detail})
}

const maxBodyBytes = 64 << 10

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}
