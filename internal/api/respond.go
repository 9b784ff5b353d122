package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// envelope is the uniform response shape: code 200 / "success" on the happy
// path, the HTTP status and a human message otherwise.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respondData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(envelope{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

// writeJSON is for the few endpoints outside the envelope (health, root).
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(envelope{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	})
}
