package middleware

import (
	"encoding/json"
	"net/http"
)

// deny writes the same {"error", "code"} body the handlers use.
func deny(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": code})
}
