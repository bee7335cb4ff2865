package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody matches the error envelope the handlers write.
type errorBody struct {
	Error string `json:"error"`
}

// unauthorized rejects a bearer request with a 401 and an RFC 6750 challenge.
// tokenErr is empty when no credential was presented at all.
func unauthorized(w http.ResponseWriter, tokenErr, msg string) {
	challenge := `Bearer realm="api"`
	if tokenErr != "" {
		challenge += `, error="` + tokenErr + `"`
	}
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorBody{Error: msg})
}
