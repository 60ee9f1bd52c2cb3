package auth

import (
	"encoding/json"
	"net/http"
)

// Middleware wraps next with API key authentication.
//
// Behaviour:
//   - If mode != "apikey" or key == "", all requests pass through.
//   - Otherwise the value of the named header is compared to key.
//   - A missing, empty, or incorrect key gets 401 with a JSON error body
//     before next ever runs.
func Middleware(mode, header, key string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Non-apikey modes or unconfigured key: allow everything.
		if mode != "apikey" || key == "" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Header.Get(header) != key {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"}) //nolint:errcheck
			return
		}

		next.ServeHTTP(w, r)
	})
}
