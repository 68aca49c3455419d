// Package auth gates administrative endpoints behind a bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminMiddleware validates the Authorization header against the configured
// admin token. Comparison is constant-time.
func AdminMiddleware(adminToken string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, `{"error": "Missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, `{"error": "Invalid authorization header format"}`, http.StatusUnauthorized)
			return
		}

		if adminToken == "" ||
			subtle.ConstantTimeCompare([]byte(parts[1]), []byte(adminToken)) != 1 {
			http.Error(w, `{"error": "Invalid admin token"}`, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
