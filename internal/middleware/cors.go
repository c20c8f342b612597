// Package middleware provides HTTP middleware for the gateway.
package middleware

import (
	"net/http"
	"strings"
)

const (
	allowMethods = "GET, POST, OPTIONS"
	allowHeaders = "Content-Type, X-Requested-With"
)

// AllowedOrigins returns the CORS origin list for a configured frontend URL.
// An empty URL allows any origin.
func AllowedOrigins(frontendURL string) []string {
	frontendURL = strings.TrimRight(strings.TrimSpace(frontendURL), "/")
	if frontendURL == "" {
		return []string{"*"}
	}
	return []string{frontendURL}
}

// CORS returns middleware that handles CORS headers.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	explicit := make(map[string]struct{}, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		explicit[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			_, isExplicit := explicit[origin]

			if origin != "" && (wildcard || isExplicit) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", allowMethods)
				w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
				w.Header().Add("Vary", "Origin")
				// Credentials only for explicit origins, never for wildcard echoes.
				if isExplicit {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
