package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// publicPaths never require the API key, per spec.md §6.
var publicPaths = map[string]bool{
	"/api/health":      true,
	"/api/auth/status": true,
}

// extractAPIKey reads the shared secret from the X-API-Key header or the
// api_key query parameter.
func extractAPIKey(r *http.Request) string {
	if v := r.Header.Get("X-API-Key"); v != "" {
		return v
	}
	return r.URL.Query().Get("api_key")
}

func authorize(got, expected string) bool {
	if strings.TrimSpace(expected) == "" {
		return true // auth gate disabled when no key is configured
	}
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// apiKeyMiddleware gates every request behind the configured shared secret,
// except the always-public health/auth-status endpoints (spec.md §6).
func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		expected := s.apiKey()
		if !authorize(extractAPIKey(r), expected) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
