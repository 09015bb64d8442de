package middleware

import (
	"net/http"
	"os"
	"strings"
)

// CORS applies cross-origin headers. Allowed origins come from the
// CORS_ALLOWED_ORIGINS env var (comma separated); when unset the origin is
// reflected, which is only appropriate for local development.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed := os.Getenv("CORS_ALLOWED_ORIGINS")
		origin := r.Header.Get("Origin")
		if strings.TrimSpace(allowed) != "" {
			// Restrict to configured origins
			origins := strings.Split(allowed, ",")
			ok := false
			for _, o := range origins {
				if strings.EqualFold(strings.TrimSpace(o), origin) {
					ok = true
					break
				}
			}
			if ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
		} else {
			// Development default: reflect origin if present, fallback to *
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
