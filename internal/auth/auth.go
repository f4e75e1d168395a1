package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	Token   string
}

// protectedRoutes require a bearer token when auth is enabled. Everything
// else (probes, metrics, datasets, results, the index page) stays public.
var protectedRoutes = map[string]bool{
	"POST /run-simulation": true,
}

func isProtected(r *http.Request) bool {
	return protectedRoutes[r.Method+" "+strings.TrimSuffix(r.URL.Path, "/")]
}

// Middleware returns an HTTP middleware that enforces Bearer token auth
// on protected routes when auth is enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || !isProtected(r) {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")

			if header == "" || token == header || subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
