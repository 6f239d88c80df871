package server

import (
	"log"
	"net/http"
	"strings"
	"time"
)

// loggingMiddleware logs method, path, status and duration of every request.
func loggingMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{w, http.StatusOK}
			next.ServeHTTP(rw, r)
			logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// authMiddleware requires "Authorization: Bearer <key>" with a known key.
// Preflight requests and the health check pass through.
func authMiddleware(validKeys map[string]struct{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			authHeader := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="bitebook"`)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
			if _, ok := validKeys[token]; !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="bitebook", error="invalid_token"`)
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ParseAPIKeys parses a comma-separated list of API keys into a set.
func ParseAPIKeys(s string) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, k := range strings.Split(s, ",") {
		if v := strings.TrimSpace(k); v != "" {
			keys[v] = struct{}{}
		}
	}
	return keys
}
