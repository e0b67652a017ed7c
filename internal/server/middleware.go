package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// adminAuth requires "Authorization: Bearer <token>". An empty token
// leaves the admin routes open, which config only allows outside production.
func adminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
