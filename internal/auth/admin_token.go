package auth

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	pkghttp "github.com/BradenHooton/tenantauth/pkg/http"
)

// AdminTokenMiddleware guards internal endpoints with a pre-shared bearer token.
// An unset expected token rejects every request.
func AdminTokenMiddleware(expected string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expected == "" {
				logger.Warn("internal endpoint called without ADMIN_SYNC_TOKEN configured",
					slog.String("path", r.URL.Path))
				pkghttp.WriteUnauthorized(w, "Admin token not configured")
				return
			}

			provided, ok := bearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			if !AdminTokenMatches(provided, expected) {
				logger.Warn("invalid admin token", slog.String("path", r.URL.Path))
				pkghttp.WriteUnauthorized(w, "Invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AdminTokenMatches compares tokens in constant time. Lengths are checked
// first; that only reveals the length.
func AdminTokenMatches(provided, expected string) bool {
	if len(provided) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
