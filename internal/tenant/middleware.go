package tenant

import (
	"log/slog"
	"net/http"
)

// Middleware resolves the tenant from the Host header and attaches both the
// tenant id and an unbound registry binding to the request context.
func Middleware[H any](resolver *Resolver, registry *Registry[H], logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, _ := resolver.Resolve(r.Host)

			logger.Debug("tenant resolved",
				slog.String("host", r.Host),
				slog.String("tenant", Label(tenantID)))

			ctx := WithTenant(r.Context(), tenantID)
			ctx = withBinding(ctx, NewBinding(registry, tenantID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
