package tenant

import "context"

type contextKey int

const (
	tenantKey contextKey = iota
	bindingKey
)

// WithTenant returns a copy of ctx carrying tenantID. An empty id selects the
// default tenant.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// FromContext returns the tenant attached to ctx, or "" for the default tenant.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(tenantKey).(string)
	return id
}

// Label returns a printable tenant name, substituting Default for "".
func Label(tenantID string) string {
	if tenantID == "" {
		return Default
	}
	return tenantID
}

// withBinding attaches a request-scoped binding to ctx.
func withBinding[H any](ctx context.Context, b *Binding[H]) context.Context {
	return context.WithValue(ctx, bindingKey, b)
}

// BindingFromContext returns the binding attached by Middleware, if its handle
// type matches H.
func BindingFromContext[H any](ctx context.Context) (*Binding[H], bool) {
	b, ok := ctx.Value(bindingKey).(*Binding[H])
	return b, ok && b != nil
}
