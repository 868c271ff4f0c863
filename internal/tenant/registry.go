package tenant

import (
	"context"
	"sync"
)

// OpenFunc derives a handle bound to the named tenant partition. It must be
// cheap and must not open a new physical connection.
type OpenFunc[H any] func(tenantID string) H

// Registry caches one handle per tenant for the life of the process. Handles
// are created on first access and never evicted; the number of tenants is
// bounded by configuration.
type Registry[H any] struct {
	mu       sync.RWMutex
	handles  map[string]H
	open     OpenFunc[H]
	fallback H
}

// NewRegistry returns a registry that serves fallback for the default tenant
// and open(tenantID) for everything else.
func NewRegistry[H any](fallback H, open OpenFunc[H]) *Registry[H] {
	return &Registry[H]{
		handles:  make(map[string]H),
		open:     open,
		fallback: fallback,
	}
}

// Resolve returns the handle for tenantID, creating and caching it if needed.
// Concurrent first access to the same tenant creates exactly one handle.
func (r *Registry[H]) Resolve(tenantID string) H {
	if tenantID == "" {
		return r.fallback
	}

	r.mu.RLock()
	h, ok := r.handles[tenantID]
	r.mu.RUnlock()
	if ok {
		return h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[tenantID]; ok {
		return h
	}
	h = r.open(tenantID)
	r.handles[tenantID] = h
	return h
}

// ForContext resolves the handle for the tenant carried by ctx, reusing the
// request binding when one is present.
func (r *Registry[H]) ForContext(ctx context.Context) H {
	if b, ok := BindingFromContext[H](ctx); ok {
		return b.Handle()
	}
	return r.Resolve(FromContext(ctx))
}

// Cached reports how many tenant handles have been created.
func (r *Registry[H]) Cached() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

// Binding is the request-scoped, lazily bound view of a Registry. The handle
// is looked up on first use and reused for the rest of the request.
type Binding[H any] struct {
	tenantID string
	registry *Registry[H]
	once     sync.Once
	handle   H
}

// NewBinding creates an unbound binding for tenantID.
func NewBinding[H any](registry *Registry[H], tenantID string) *Binding[H] {
	return &Binding[H]{tenantID: tenantID, registry: registry}
}

// Tenant returns the tenant this binding resolves against ("" for default).
func (b *Binding[H]) Tenant() string { return b.tenantID }

// Handle binds on first call and returns the same handle thereafter.
func (b *Binding[H]) Handle() H {
	b.once.Do(func() {
		b.handle = b.registry.Resolve(b.tenantID)
	})
	return b.handle
}
