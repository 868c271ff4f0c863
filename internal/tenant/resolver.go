// Package tenant maps inbound requests to isolated per-tenant data partitions.
//
// A tenant is never stored. It is derived from the first label of the request
// host, checked against a configured allow-list, and carried on the request
// context for the lifetime of the request. Requests whose host does not name a
// known tenant fall through to the default partition.
package tenant

import (
	"net"
	"strings"
)

// Default is the identifier used in logs and claims-free contexts for the
// fallback partition. It is never a valid allow-list entry.
const Default = "default"

// DefaultKnownTenants is used when no allow-list is configured.
var DefaultKnownTenants = []string{"rcsa", "oak"}

// ParseKnownTenants splits a comma separated allow-list, trimming and
// lower-casing each entry and dropping empties. An empty input yields
// DefaultKnownTenants.
func ParseKnownTenants(raw string) []string {
	tenants := make([]string, 0)
	seen := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		t := strings.ToLower(strings.TrimSpace(part))
		if t == "" || t == Default {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		tenants = append(tenants, t)
	}
	if len(tenants) == 0 {
		return append([]string(nil), DefaultKnownTenants...)
	}
	return tenants
}

// Resolver derives a tenant identifier from a Host header.
type Resolver struct {
	known map[string]struct{}
	list  []string
}

// NewResolver builds a resolver over the given allow-list.
func NewResolver(known []string) *Resolver {
	r := &Resolver{known: make(map[string]struct{}, len(known))}
	for _, t := range known {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || t == Default {
			continue
		}
		if _, dup := r.known[t]; dup {
			continue
		}
		r.known[t] = struct{}{}
		r.list = append(r.list, t)
	}
	return r
}

// Known returns the allow-list in configuration order.
func (r *Resolver) Known() []string {
	return append([]string(nil), r.list...)
}

// Resolve returns the tenant named by host, or ok=false when the default
// tenant applies. Only the first label is considered, so
// "acme.eu.example.com" resolves to "acme" and "localhost" resolves to nothing.
func (r *Resolver) Resolve(host string) (tenantID string, ok bool) {
	hostname := stripPort(strings.TrimSpace(host))
	dot := strings.IndexByte(hostname, '.')
	if dot <= 0 {
		return "", false
	}

	label := strings.ToLower(hostname[:dot])
	if _, known := r.known[label]; !known {
		return "", false
	}
	return label, true
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	// SplitHostPort rejects hosts without a port; a bare trailing colon is still trimmed.
	return strings.TrimSuffix(host, ":")
}
