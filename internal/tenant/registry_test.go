package tenant

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	db string
}

func countingOpen(calls *atomic.Int32) OpenFunc[*fakeHandle] {
	return func(tenantID string) *fakeHandle {
		calls.Add(1)
		return &fakeHandle{db: tenantID}
	}
}

func TestRegistry_DefaultTenantUsesFallback(t *testing.T) {
	var calls atomic.Int32
	fallback := &fakeHandle{db: "tenant_api"}
	reg := NewRegistry(fallback, countingOpen(&calls))

	assert.Same(t, fallback, reg.Resolve(""))
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 0, reg.Cached())
}

func TestRegistry_CachesPerTenant(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry(&fakeHandle{db: "tenant_api"}, countingOpen(&calls))

	first := reg.Resolve("acme")
	second := reg.Resolve("acme")
	other := reg.Resolve("oak")

	assert.Same(t, first, second)
	assert.Equal(t, "acme", first.db)
	assert.Equal(t, "oak", other.db)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 2, reg.Cached())
}

func TestRegistry_ConcurrentFirstAccessCreatesOneHandle(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry(&fakeHandle{}, countingOpen(&calls))

	const workers = 64
	results := make([]*fakeHandle, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = reg.Resolve("acme")
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, h := range results {
		assert.Same(t, results[0], h)
	}
}

func TestBinding_BindsOnce(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry(&fakeHandle{}, countingOpen(&calls))
	b := NewBinding(reg, "acme")

	assert.Equal(t, int32(0), calls.Load(), "binding must be lazy")
	h1 := b.Handle()
	h2 := b.Handle()
	assert.Same(t, h1, h2)
	assert.Equal(t, "acme", b.Tenant())
	assert.Equal(t, int32(1), calls.Load())
}

func TestRegistry_ForContext(t *testing.T) {
	var calls atomic.Int32
	fallback := &fakeHandle{db: "tenant_api"}
	reg := NewRegistry(fallback, countingOpen(&calls))

	assert.Same(t, fallback, reg.ForContext(context.Background()))

	ctx := WithTenant(context.Background(), "oak")
	assert.Equal(t, "oak", reg.ForContext(ctx).db)

	bound := withBinding(ctx, NewBinding(reg, "acme"))
	assert.Equal(t, "acme", reg.ForContext(bound).db, "binding wins over bare tenant id")
}

func TestMiddleware_AttachesTenantAndBinding(t *testing.T) {
	var calls atomic.Int32
	fallback := &fakeHandle{db: "tenant_api"}
	reg := NewRegistry(fallback, countingOpen(&calls))
	resolver := NewResolver([]string{"acme", "oak"})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var seen []string
	handler := Middleware(resolver, reg, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, ok := BindingFromContext[*fakeHandle](r.Context())
		require.True(t, ok)
		seen = append(seen, FromContext(r.Context())+"="+b.Handle().db)
	}))

	for _, host := range []string{"acme.example.com", "oak.example.com:4000", "localhost", "evil.example.com"} {
		req := httptest.NewRequest(http.MethodGet, "/users", nil)
		req.Host = host
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, []string{"acme=acme", "oak=oak", "=tenant_api", "=tenant_api"}, seen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "default", Label(""))
	assert.Equal(t, "acme", Label("acme"))
}
