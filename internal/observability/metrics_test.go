package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	m := New()

	m.CacheHit("search")
	m.CacheHit("search")
	m.CacheMiss("search")
	m.OverloadInjected("quote")
	m.CatalogReloaded()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheHits.WithLabelValues("search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMisses.WithLabelValues("search")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.overloads.WithLabelValues("quote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.catalogReloads))
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("/ext/suppliers/search", "POST", 200, 50*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "procurement_http_requests_total")
	assert.Contains(t, body, `route="/ext/suppliers/search"`)
}
