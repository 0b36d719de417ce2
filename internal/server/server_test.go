package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisma-build/procurement-api/internal/cache"
	"github.com/prisma-build/procurement-api/internal/catalog"
	"github.com/prisma-build/procurement-api/internal/observability"
	"github.com/prisma-build/procurement-api/internal/pricing"
	"github.com/prisma-build/procurement-api/internal/procurement"
	"github.com/prisma-build/procurement-api/internal/sim"
	"github.com/prisma-build/procurement-api/internal/types"
)

func newTestServer(t *testing.T, opts procurement.Options) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cat, err := catalog.New("testdata", logger)
	require.NoError(t, err)

	clock := sim.SystemClock{}
	rng := sim.NewLockedRand(1)
	orch := procurement.New(cat, cache.New(24*time.Hour, clock),
		pricing.NewEngine(rng, 0, 0), rng, clock, logger, nil, opts)

	metrics := observability.New()
	srv, err := NewServer(orch, &ServerConfig{
		Port: "0",
		Mode: "mock-sandbox",
	}, metrics, logger)
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	rec := doJSON(t, srv, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status types.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, Version, status.Version)
	assert.Equal(t, "mock-sandbox", status.Mode)
}

func TestSupplierSearchEndpoint(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	rec := doJSON(t, srv, "POST", "/ext/suppliers/search", types.SearchRequest{
		Origin:       types.Origin{Latitude: 17.3352, Longitude: 78.4537},
		Material:     "cement",
		QuantityTons: 50,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var bundle types.SupplierBundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bundle))
	require.NotNil(t, bundle.Recommended)
	assert.Equal(t, "SUP-CEM-001", bundle.Recommended.SupplierID)
	assert.Len(t, bundle.Suppliers, 2)
	assert.False(t, bundle.Provenance.Cache)
}

func TestSupplierSearchUnknownMaterial(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	rec := doJSON(t, srv, "POST", "/ext/suppliers/search", types.SearchRequest{
		Origin:       types.Origin{Latitude: 17.3352, Longitude: 78.4537},
		Material:     "marble",
		QuantityTons: 50,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSupplierSearchInvalidJSON(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	req := httptest.NewRequest("POST", "/ext/suppliers/search", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContentTypeRejected(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	req := httptest.NewRequest("POST", "/ext/suppliers/search", bytes.NewBufferString("<xml/>"))
	req.Header.Set("Content-Type", "text/xml")
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestQuoteEndpoint(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	rec := doJSON(t, srv, "POST", "/ext/suppliers/quote", types.QuoteRequest{
		SupplierID:   "SUP-CEM-001",
		Material:     "cement",
		QuantityTons: 25,
		Origin:       types.Origin{Latitude: 17.3352, Longitude: 78.4537},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var quote types.Quote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.Contains(t, quote.QuoteID, "QUO-")
	assert.GreaterOrEqual(t, quote.UnitPrice, 6800*0.99)
	assert.LessOrEqual(t, quote.UnitPrice, 6800*1.02)
}

func TestQuoteUnknownSupplier(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	rec := doJSON(t, srv, "POST", "/ext/suppliers/quote", types.QuoteRequest{
		SupplierID:   "SUP-XXX-999",
		Material:     "cement",
		QuantityTons: 25,
		Origin:       types.Origin{Latitude: 17.3352, Longitude: 78.4537},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouteETAEndpoint(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	destLat, destLon := 17.3616, 78.4747
	rec := doJSON(t, srv, "POST", "/ext/route/eta", types.RouteRequest{
		Origin:      types.Origin{Latitude: 17.3352, Longitude: 78.4537},
		Destination: types.Destination{Latitude: &destLat, Longitude: &destLon},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var estimate types.RouteEstimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &estimate))
	assert.Contains(t, estimate.RouteID, "ROUTE-")
	assert.Equal(t, "optimal", estimate.RouteQuality)
	assert.Greater(t, estimate.CO2Kg, 0.0)
}

func TestRouteETAMissingCoordinates(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	rec := doJSON(t, srv, "POST", "/ext/route/eta", map[string]interface{}{
		"origin":      map[string]float64{"latitude": 17.3352, "longitude": 78.4537},
		"destination": map[string]interface{}{"name": "no coords"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSourcesEndpoint(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	rec := doJSON(t, srv, "GET", "/ext/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.SourcesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "operational", resp.OverallStatus)
	assert.Len(t, resp.Sources, 7)
}

func TestMaterialsEndpoint(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	rec := doJSON(t, srv, "GET", "/ext/materials", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Materials []string `json:"materials"`
		Count     int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Materials, "cement")
	assert.Equal(t, len(resp.Materials), resp.Count)
}

func TestOverloadMapsTo429(t *testing.T) {
	// OverloadOneIn of 1 trips the simulation on every call.
	srv := newTestServer(t, procurement.Options{OverloadOneIn: 1})

	rec := doJSON(t, srv, "POST", "/ext/suppliers/search", types.SearchRequest{
		Origin:       types.Origin{Latitude: 17.3352, Longitude: 78.4537},
		Material:     "cement",
		QuantityTons: 50,
	})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestAdminCacheLifecycle(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	// Populate the cache with one search.
	rec := doJSON(t, srv, "POST", "/ext/suppliers/search", types.SearchRequest{
		Origin:       types.Origin{Latitude: 17.3352, Longitude: 78.4537},
		Material:     "cement",
		QuantityTons: 50,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, "GET", "/v1/admin/cache/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalEntries)

	rec = doJSON(t, srv, "DELETE", "/v1/admin/cache", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, "GET", "/v1/admin/cache/stats", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 0, stats.TotalEntries)
}

func TestAdminCatalogReload(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	rec := doJSON(t, srv, "POST", "/v1/admin/catalog/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reloaded  bool `json:"reloaded"`
		Suppliers int  `json:"suppliers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Reloaded)
	assert.Equal(t, 3, resp.Suppliers)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	router := srv.setupRoutes()

	// Drive one request through so the counters exist.
	req := httptest.NewRequest("GET", "/health", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "procurement_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, procurement.Options{})

	req := httptest.NewRequest("OPTIONS", "/ext/suppliers/search", nil)
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
