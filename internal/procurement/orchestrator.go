// Package procurement composes the catalog, ranking, pricing, emissions and
// cache layers into the three external operations: supplier search, price
// quoting and route estimation. All upstream behavior (latency, overload,
// price jitter) is simulated locally.
package procurement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/prisma-build/procurement-api/internal/cache"
	"github.com/prisma-build/procurement-api/internal/catalog"
	"github.com/prisma-build/procurement-api/internal/emissions"
	"github.com/prisma-build/procurement-api/internal/geo"
	"github.com/prisma-build/procurement-api/internal/pricing"
	"github.com/prisma-build/procurement-api/internal/ranking"
	"github.com/prisma-build/procurement-api/internal/sim"
	"github.com/prisma-build/procurement-api/internal/types"
)

const (
	// UrbanSpeedKmh is the assumed average truck speed for route durations.
	UrbanSpeedKmh = 40.0

	// QuoteValidity is how long a generated quote remains honored.
	QuoteValidity = 48 * time.Hour

	// DefaultRouteTons is the assumed load for route emissions when the
	// request omits a quantity.
	DefaultRouteTons = 10.0
)

// Recorder receives operational events from the orchestrator. The metrics
// layer implements it; tests usually pass NoopRecorder.
type Recorder interface {
	CacheHit(operation string)
	CacheMiss(operation string)
	OverloadInjected(operation string)
}

// NoopRecorder discards all events.
type NoopRecorder struct{}

func (NoopRecorder) CacheHit(string)         {}
func (NoopRecorder) CacheMiss(string)        {}
func (NoopRecorder) OverloadInjected(string) {}

// Options carries the simulation knobs. Zero values disable the latency and
// overload simulations, which is what the tests want.
type Options struct {
	// Provider is the provenance label stamped on every response.
	Provider string

	// LatencyMinMs and LatencyMaxMs bound the simulated upstream latency.
	// Both zero disables the sleep.
	LatencyMinMs int
	LatencyMaxMs int

	// OverloadOneIn injects a simulated 429 on roughly one call in N.
	// Zero disables injection.
	OverloadOneIn int

	// CacheTTL overrides the search-cache TTL. Zero uses the cache default.
	CacheTTL time.Duration
}

// Orchestrator implements the procurement operations.
type Orchestrator struct {
	catalog  *catalog.Catalog
	cache    *cache.ResponseCache
	pricing  *pricing.Engine
	rng      sim.Rand
	clock    sim.Clock
	logger   *logrus.Logger
	recorder Recorder
	opts     Options
}

// New wires an orchestrator. A nil recorder is replaced with NoopRecorder,
// and an empty provider label defaults to "mock-sandbox".
func New(cat *catalog.Catalog, c *cache.ResponseCache, eng *pricing.Engine,
	rng sim.Rand, clock sim.Clock, logger *logrus.Logger, rec Recorder, opts Options) *Orchestrator {
	if rec == nil {
		rec = NoopRecorder{}
	}
	if opts.Provider == "" {
		opts.Provider = "mock-sandbox"
	}
	return &Orchestrator{
		catalog:  cat,
		cache:    c,
		pricing:  eng,
		rng:      rng,
		clock:    clock,
		logger:   logger,
		recorder: rec,
		opts:     opts,
	}
}

// Search returns ranked suppliers for a material around an origin, with a
// recommendation and, when no single supplier can fulfil the quantity, a
// split plan. Results are cached by (material, origin, quantity).
func (o *Orchestrator) Search(ctx context.Context, req types.SearchRequest) (*types.SupplierBundle, error) {
	if err := req.Validate(); err != nil {
		return nil, wrapError(KindInvalidArgument, err, "invalid search request")
	}

	material, err := catalog.Resolve(req.Material)
	if err != nil {
		return nil, newError(KindMaterialNotFound, "material %q is not available", req.Material)
	}

	params := cache.Params{
		Operation:    "search",
		Material:     material,
		Latitude:     req.Origin.Latitude,
		Longitude:    req.Origin.Longitude,
		QuantityTons: req.QuantityTons,
	}

	if hit, ok := o.cache.Get(params); ok {
		if cached, ok := hit.Payload.(*types.SupplierBundle); ok {
			o.recorder.CacheHit("search")
			o.logger.WithFields(logrus.Fields{
				"material":    material,
				"cache_key":   params.Key(),
				"age_seconds": hit.AgeSeconds,
			}).Debug("Search served from cache")
			return o.cachedBundle(cached, hit.AgeSeconds), nil
		}
		// Wrong payload type means the entry is unusable; drop it and
		// fall through to a fresh computation.
		o.cache.Delete(params)
	}
	o.recorder.CacheMiss("search")

	if err := o.maybeOverload("search"); err != nil {
		return nil, err
	}
	if err := o.simulateLatency(ctx); err != nil {
		return nil, err
	}

	bundle, err := o.computeSearch(material, req)
	if err != nil {
		return nil, err
	}

	o.cache.Set(params, bundle, o.opts.CacheTTL)

	o.logger.WithFields(logrus.Fields{
		"material":   material,
		"quantity_t": req.QuantityTons,
		"suppliers":  len(bundle.Suppliers),
		"split_plan": len(bundle.SplitPlan) > 0,
	}).Info("Supplier search completed")

	return bundle, nil
}

func (o *Orchestrator) computeSearch(material string, req types.SearchRequest) (*types.SupplierBundle, error) {
	suppliers, err := o.catalog.SuppliersByMaterial(material)
	if err != nil {
		return nil, o.catalogError(err, material)
	}

	for i := range suppliers {
		suppliers[i].DistanceKm = geo.HaversineKm(
			req.Origin.Latitude, req.Origin.Longitude,
			suppliers[i].Latitude, suppliers[i].Longitude)
	}

	ranked := ranking.Rank(suppliers)
	eligible := ranking.FilterEligible(ranked, req.QuantityTons)

	var splitPlan []types.Supplier
	if len(eligible) == 0 && len(ranked) > 0 {
		splitPlan = ranking.BuildSplitPlan(ranked, req.QuantityTons)
	}

	return &types.SupplierBundle{
		Origin:          req.Origin,
		Material:        material,
		QuantityTons:    req.QuantityTons,
		Suppliers:       ranked,
		Recommended:     ranking.Recommend(eligible, splitPlan),
		SplitPlan:       splitPlan,
		RankingCriteria: ranking.Criteria,
		Provenance:      o.freshProvenance("search"),
	}, nil
}

// cachedBundle returns a shallow copy of the cached bundle with provenance
// restamped for this request. The stored bundle is never mutated.
func (o *Orchestrator) cachedBundle(cached *types.SupplierBundle, ageSeconds int) *types.SupplierBundle {
	out := *cached
	out.Provenance = o.freshProvenance("search")
	out.Provenance.Cache = true
	out.Provenance.CacheAgeSeconds = &ageSeconds
	return &out
}

// Quote generates a fresh price quote for one supplier. Quotes are never
// cached; every call re-applies the price jitter.
func (o *Orchestrator) Quote(ctx context.Context, req types.QuoteRequest) (*types.Quote, error) {
	if err := req.Validate(); err != nil {
		return nil, wrapError(KindInvalidArgument, err, "invalid quote request")
	}

	material, err := catalog.Resolve(req.Material)
	if err != nil {
		return nil, newError(KindMaterialNotFound, "material %q is not available", req.Material)
	}

	if err := o.maybeOverload("quote"); err != nil {
		return nil, err
	}
	if err := o.simulateLatency(ctx); err != nil {
		return nil, err
	}

	supplier, err := o.catalog.SupplierByID(material, req.SupplierID)
	if err != nil {
		return nil, o.catalogError(err, material)
	}

	supplier.DistanceKm = geo.HaversineKm(
		req.Origin.Latitude, req.Origin.Longitude,
		supplier.Latitude, supplier.Longitude)

	unitPrice := o.pricing.JitterPrice(supplier.PricePerTon)
	totalPrice := pricing.TotalPrice(unitPrice, req.QuantityTons)

	etaDays := pricing.EstimateDeliveryDays(supplier.DistanceKm, supplier.LeadTimeDays)
	etaDays = o.pricing.JitterETADays(etaDays)

	now := o.clock.Now()
	quote := &types.Quote{
		QuoteID:      fmt.Sprintf("QUO-%s-%s", now.Format("20060102"), idSuffix()),
		Supplier:     supplier,
		Material:     material,
		QuantityTons: req.QuantityTons,
		UnitPrice:    unitPrice,
		TotalPrice:   totalPrice,
		ValidUntil:   now.Add(QuoteValidity),
		Notes:        quoteNotes(supplier, req.QuantityTons, etaDays),
		Provenance:   o.freshProvenance("quote"),
	}

	o.logger.WithFields(logrus.Fields{
		"quote_id":    quote.QuoteID,
		"supplier_id": supplier.SupplierID,
		"material":    material,
		"total_inr":   totalPrice,
	}).Info("Quote generated")

	return quote, nil
}

func quoteNotes(s types.Supplier, quantityTons float64, etaDays int) string {
	notes := fmt.Sprintf("Price includes GST. Delivery in %d days. Subject to availability.", etaDays)
	if s.StockTons < quantityTons {
		notes += fmt.Sprintf(" Warning: requested %.1f t exceeds current stock of %.1f t.",
			quantityTons, s.StockTons)
	}
	return notes
}

// RouteETA estimates a delivery route between origin and destination:
// haversine distance, duration at urban truck speed, and transport CO2.
func (o *Orchestrator) RouteETA(ctx context.Context, req types.RouteRequest) (*types.RouteEstimate, error) {
	if err := req.Validate(); err != nil {
		return nil, wrapError(KindInvalidArgument, err, "invalid route request")
	}

	if err := o.maybeOverload("route"); err != nil {
		return nil, err
	}
	if err := o.simulateLatency(ctx); err != nil {
		return nil, err
	}

	distanceKm := geo.HaversineKm(
		req.Origin.Latitude, req.Origin.Longitude,
		*req.Destination.Latitude, *req.Destination.Longitude)

	durationMinutes := int(math.Ceil(distanceKm / UrbanSpeedKmh * 60))

	quantityTons := DefaultRouteTons
	if req.QuantityTons != nil {
		quantityTons = *req.QuantityTons
	}

	now := o.clock.Now()
	estimate := &types.RouteEstimate{
		RouteID:         fmt.Sprintf("ROUTE-%s-%s", now.Format("20060102"), idSuffix()),
		Origin:          req.Origin,
		Destination:     req.Destination,
		DistanceKm:      distanceKm,
		DurationMinutes: durationMinutes,
		ETA:             now.Add(time.Duration(durationMinutes) * time.Minute),
		CO2Kg:           emissions.CO2Kg(quantityTons, distanceKm),
		RouteQuality:    routeQuality(distanceKm),
		Provenance:      o.freshProvenance("route"),
	}

	o.logger.WithFields(logrus.Fields{
		"route_id":    estimate.RouteID,
		"distance_km": distanceKm,
		"duration_m":  durationMinutes,
	}).Info("Route estimated")

	return estimate, nil
}

// routeQuality labels the route by distance. Boundaries are exclusive: a
// 10 km route is "good", a 30 km route is "fair".
func routeQuality(distanceKm float64) string {
	switch {
	case distanceKm < 10:
		return "optimal"
	case distanceKm < 30:
		return "good"
	default:
		return "fair"
	}
}

// Sources reports the health of the internal components the sandbox runs on
// and the external marketplaces it stands in for. Overall status is degraded
// only when a component is down.
func (o *Orchestrator) Sources(ctx context.Context) (*types.SourcesResponse, error) {
	_ = ctx

	now := o.clock.Now()

	internal := []string{"suppliers-db", "haversine-calc", "pricing-engine", "routing-engine", "cache-system"}
	external := []string{"government-gem-portal", "market-data-feed"}

	sources := make([]types.SourceHealth, 0, len(internal)+len(external))
	for _, name := range internal {
		rt := 20 + o.rng.Intn(80)
		sources = append(sources, types.SourceHealth{
			SourceName:     name,
			Status:         "healthy",
			ResponseTimeMs: &rt,
			LastCheck:      now,
			ErrorRate:      0,
		})
	}
	for _, name := range external {
		// Live marketplace connectors are stubbed out in sandbox mode.
		sources = append(sources, types.SourceHealth{
			SourceName: name,
			Status:     "disabled",
			LastCheck:  now,
			ErrorRate:  0,
		})
	}

	overall := "operational"
	for _, s := range sources {
		if s.Status == "down" {
			overall = "degraded"
			break
		}
	}

	return &types.SourcesResponse{
		OverallStatus: overall,
		Sources:       sources,
		Provenance:    o.freshProvenance("sources"),
	}, nil
}

// Materials lists the canonical material ids the catalog can serve.
func (o *Orchestrator) Materials() []string {
	return o.catalog.Materials()
}

// CacheStats exposes the response-cache snapshot for the admin surface.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.GetStats()
}

// ClearCache drops all cached search responses.
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
	o.logger.Info("Response cache cleared")
}

// ReloadCatalog re-reads the supplier data files and swaps the catalog
// snapshot. On failure the previous snapshot stays live.
func (o *Orchestrator) ReloadCatalog() (int, error) {
	if err := o.catalog.Reload(); err != nil {
		return 0, wrapError(KindDataCorrupt, err, "catalog reload failed")
	}
	return o.catalog.Size(), nil
}

func (o *Orchestrator) catalogError(err error, material string) error {
	switch {
	case errors.Is(err, catalog.ErrUnknownMaterial):
		return newError(KindMaterialNotFound, "material %q is not available", material)
	case errors.Is(err, catalog.ErrSupplierNotFound):
		return wrapError(KindSupplierNotFound, err, "supplier not found for material "+material)
	case errors.Is(err, catalog.ErrCorruptData):
		return wrapError(KindDataCorrupt, err, "supplier data unavailable")
	default:
		return wrapError(KindDataCorrupt, err, "catalog lookup failed")
	}
}

// maybeOverload rolls the overload die: roughly one call in OverloadOneIn
// fails with a retryable error carrying a 1-3 s Retry-After.
func (o *Orchestrator) maybeOverload(operation string) error {
	if o.opts.OverloadOneIn <= 0 {
		return nil
	}
	if o.rng.Intn(o.opts.OverloadOneIn) != 0 {
		return nil
	}
	o.recorder.OverloadInjected(operation)
	retryAfter := time.Duration(1+o.rng.Intn(3)) * time.Second
	o.logger.WithFields(logrus.Fields{
		"operation":     operation,
		"retry_after_s": retryAfter.Seconds(),
	}).Warn("Simulated upstream overload")
	return &Error{
		Kind:       KindOverloaded,
		Message:    "simulated upstream overload, retry later",
		RetryAfter: retryAfter,
	}
}

// simulateLatency sleeps for a uniform duration in the configured window,
// honoring context cancellation. A zero window returns immediately.
func (o *Orchestrator) simulateLatency(ctx context.Context) error {
	if o.opts.LatencyMaxMs <= 0 {
		return nil
	}
	min := o.opts.LatencyMinMs
	max := o.opts.LatencyMaxMs
	if min > max {
		min = max
	}
	delay := time.Duration(min) * time.Millisecond
	if span := max - min; span > 0 {
		delay += time.Duration(o.rng.Intn(span+1)) * time.Millisecond
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// operationSources names the simulated backends each operation draws on.
var operationSources = map[string][]string{
	"search":  {"mock-suppliers-db", "haversine-distance-calc"},
	"quote":   {"mock-suppliers-db", "mock-pricing-engine", "market-data-feed"},
	"route":   {"mock-routing-engine", "haversine-distance-calc", "co2-calculator"},
	"sources": {"mock-suppliers-db"},
}

func (o *Orchestrator) freshProvenance(operation string) types.Provenance {
	return types.Provenance{
		Provider:    o.opts.Provider,
		Cache:       false,
		RequestID:   requestID(),
		GeneratedAt: o.clock.Now(),
		Sources:     operationSources[operation],
	}
}

// requestID is a short correlation id, e.g. req-3fa85f64971c.
func requestID() string {
	return "req-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// idSuffix is the 6-character uppercase tail used in quote and route ids.
func idSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
