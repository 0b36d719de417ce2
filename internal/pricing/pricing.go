// Package pricing simulates market pricing and delivery lead times.
//
// Prices carry bounded random jitter so repeated quotes differ the way real
// market quotes do; all money values go through shopspring/decimal so cent
// rounding is exact.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/prisma-build/procurement-api/internal/sim"
)

// Default jitter bounds: -1% to +2% around the catalog base price.
const (
	DefaultJitterMin = 0.99
	DefaultJitterMax = 1.02
)

// AvgSpeedKmPerDay is the long-haul trucking model used for delivery lead
// times. The route estimator uses a separate urban speed.
const AvgSpeedKmPerDay = 300.0

// Engine produces jittered prices and delivery estimates from an injectable
// randomness source.
type Engine struct {
	rng       sim.Rand
	minFactor float64
	maxFactor float64
}

// NewEngine creates a pricing engine with the given jitter bounds. Bounds
// outside (0, minFactor ≤ maxFactor) fall back to the defaults.
func NewEngine(rng sim.Rand, minFactor, maxFactor float64) *Engine {
	if minFactor <= 0 || maxFactor < minFactor {
		minFactor = DefaultJitterMin
		maxFactor = DefaultJitterMax
	}
	return &Engine{rng: rng, minFactor: minFactor, maxFactor: maxFactor}
}

// JitterPrice multiplies basePrice by a uniform factor in
// [minFactor, maxFactor] and rounds to cents.
func (e *Engine) JitterPrice(basePrice float64) float64 {
	factor := e.minFactor + e.rng.Float64()*(e.maxFactor-e.minFactor)
	jittered := decimal.NewFromFloat(basePrice).Mul(decimal.NewFromFloat(factor))
	f, _ := jittered.Round(2).Float64()
	return f
}

// TotalPrice returns unitPrice × quantityTons rounded to cents.
func TotalPrice(unitPrice, quantityTons float64) float64 {
	total := decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromFloat(quantityTons))
	f, _ := total.Round(2).Float64()
	return f
}

// EstimateDeliveryDays converts distance into whole travel days at 300 km/day
// with a half-day floor, on top of the supplier's base lead time.
func EstimateDeliveryDays(distanceKm float64, baseLeadTimeDays int) int {
	travelDays := math.Max(0.5, distanceKm/AvgSpeedKmPerDay)
	return baseLeadTimeDays + int(math.Ceil(travelDays))
}

// JitterETADays perturbs a delivery estimate by a random integer in [-2, 2],
// clamped to at least 1 day. Used only for quoted-text realism; the route
// estimator has its own duration model.
func (e *Engine) JitterETADays(etaDays int) int {
	perturbed := etaDays + e.rng.Intn(5) - 2
	if perturbed < 1 {
		return 1
	}
	return perturbed
}
