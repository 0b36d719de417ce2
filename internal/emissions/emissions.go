// Package emissions estimates transport CO2 for material deliveries.
package emissions

import (
	"github.com/prisma-build/procurement-api/internal/geo"
)

// FactorKgPerTonKm is the heavy-truck emission factor: 0.06 kg CO2 per
// ton-kilometer. No per-vehicle variation is modeled.
const FactorKgPerTonKm = 0.06

// CO2Kg returns the estimated CO2 mass in kilograms for hauling quantityTons
// over distanceKm, rounded to 2 decimal places.
func CO2Kg(quantityTons, distanceKm float64) float64 {
	return geo.Round2(quantityTons * distanceKm * FactorKgPerTonKm)
}
