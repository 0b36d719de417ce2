// Package ranking orders supplier candidates and builds split-fulfillment
// plans when no single supplier can cover the requested quantity.
package ranking

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/prisma-build/procurement-api/internal/types"
)

// Criteria is the fixed ranking order reported to callers.
var Criteria = []string{"distance", "price", "lead_time"}

// MaxSplitSuppliers caps how many suppliers a split plan may draw from.
const MaxSplitSuppliers = 3

// sortKey treats a non-positive price and negative distance/lead time as
// missing criteria, so incomplete records sort last rather than first.
// Distance 0 is a real value (supplier at the origin) and sorts first.
func sortKey(s types.Supplier) (float64, float64, float64) {
	dist := s.DistanceKm
	if dist < 0 {
		dist = math.Inf(1)
	}
	price := s.PricePerTon
	if price <= 0 {
		price = math.Inf(1)
	}
	lead := float64(s.LeadTimeDays)
	if s.LeadTimeDays < 0 {
		lead = math.Inf(1)
	}
	return dist, price, lead
}

// Rank stable-sorts suppliers ascending by (distance, price, lead time).
// The input slice is not modified.
func Rank(suppliers []types.Supplier) []types.Supplier {
	ranked := make([]types.Supplier, len(suppliers))
	copy(ranked, suppliers)

	sort.SliceStable(ranked, func(i, j int) bool {
		di, pi, li := sortKey(ranked[i])
		dj, pj, lj := sortKey(ranked[j])
		if di != dj {
			return di < dj
		}
		if pi != pj {
			return pi < pj
		}
		return li < lj
	})
	return ranked
}

// FilterEligible keeps suppliers whose stock covers the full requested
// quantity, preserving rank order.
func FilterEligible(ranked []types.Supplier, requiredTons float64) []types.Supplier {
	eligible := make([]types.Supplier, 0, len(ranked))
	for _, s := range ranked {
		if s.StockTons >= requiredTons {
			eligible = append(eligible, s)
		}
	}
	return eligible
}

// BuildSplitPlan allocates the requested quantity across up to three
// top-ranked suppliers with stock. Each allocation takes
// min(stock, remaining); if the top three cannot cover the demand the plan
// under-fulfills rather than failing. Input must already be ranked.
func BuildSplitPlan(ranked []types.Supplier, requiredTons float64) []types.Supplier {
	if len(ranked) == 0 {
		return nil
	}

	window := ranked
	if len(window) > MaxSplitSuppliers {
		window = window[:MaxSplitSuppliers]
	}

	plan := make([]types.Supplier, 0, MaxSplitSuppliers)
	remaining := requiredTons

	for _, s := range window {
		if remaining <= 0 {
			break
		}
		if s.StockTons <= 0 {
			continue
		}

		allocated := math.Min(s.StockTons, remaining)
		entry := s
		entry.AllocatedTons = round2(allocated)
		entry.EstimatedCost = estimatedCost(allocated, s.PricePerTon)
		plan = append(plan, entry)
		remaining -= allocated
	}

	return plan
}

// Recommend applies the selection policy: the best fully-stocked supplier
// wins; otherwise the first split allocation stands in; otherwise nothing.
func Recommend(eligible, splitPlan []types.Supplier) *types.Supplier {
	if len(eligible) > 0 {
		best := eligible[0]
		return &best
	}
	if len(splitPlan) > 0 {
		best := splitPlan[0]
		return &best
	}
	return nil
}

func estimatedCost(allocatedTons, pricePerTon float64) float64 {
	cost := decimal.NewFromFloat(allocatedTons).Mul(decimal.NewFromFloat(pricePerTon))
	f, _ := cost.Round(2).Float64()
	return f
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
