package types

import (
	"time"
)

// Response types returned by the procurement operations.

// Supplier is one supplier record for a material, enriched with the
// per-request distance from the search origin. Split-plan responses also carry
// AllocatedTons/EstimatedCost annotations.
type Supplier struct {
	SupplierID   string  `json:"supplier_id"`
	Name         string  `json:"name"`
	MaterialID   string  `json:"material_id"`
	MaterialName string  `json:"material_name"`
	StockTons    float64 `json:"stock_tons"`
	PricePerTon  float64 `json:"price_inr_per_ton"`
	LeadTimeDays int     `json:"lead_time_days"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Address      string  `json:"address"`
	Rating       float64 `json:"rating"`

	// Computed per request, never stored in the catalog.
	DistanceKm float64 `json:"distance_km,omitempty"`

	// Populated only on split-plan entries.
	AllocatedTons float64 `json:"allocated_tons,omitempty"`
	EstimatedCost float64 `json:"estimated_cost_inr,omitempty"`
}

// Provenance describes where a response came from and how fresh it is.
type Provenance struct {
	Provider        string    `json:"provider"`
	Cache           bool      `json:"cache"`
	CacheAgeSeconds *int      `json:"cache_age_seconds,omitempty"`
	RequestID       string    `json:"request_id"`
	GeneratedAt     time.Time `json:"generated_at"`
	Sources         []string  `json:"sources"`
}

// SupplierBundle is the complete supplier-search response.
type SupplierBundle struct {
	Origin          Origin     `json:"origin"`
	Material        string     `json:"material"`
	QuantityTons    float64    `json:"quantity_tons"`
	Suppliers       []Supplier `json:"suppliers"`
	Recommended     *Supplier  `json:"recommended"`
	SplitPlan       []Supplier `json:"split_plan,omitempty"`
	RankingCriteria []string   `json:"ranking_criteria"`
	Provenance      Provenance `json:"provenance"`
}

// Quote is a single-supplier price quote with jittered pricing. Quotes are
// generated fresh on every call and are never cached.
type Quote struct {
	QuoteID      string     `json:"quote_id"`
	Supplier     Supplier   `json:"supplier"`
	Material     string     `json:"material"`
	QuantityTons float64    `json:"quantity_tons"`
	UnitPrice    float64    `json:"unit_price_inr"`
	TotalPrice   float64    `json:"total_price_inr"`
	ValidUntil   time.Time  `json:"valid_until"`
	Notes        string     `json:"notes,omitempty"`
	Provenance   Provenance `json:"provenance"`
}

// RouteEstimate is a delivery-route estimate with ETA and emissions.
type RouteEstimate struct {
	RouteID         string      `json:"route_id"`
	Origin          Origin      `json:"origin"`
	Destination     Destination `json:"destination"`
	DistanceKm      float64     `json:"distance_km"`
	DurationMinutes int         `json:"duration_minutes"`
	ETA             time.Time   `json:"eta"`
	CO2Kg           float64     `json:"co2_kg"`
	RouteQuality    string      `json:"route_quality"`
	Provenance      Provenance  `json:"provenance"`
}

// SourceHealth reports the health of one data-source integration.
type SourceHealth struct {
	SourceName     string    `json:"source_name"`
	Status         string    `json:"status"` // healthy, degraded, down, sandbox, disabled
	ResponseTimeMs *int      `json:"response_time_ms,omitempty"`
	LastCheck      time.Time `json:"last_check"`
	ErrorRate      float64   `json:"error_rate"`
}

// SourcesResponse is the aggregate health of all integrations.
type SourcesResponse struct {
	OverallStatus string         `json:"overall_status"`
	Sources       []SourceHealth `json:"sources"`
	Provenance    Provenance     `json:"provenance"`
}

// HealthStatus is the liveness payload.
type HealthStatus struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Mode      string    `json:"mode"`
	Timestamp time.Time `json:"timestamp"`
}
