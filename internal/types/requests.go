package types

import (
	"fmt"
)

// Core request types for the three procurement operations.

// Origin is the location materials are needed at.
type Origin struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	RegionName string  `json:"region_name,omitempty"`
}

// Validate checks that the origin carries plausible WGS-84 coordinates.
func (o Origin) Validate() error {
	if o.Latitude < -90 || o.Latitude > 90 {
		return fmt.Errorf("origin latitude %v out of range [-90,90]", o.Latitude)
	}
	if o.Longitude < -180 || o.Longitude > 180 {
		return fmt.Errorf("origin longitude %v out of range [-180,180]", o.Longitude)
	}
	return nil
}

// Destination is a structured delivery target. Latitude/Longitude are
// pointers so a missing coordinate is distinguishable from 0,0 and can be
// rejected at the boundary.
type Destination struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Name      string   `json:"name,omitempty"`
}

// Validate rejects destinations without both coordinates.
func (d Destination) Validate() error {
	if d.Latitude == nil || d.Longitude == nil {
		return fmt.Errorf("destination must include 'latitude' and 'longitude'")
	}
	if *d.Latitude < -90 || *d.Latitude > 90 {
		return fmt.Errorf("destination latitude %v out of range [-90,90]", *d.Latitude)
	}
	if *d.Longitude < -180 || *d.Longitude > 180 {
		return fmt.Errorf("destination longitude %v out of range [-180,180]", *d.Longitude)
	}
	return nil
}

// SearchRequest asks for ranked suppliers of one material around an origin.
type SearchRequest struct {
	Origin       Origin  `json:"origin"`
	Material     string  `json:"material"`
	QuantityTons float64 `json:"quantity_tons"`
}

// Validate enforces the search preconditions before the request enters the core.
func (r SearchRequest) Validate() error {
	if err := r.Origin.Validate(); err != nil {
		return err
	}
	if r.Material == "" {
		return fmt.Errorf("material is required")
	}
	if r.QuantityTons <= 0 {
		return fmt.Errorf("quantity_tons must be greater than 0")
	}
	return nil
}

// QuoteRequest asks a specific supplier for a price quote.
type QuoteRequest struct {
	SupplierID   string  `json:"supplier_id"`
	Material     string  `json:"material"`
	QuantityTons float64 `json:"quantity_tons"`
	Origin       Origin  `json:"origin"`
}

// Validate enforces the quote preconditions.
func (r QuoteRequest) Validate() error {
	if err := r.Origin.Validate(); err != nil {
		return err
	}
	if r.SupplierID == "" {
		return fmt.Errorf("supplier_id is required")
	}
	if r.Material == "" {
		return fmt.Errorf("material is required")
	}
	if r.QuantityTons <= 0 {
		return fmt.Errorf("quantity_tons must be greater than 0")
	}
	return nil
}

// RouteRequest asks for a delivery-route estimate between origin and destination.
type RouteRequest struct {
	Origin       Origin      `json:"origin"`
	Destination  Destination `json:"destination"`
	QuantityTons *float64    `json:"quantity_tons,omitempty"`
}

// Validate enforces the route preconditions. Quantity is optional here; the
// orchestrator substitutes a documented default for emissions when omitted.
func (r RouteRequest) Validate() error {
	if err := r.Origin.Validate(); err != nil {
		return err
	}
	if err := r.Destination.Validate(); err != nil {
		return err
	}
	if r.QuantityTons != nil && *r.QuantityTons <= 0 {
		return fmt.Errorf("quantity_tons must be greater than 0 when provided")
	}
	return nil
}
