package geo

import (
	"math"
	"testing"
)

func TestHaversineKm_Zero(t *testing.T) {
	if d := HaversineKm(17.3352, 78.4537, 17.3352, 78.4537); d != 0 {
		t.Fatalf("distance to self = %v, want 0", d)
	}
}

func TestHaversineKm_Symmetric(t *testing.T) {
	points := [][4]float64{
		{17.3352, 78.4537, 17.3345, 78.4512},
		{0, 0, 0.01, 0},
		{-33.8688, 151.2093, 51.5074, -0.1278},
		{89.9, 10, -89.9, -170},
	}
	for _, p := range points {
		ab := HaversineKm(p[0], p[1], p[2], p[3])
		ba := HaversineKm(p[2], p[3], p[0], p[1])
		if ab != ba {
			t.Errorf("HaversineKm(%v) = %v, reversed = %v", p, ab, ba)
		}
	}
}

func TestHaversineKm_ReferenceValues(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
	}{
		// 0.01 degree of latitude at the equator is ~1.11 km.
		{"equator 0.01 deg lat", 0, 0, 0.01, 0, 1.11},
		// One degree of latitude is ~111.19 km.
		{"one deg lat", 0, 0, 1, 0, 111.19},
		// Hyderabad scenario pair from the mock catalog.
		{"bandlaguda", 17.3352, 78.4537, 17.3345, 78.4512, 0.28},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.want) > 0.01 {
				t.Errorf("HaversineKm = %v, want %v ± 0.01", got, tt.want)
			}
		})
	}
}

func TestRound2(t *testing.T) {
	if got := Round2(1.005 * 100); got != 100.5 {
		t.Errorf("Round2(100.5) = %v", got)
	}
	if got := Round2(2.344); got != 2.34 {
		t.Errorf("Round2(2.344) = %v, want 2.34", got)
	}
	if got := Round2(2.345); got != 2.35 {
		t.Errorf("Round2(2.345) = %v, want 2.35", got)
	}
}
