package model

import (
	"math"
	"testing"
)

func TestBBox_StringOverpassOrder(t *testing.T) {
	bb := BBox{MinLat: -33.9, MinLng: 150.85, MaxLat: -33.8, MaxLng: 151}
	if got, want := bb.String(), "-33.9,150.85,-33.8,151"; got != want {
		t.Fatalf("String()=%q want %q", got, want)
	}
}

func TestMapRegion_BBox(t *testing.T) {
	r := MapRegion{Latitude: -33.8, Longitude: 151.0, LatitudeDelta: 0.2, LongitudeDelta: -0.1}
	bb := r.BBox()

	near := func(a, b float64) bool { return math.Abs(a-b) < 1e-9 }
	if !near(bb.MinLat, -33.9) || !near(bb.MaxLat, -33.7) {
		t.Fatalf("lat span=%v..%v", bb.MinLat, bb.MaxLat)
	}
	if !near(bb.MinLng, 150.95) || !near(bb.MaxLng, 151.05) {
		t.Fatalf("lng span=%v..%v (negative delta must be treated as magnitude)", bb.MinLng, bb.MaxLng)
	}
}

func TestDefaultMapRegion_ContainsCenter(t *testing.T) {
	bb := DefaultMapRegion.BBox()
	if !(bb.MinLat < DefaultMapRegion.Latitude && DefaultMapRegion.Latitude < bb.MaxLat) {
		t.Fatalf("default viewport does not contain its center: %+v", bb)
	}
}
