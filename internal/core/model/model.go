// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"strconv"
)

// Coordinate is a WGS84 vertex of a boundary ring.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BBox is an area query footprint in lat/lng order.
type BBox struct {
	MinLat, MinLng float64
	MaxLat, MaxLng float64
}

// String representation matching overpass bbox filters (south,west,north,east)
func (b BBox) String() string {
	return fmt.Sprintf("%s,%s,%s,%s", fmtCoord(b.MinLat), fmtCoord(b.MinLng), fmtCoord(b.MaxLat), fmtCoord(b.MaxLng))
}

func fmtCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MapRegion is a visible map viewport: a center plus the span shown on each axis.
type MapRegion struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	LatitudeDelta  float64 `json:"latitudeDelta"`
	LongitudeDelta float64 `json:"longitudeDelta"`
}

// DefaultMapRegion is the viewport the apps open on (Greenfield Park, NSW).
var DefaultMapRegion = MapRegion{
	Latitude:       -33.8668,
	Longitude:      150.9138,
	LatitudeDelta:  0.0922,
	LongitudeDelta: 0.0421,
}

// BBox returns the box covered by the viewport.
func (r MapRegion) BBox() BBox {
	hl := r.LatitudeDelta / 2
	hg := r.LongitudeDelta / 2
	if hl < 0 {
		hl = -hl
	}
	if hg < 0 {
		hg = -hg
	}
	return BBox{
		MinLat: r.Latitude - hl,
		MinLng: r.Longitude - hg,
		MaxLat: r.Latitude + hl,
		MaxLng: r.Longitude + hg,
	}
}

// NameLookup identifies a single suburb inside an enclosing region.
type NameLookup struct {
	Name   string
	Region string
}

// SuburbBoundary is a resolved, named boundary ring. Values are never mutated
// once produced; caches hand out the same slices to every caller.
type SuburbBoundary struct {
	Name        string       `json:"name"`
	Coordinates []Coordinate `json:"coordinates"`
}
