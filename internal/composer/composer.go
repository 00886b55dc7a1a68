// Package composer renders resolved boundaries in the negotiated response format.
package composer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
)

type Format int

const (
	FormatJSON Format = iota
	FormatGeoJSON
)

func (f Format) String() string {
	if f == FormatGeoJSON {
		return "geojson"
	}
	return "json"
}

type Negotiation struct {
	Format      Format
	ContentType string
}

var (
	plainJSON = Negotiation{Format: FormatJSON, ContentType: "application/json"}
	geoJSON   = Negotiation{Format: FormatGeoJSON, ContentType: "application/geo+json"}
)

// NegotiateFormat picks the output format from an explicit format parameter,
// falling back to the Accept header (highest q wins) and then plain JSON.
func NegotiateFormat(acceptHeader, format string) Negotiation {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "geojson", "application/geo+json":
		return geoJSON
	case "json", "application/json":
		return plainJSON
	}

	bestQ := -1.0
	best := plainJSON
	for part := range strings.SplitSeq(strings.ToLower(acceptHeader), ",") {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}
		mt, params, _ := strings.Cut(token, ";")
		mt = strings.TrimSpace(mt)
		q := 1.0
		for p := range strings.SplitSeq(params, ";") {
			if after, ok := strings.CutPrefix(strings.TrimSpace(p), "q="); ok {
				if v, err := strconv.ParseFloat(after, 64); err == nil {
					q = v
				}
			}
		}
		var cand Negotiation
		switch {
		case strings.Contains(mt, "geo+json"):
			cand = geoJSON
		case mt == "application/json" || mt == "*/*":
			cand = plainJSON
		default:
			continue
		}
		if q > bestQ {
			bestQ, best = q, cand
		}
	}
	return best
}

type geometry struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   *geometry      `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// ToFeature converts a boundary to a GeoJSON Polygon feature. Positions are
// [lon,lat] and the ring is closed if the assembled ring is open. Rings with
// fewer than three vertices have a null geometry.
func ToFeature(b model.SuburbBoundary) Feature {
	f := Feature{
		Type:       "Feature",
		Properties: map[string]any{"name": b.Name},
	}
	if len(b.Coordinates) < 3 {
		return f
	}
	ring := make([][]float64, 0, len(b.Coordinates)+1)
	for _, c := range b.Coordinates {
		ring = append(ring, []float64{c.Longitude, c.Latitude})
	}
	first, last := b.Coordinates[0], b.Coordinates[len(b.Coordinates)-1]
	if first != last {
		ring = append(ring, []float64{first.Longitude, first.Latitude})
	}
	f.Geometry = &geometry{Type: "Polygon", Coordinates: [][][]float64{ring}}
	return f
}

func ToFeatureCollection(bs []model.SuburbBoundary) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(bs))}
	for _, b := range bs {
		fc.Features = append(fc.Features, ToFeature(b))
	}
	return fc
}

// Boundaries renders an area lookup result.
func Boundaries(f Format, bs []model.SuburbBoundary) ([]byte, error) {
	if bs == nil {
		bs = []model.SuburbBoundary{}
	}
	var v any = struct {
		Boundaries []model.SuburbBoundary `json:"boundaries"`
	}{bs}
	if f == FormatGeoJSON {
		v = ToFeatureCollection(bs)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode boundaries: %w", err)
	}
	return b, nil
}

// Boundary renders a by-name result; nil encodes as JSON null.
func Boundary(f Format, b *model.SuburbBoundary) ([]byte, error) {
	var v any = struct {
		Boundary *model.SuburbBoundary `json:"boundary"`
	}{b}
	if f == FormatGeoJSON {
		v = nil
		if b != nil {
			v = ToFeature(*b)
		}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode boundary: %w", err)
	}
	return out, nil
}
