package composer

import (
	"encoding/json"
	"testing"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
)

func TestNegotiateFormat(t *testing.T) {
	cases := []struct {
		accept, format string
		want           Format
	}{
		{"", "", FormatJSON},
		{"", "geojson", FormatGeoJSON},
		{"application/geo+json", "json", FormatJSON},
		{"application/geo+json", "", FormatGeoJSON},
		{"application/json;q=0.5, application/geo+json;q=0.9", "", FormatGeoJSON},
		{"application/geo+json;q=0.2, */*;q=0.8", "", FormatJSON},
		{"text/html", "", FormatJSON},
	}
	for _, tc := range cases {
		if got := NegotiateFormat(tc.accept, tc.format).Format; got != tc.want {
			t.Fatalf("NegotiateFormat(%q,%q)=%s want %s", tc.accept, tc.format, got, tc.want)
		}
	}
	if ct := NegotiateFormat("", "geojson").ContentType; ct != "application/geo+json" {
		t.Fatalf("content-type=%q", ct)
	}
}

var open = model.SuburbBoundary{
	Name: "Bonnyrigg",
	Coordinates: []model.Coordinate{
		{Latitude: -33.89, Longitude: 150.88},
		{Latitude: -33.89, Longitude: 150.90},
		{Latitude: -33.88, Longitude: 150.90},
	},
}

func TestToFeature_ClosesRingInLonLatOrder(t *testing.T) {
	f := ToFeature(open)
	if f.Geometry == nil || f.Geometry.Type != "Polygon" {
		t.Fatalf("geometry=%+v", f.Geometry)
	}
	ring := f.Geometry.Coordinates[0]
	if len(ring) != 4 {
		t.Fatalf("ring len=%d want 4", len(ring))
	}
	if ring[0][0] != 150.88 || ring[0][1] != -33.89 {
		t.Fatalf("first position=%v want [lon,lat]", ring[0])
	}
	if ring[3][0] != ring[0][0] || ring[3][1] != ring[0][1] {
		t.Fatalf("ring not closed: %v", ring)
	}
	if f.Properties["name"] != "Bonnyrigg" {
		t.Fatalf("properties=%v", f.Properties)
	}
}

func TestToFeature_AlreadyClosedNotDuplicated(t *testing.T) {
	closed := open
	closed.Coordinates = append(append([]model.Coordinate{}, open.Coordinates...), open.Coordinates[0])
	if n := len(ToFeature(closed).Geometry.Coordinates[0]); n != 4 {
		t.Fatalf("ring len=%d want 4", n)
	}
}

func TestToFeature_DegenerateHasNullGeometry(t *testing.T) {
	f := ToFeature(model.SuburbBoundary{Name: "x", Coordinates: open.Coordinates[:2]})
	if f.Geometry != nil {
		t.Fatalf("want nil geometry, got %+v", f.Geometry)
	}
}

func TestBoundaries_JSONShapes(t *testing.T) {
	b, err := Boundaries(FormatJSON, nil)
	if err != nil {
		t.Fatalf("Boundaries: %v", err)
	}
	if string(b) != `{"boundaries":[]}` {
		t.Fatalf("body=%s", b)
	}

	b, err = Boundaries(FormatGeoJSON, []model.SuburbBoundary{open})
	if err != nil {
		t.Fatalf("Boundaries: %v", err)
	}
	var fc FeatureCollection
	if err := json.Unmarshal(b, &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 1 {
		t.Fatalf("fc=%+v", fc)
	}
}

func TestBoundary_NullWhenMissing(t *testing.T) {
	b, err := Boundary(FormatJSON, nil)
	if err != nil || string(b) != `{"boundary":null}` {
		t.Fatalf("body=%s err=%v", b, err)
	}
	b, err = Boundary(FormatGeoJSON, nil)
	if err != nil || string(b) != `null` {
		t.Fatalf("body=%s err=%v", b, err)
	}
	b, err = Boundary(FormatJSON, &open)
	if err != nil {
		t.Fatalf("Boundary: %v", err)
	}
	var got struct {
		Boundary model.SuburbBoundary `json:"boundary"`
	}
	if err := json.Unmarshal(b, &got); err != nil || got.Boundary.Name != "Bonnyrigg" {
		t.Fatalf("decoded=%+v err=%v", got, err)
	}
}
