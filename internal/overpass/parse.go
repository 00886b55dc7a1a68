package overpass

import (
	"encoding/json"
	"fmt"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
	"github.com/mohammed-shakir/suburb-boundaries/internal/ring"
)

const (
	elementRelation = "relation"
	memberWay       = "way"
	roleOuter       = "outer"
)

// Response is the subset of an `out geom` JSON answer the resolver consumes.
type Response struct {
	Elements []Element `json:"elements"`
}

type Element struct {
	Type    string            `json:"type"`
	ID      int64             `json:"id"`
	Tags    map[string]string `json:"tags,omitempty"`
	Members []Member          `json:"members,omitempty"`
}

type Member struct {
	Type     string    `json:"type"`
	Ref      int64     `json:"ref"`
	Role     string    `json:"role"`
	Geometry []*LatLon `json:"geometry,omitempty"`
}

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ParseRelations decodes body and assembles one boundary per named relation.
// Unnamed relations, relations without usable outer ways, and relations whose
// ring comes out empty are skipped.
func ParseRelations(body []byte) ([]model.SuburbBoundary, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}
	return Boundaries(resp.Elements), nil
}

func Boundaries(elements []Element) []model.SuburbBoundary {
	out := make([]model.SuburbBoundary, 0)
	for _, el := range elements {
		if el.Type != elementRelation {
			continue
		}
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		segs := OuterSegments(el)
		if len(segs) == 0 {
			continue
		}
		coords := ring.JoinSegments(segs)
		if len(coords) == 0 {
			continue
		}
		out = append(out, model.SuburbBoundary{Name: name, Coordinates: coords})
	}
	return out
}

// OuterSegments extracts the inline geometry of the relation's outer ways.
func OuterSegments(el Element) [][]model.Coordinate {
	var segs [][]model.Coordinate
	for _, m := range el.Members {
		if m.Type != memberWay || m.Role != roleOuter || len(m.Geometry) == 0 {
			continue
		}
		seg := make([]model.Coordinate, 0, len(m.Geometry))
		for _, p := range m.Geometry {
			// nodes missing from the server's extract come back as null
			if p == nil {
				continue
			}
			seg = append(seg, model.Coordinate{Latitude: p.Lat, Longitude: p.Lon})
		}
		if len(seg) > 0 {
			segs = append(segs, seg)
		}
	}
	return segs
}
