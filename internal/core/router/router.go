// Package router holds the HTTP handlers of the boundary API.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/suburb-boundaries/internal/composer"
	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
	"github.com/mohammed-shakir/suburb-boundaries/internal/territory"
)

// Resolver serves boundary lookups. Implementations never fail; an empty or
// nil result means no boundary is available.
type Resolver interface {
	ResolveArea(ctx context.Context, bb model.BBox) []model.SuburbBoundary
	ResolveByName(ctx context.Context, name, region string) *model.SuburbBoundary
}

type CellMapper interface {
	CellsForBoundary(b model.SuburbBoundary, res int) ([]string, error)
	CellsForBBox(bb model.BBox, res int) ([]string, error)
	Parents(cells []string, parentRes int) ([]string, error)
}

// HandleBoundaries serves GET /boundaries?bbox=... or ?center=...&delta=...
func HandleBoundaries(logger *slog.Logger, res Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bb, err := ParseAreaRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		neg := composer.NegotiateFormat(r.Header.Get("Accept"), r.URL.Query().Get("format"))
		found := res.ResolveArea(r.Context(), bb)

		body, err := composer.Boundaries(neg.Format, found)
		if err != nil {
			logger.ErrorContext(r.Context(), "render boundaries", "err", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeBody(w, neg.ContentType, body)
	}
}

// HandleSuburb serves GET /suburbs/{name}?region=...
func HandleSuburb(logger *slog.Logger, res Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, region, err := parseNameRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		neg := composer.NegotiateFormat(r.Header.Get("Accept"), r.URL.Query().Get("format"))
		b := res.ResolveByName(r.Context(), name, region)

		body, err := composer.Boundary(neg.Format, b)
		if err != nil {
			logger.ErrorContext(r.Context(), "render boundary", "err", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		writeBody(w, neg.ContentType, body)
	}
}

// CellsResponse is the H3 coverage of a suburb or of a map area.
type CellsResponse struct {
	Name  string   `json:"name,omitempty"`
	BBox  string   `json:"bbox,omitempty"`
	Res   int      `json:"res"`
	Cells []string `json:"cells"`
}

// SuburbCoverage returns the cells of b at res, rolled up to parent when
// parent >= 0. A ring too short to enclose an area covers nothing; a coverage
// over the mapper's cap fails with territory.ErrTooManyCells.
func SuburbCoverage(mapper CellMapper, b model.SuburbBoundary, res, parent int) (CellsResponse, error) {
	out := CellsResponse{Name: b.Name, Res: res, Cells: []string{}}
	cells, err := mapper.CellsForBoundary(b, res)
	switch {
	case errors.Is(err, territory.ErrOpenRing):
		return out, nil
	case err != nil:
		return out, err
	}
	return rollUp(mapper, out, cells, parent)
}

// AreaCoverage returns the cells covering bb at res, rolled up like SuburbCoverage.
func AreaCoverage(mapper CellMapper, bb model.BBox, res, parent int) (CellsResponse, error) {
	out := CellsResponse{BBox: bb.String(), Res: res, Cells: []string{}}
	cells, err := mapper.CellsForBBox(bb, res)
	if err != nil {
		return out, err
	}
	return rollUp(mapper, out, cells, parent)
}

func rollUp(mapper CellMapper, out CellsResponse, cells []string, parent int) (CellsResponse, error) {
	if parent >= 0 && parent < out.Res && len(cells) > 0 {
		var err error
		if cells, err = mapper.Parents(cells, parent); err != nil {
			return out, fmt.Errorf("roll up cells: %w", err)
		}
		out.Res = parent
	}
	if cells != nil {
		out.Cells = cells
	}
	return out, nil
}

// HandleSuburbCells serves GET /suburbs/{name}/cells?region=...&res=N[&parent=M]
// with the H3 coverage of the resolved boundary.
func HandleSuburbCells(logger *slog.Logger, res Resolver, mapper CellMapper, defaultRes int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, region, err := parseNameRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h3res, parent, err := parseCellParams(r, defaultRes)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		out := CellsResponse{Name: name, Res: h3res, Cells: []string{}}
		if b := res.ResolveByName(r.Context(), name, region); b != nil {
			if out, err = SuburbCoverage(mapper, *b, h3res, parent); err != nil {
				writeCoverageError(w, r, logger, err)
				return
			}
		}
		writeJSON(w, out)
	}
}

// HandleBoundaryCells serves GET /boundaries/cells with the same area
// parameters as /boundaries plus res and parent.
func HandleBoundaryCells(logger *slog.Logger, mapper CellMapper, defaultRes int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bb, err := ParseAreaRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h3res, parent, err := parseCellParams(r, defaultRes)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out, err := AreaCoverage(mapper, bb, h3res, parent)
		if err != nil {
			writeCoverageError(w, r, logger, err)
			return
		}
		writeJSON(w, out)
	}
}

func parseCellParams(r *http.Request, defaultRes int) (res, parent int, err error) {
	res, err = parseRes(r.URL.Query().Get("res"), defaultRes)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid res: %w", err)
	}
	parent = -1
	if raw := strings.TrimSpace(r.URL.Query().Get("parent")); raw != "" {
		if parent, err = parseRes(raw, 0); err != nil || parent > res {
			return 0, 0, errors.New("invalid parent: must be an H3 resolution <= res")
		}
	}
	return res, parent, nil
}

func writeCoverageError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if errors.Is(err, territory.ErrTooManyCells) {
		http.Error(w, err.Error()+"; use a coarser res", http.StatusBadRequest)
		return
	}
	logger.ErrorContext(r.Context(), "cell coverage failed", "err", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeBody(w, "application/json", body)
}

func writeBody(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// ParseAreaRequest reads either bbox=minLat,minLng,maxLat,maxLng or a map
// viewport center=lat,lng&delta=latDelta,lngDelta. An inverted box is passed
// through; it simply matches nothing.
func ParseAreaRequest(r *http.Request) (model.BBox, error) {
	q := r.URL.Query()
	rawBBox := strings.TrimSpace(q.Get("bbox"))
	rawCenter := strings.TrimSpace(q.Get("center"))
	rawDelta := strings.TrimSpace(q.Get("delta"))

	switch {
	case rawBBox != "":
		bb, err := ParseBBox(rawBBox)
		if err != nil {
			return model.BBox{}, fmt.Errorf("invalid bbox: %w", err)
		}
		return bb, nil
	case rawCenter != "" || rawDelta != "":
		if rawCenter == "" || rawDelta == "" {
			return model.BBox{}, errors.New("center and delta must be given together")
		}
		lat, lng, err := parsePair(rawCenter)
		if err != nil {
			return model.BBox{}, fmt.Errorf("invalid center: %w", err)
		}
		if err := checkLatLng(lat, lng); err != nil {
			return model.BBox{}, fmt.Errorf("invalid center: %w", err)
		}
		dLat, dLng, err := parsePair(rawDelta)
		if err != nil {
			return model.BBox{}, fmt.Errorf("invalid delta: %w", err)
		}
		return model.MapRegion{Latitude: lat, Longitude: lng, LatitudeDelta: dLat, LongitudeDelta: dLng}.BBox(), nil
	default:
		return model.BBox{}, errors.New("missing required parameter: bbox (or center and delta)")
	}
}

func parseNameRequest(r *http.Request) (name, region string, err error) {
	name = strings.TrimSpace(chi.URLParam(r, "name"))
	if name == "" {
		return "", "", errors.New("missing suburb name")
	}
	if len(name) > 200 {
		return "", "", errors.New("suburb name too long")
	}
	return name, strings.TrimSpace(r.URL.Query().Get("region")), nil
}

// ParseBBox reads minLat,minLng,maxLat,maxLng. Values must be finite and in
// range; an inverted box is allowed.
func ParseBBox(s string) (model.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return model.BBox{}, errors.New("expected 4 comma-separated values: minLat,minLng,maxLat,maxLng")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := parseFloat(p)
		if err != nil {
			return model.BBox{}, fmt.Errorf("value %d: %w", i+1, err)
		}
		v[i] = f
	}
	if err := checkLatLng(v[0], v[1]); err != nil {
		return model.BBox{}, err
	}
	if err := checkLatLng(v[2], v[3]); err != nil {
		return model.BBox{}, err
	}
	return model.BBox{MinLat: v[0], MinLng: v[1], MaxLat: v[2], MaxLng: v[3]}, nil
}

func parsePair(s string) (float64, float64, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, errors.New("expected 2 comma-separated values")
	}
	x, err := parseFloat(a)
	if err != nil {
		return 0, 0, err
	}
	y, err := parseFloat(b)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func checkLatLng(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return errors.New("latitude must be in [-90,90]")
	}
	if lng < -180 || lng > 180 {
		return errors.New("longitude must be in [-180,180]")
	}
	return nil
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("parse float: not a finite number")
	}
	return f, nil
}

func parseRes(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse int: %w", err)
	}
	if n < 0 || n > 15 {
		return 0, errors.New("must be 0..15")
	}
	return n, nil
}
