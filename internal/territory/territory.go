// Package territory maps suburb boundaries onto H3 cells.
package territory

import (
	"errors"
	"fmt"
	"math"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
)

// ErrOpenRing is returned when a boundary has too few vertices to enclose an area.
var ErrOpenRing = errors.New("territory: boundary ring has < 3 distinct vertices")

// ErrTooManyCells is returned when a coverage would exceed the mapper's cell cap.
var ErrTooManyCells = errors.New("territory: coverage too large")

// DefaultMaxCells caps a single coverage. A suburb of a few square kilometres
// stays well under it through resolution 11.
const DefaultMaxCells = 100_000

type Mapper struct {
	maxCells int
}

type Option func(*Mapper)

// WithMaxCells caps the estimated number of cells one call may produce.
func WithMaxCells(n int) Option {
	return func(m *Mapper) {
		if n > 0 {
			m.maxCells = n
		}
	}
}

func New(opts ...Option) *Mapper {
	m := &Mapper{maxCells: DefaultMaxCells}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Mapper) MaxCells() int { return m.maxCells }

// CellsForBoundary returns the sorted, unique cells whose centers fall inside
// the boundary ring at resolution res.
func (m *Mapper) CellsForBoundary(b model.SuburbBoundary, res int) ([]string, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	loop := toLoop(b.Coordinates)
	if len(loop) < 3 {
		return nil, ErrOpenRing
	}
	if err := m.checkSize(loopBounds(loop), res); err != nil {
		return nil, err
	}
	return polyfill(loop, res)
}

// CellsForBBox covers the box at resolution res. An inverted box covers nothing.
func (m *Mapper) CellsForBBox(bb model.BBox, res int) ([]string, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if bb.MinLat >= bb.MaxLat || bb.MinLng >= bb.MaxLng {
		return []string{}, nil
	}
	if err := m.checkSize(bb, res); err != nil {
		return nil, err
	}
	loop := h3.GeoLoop{
		{Lat: bb.MinLat, Lng: bb.MinLng},
		{Lat: bb.MinLat, Lng: bb.MaxLng},
		{Lat: bb.MaxLat, Lng: bb.MaxLng},
		{Lat: bb.MaxLat, Lng: bb.MinLng},
	}
	return polyfill(loop, res)
}

// Parents rolls cells up to parentRes, sorted and de-duplicated.
func (m *Mapper) Parents(cells []string, parentRes int) ([]string, error) {
	if err := validateRes(parentRes); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(cells))
	out := make([]string, 0, len(cells))
	for _, s := range cells {
		var c h3.Cell
		if err := c.UnmarshalText([]byte(s)); err != nil {
			return nil, fmt.Errorf("parse cell: %w", err)
		}
		if !c.IsValid() {
			return nil, fmt.Errorf("invalid h3 cell %q", s)
		}
		if parentRes > c.Resolution() {
			return nil, fmt.Errorf("parent resolution %d must be <= cell resolution %d", parentRes, c.Resolution())
		}
		p := c
		if parentRes < c.Resolution() {
			var err error
			if p, err = c.Parent(parentRes); err != nil {
				return nil, fmt.Errorf("h3 parent: %w", err)
			}
		}
		ps := p.String()
		if _, ok := seen[ps]; ok {
			continue
		}
		seen[ps] = struct{}{}
		out = append(out, ps)
	}
	sort.Strings(out)
	return out, nil
}

// EstimateCells returns an upper-leaning estimate of the cells covering bb at
// res: the box area over the average hexagon area.
func EstimateCells(bb model.BBox, res int) (int, error) {
	hex, err := h3.HexagonAreaAvgKm2(res)
	if err != nil {
		return 0, fmt.Errorf("h3 hexagon area: %w", err)
	}
	const kmPerDegLat = 110.574
	midLat := (bb.MinLat + bb.MaxLat) / 2 * math.Pi / 180
	h := math.Abs(bb.MaxLat-bb.MinLat) * kmPerDegLat
	w := math.Abs(bb.MaxLng-bb.MinLng) * 111.320 * math.Cos(midLat)
	est := math.Ceil(h * w / hex)
	if est > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(est), nil
}

func (m *Mapper) checkSize(bb model.BBox, res int) error {
	n, err := EstimateCells(bb, res)
	if err != nil {
		return err
	}
	if n > m.maxCells {
		return fmt.Errorf("%w: about %d cells at res %d exceeds %d", ErrTooManyCells, n, res, m.maxCells)
	}
	return nil
}

func loopBounds(loop h3.GeoLoop) model.BBox {
	bb := model.BBox{MinLat: loop[0].Lat, MinLng: loop[0].Lng, MaxLat: loop[0].Lat, MaxLng: loop[0].Lng}
	for _, p := range loop[1:] {
		bb.MinLat = math.Min(bb.MinLat, p.Lat)
		bb.MaxLat = math.Max(bb.MaxLat, p.Lat)
		bb.MinLng = math.Min(bb.MinLng, p.Lng)
		bb.MaxLng = math.Max(bb.MaxLng, p.Lng)
	}
	return bb
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// toLoop drops the closing vertex when the ring repeats its first point.
func toLoop(coords []model.Coordinate) h3.GeoLoop {
	loop := make(h3.GeoLoop, 0, len(coords))
	for _, c := range coords {
		loop = append(loop, h3.LatLng{Lat: c.Latitude, Lng: c.Longitude})
	}
	if len(loop) >= 2 {
		first, last := loop[0], loop[len(loop)-1]
		if first.Lat == last.Lat && first.Lng == last.Lng {
			loop = loop[:len(loop)-1]
		}
	}
	return loop
}

func polyfill(outer h3.GeoLoop, res int) ([]string, error) {
	cells, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}
	seen := make(map[string]struct{}, len(cells))
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		s := c.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
