// Package invalidation describes events that drop cached boundaries after
// upstream map edits.
package invalidation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
)

const (
	KindArea = "area"
	KindName = "name"
)

type Event struct {
	Version int       `json:"version"`
	Kind    string    `json:"kind"`
	TS      time.Time `json:"ts"`
	Source  string    `json:"source,omitempty"`
	Name    string    `json:"name,omitempty"`
	Region  string    `json:"region,omitempty"`
	BBox    *BBox     `json:"bbox,omitempty"`
}

type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

func (b BBox) Model() model.BBox {
	return model.BBox{MinLat: b.MinLat, MinLng: b.MinLng, MaxLat: b.MaxLat, MaxLng: b.MaxLng}
}

// Validate checks the event shape. Region may be empty on name events; the
// resolver's default region applies.
func (e Event) Validate() error {
	if e.Version != 1 {
		return errors.New("version must be 1")
	}
	if e.TS.IsZero() {
		return errors.New("ts is required")
	}
	switch e.Kind {
	case KindArea:
		if e.BBox == nil {
			return errors.New("area events require bbox")
		}
		if e.Name != "" {
			return errors.New("area events must not carry a name")
		}
		bb := *e.BBox
		if !(bb.MinLat >= -90 && bb.MinLat <= 90 && bb.MaxLat >= -90 && bb.MaxLat <= 90) {
			return errors.New("bbox latitude out of range")
		}
		if !(bb.MinLng >= -180 && bb.MinLng <= 180 && bb.MaxLng >= -180 && bb.MaxLng <= 180) {
			return errors.New("bbox longitude out of range")
		}
		return nil
	case KindName:
		if strings.TrimSpace(e.Name) == "" {
			return errors.New("name events require name")
		}
		if e.BBox != nil {
			return errors.New("name events must not carry a bbox")
		}
		return nil
	default:
		return fmt.Errorf("kind must be %s|%s", KindArea, KindName)
	}
}
