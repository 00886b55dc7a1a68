package invalidation

import (
	"encoding/json"
	"testing"
	"time"
)

func mustTS() time.Time { return time.Date(2025, 10, 26, 12, 30, 45, 0, time.UTC) }

func TestEvent_Validate_AreaHappyPath(t *testing.T) {
	ev := Event{
		Version: 1, Kind: KindArea, TS: mustTS(),
		BBox: &BBox{MinLat: -33.9, MinLng: 150.85, MaxLat: -33.8, MaxLng: 150.95},
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestEvent_Validate_NameHappyPath(t *testing.T) {
	ev := Event{Version: 1, Kind: KindName, TS: mustTS(), Name: "Bonnyrigg"}
	if err := ev.Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestEvent_Validate_Rejects(t *testing.T) {
	bb := &BBox{MinLat: -33.9, MinLng: 150.85, MaxLat: -33.8, MaxLng: 150.95}
	cases := map[string]Event{
		"version":       {Version: 2, Kind: KindName, TS: mustTS(), Name: "x"},
		"no ts":         {Version: 1, Kind: KindName, Name: "x"},
		"kind":          {Version: 1, Kind: "layer", TS: mustTS()},
		"area no bbox":  {Version: 1, Kind: KindArea, TS: mustTS()},
		"area and name": {Version: 1, Kind: KindArea, TS: mustTS(), BBox: bb, Name: "x"},
		"name blank":    {Version: 1, Kind: KindName, TS: mustTS(), Name: "  "},
		"name and bbox": {Version: 1, Kind: KindName, TS: mustTS(), Name: "x", BBox: bb},
		"lat range":     {Version: 1, Kind: KindArea, TS: mustTS(), BBox: &BBox{MinLat: -95, MaxLat: 0}},
		"lng range":     {Version: 1, Kind: KindArea, TS: mustTS(), BBox: &BBox{MinLng: 0, MaxLng: 190}},
	}
	for name, ev := range cases {
		if err := ev.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestEvent_JSONFieldNames(t *testing.T) {
	raw := `{"version":1,"kind":"area","ts":"2025-10-26T12:30:45Z","bbox":{"min_lat":-33.9,"min_lng":150.85,"max_lat":-33.8,"max_lng":150.95}}`
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := ev.BBox.Model(); got.MinLat != -33.9 || got.MaxLng != 150.95 {
		t.Fatalf("bbox=%+v", got)
	}
}
