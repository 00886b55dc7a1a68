package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line is not json: %v\n%s", err, line)
		}
		out = append(out, rec)
	}
	return out
}

func TestSlogBridge_CarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Service: "boundary"}, &buf)
	l := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithComponent(ctx, "http")
	ctx = WithLookup(ctx, "name")
	ctx = WithCacheKey(ctx, "greenfield park-New South Wales")
	l.InfoContext(ctx, "lookup served", "outcome", "hit", "boundaries", 1)

	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("want 1 line, got %d: %s", len(recs), buf.String())
	}
	want := map[string]any{
		"msg":        "lookup served",
		"level":      "info",
		"service":    "boundary",
		"component":  "http",
		"request_id": "req-1",
		"lookup":     "name",
		"cache_key":  "greenfield park-New South Wales",
		"outcome":    "hit",
		"boundaries": float64(1),
	}
	for k, v := range want {
		if recs[0][k] != v {
			t.Fatalf("field %s=%v want %v\n%s", k, recs[0][k], v, buf.String())
		}
	}
	if _, ok := recs[0]["timestamp"]; !ok {
		t.Fatalf("missing timestamp field: %s", buf.String())
	}
}

func TestSlogBridge_LevelIsPerLogger(t *testing.T) {
	var warnBuf, debugBuf bytes.Buffer
	wz := Build(Config{Level: "warn"}, &warnBuf)
	dz := Build(Config{Level: "debug"}, &debugBuf)
	warn, debug := NewSlog(&wz), NewSlog(&dz)

	warn.Info("dropped")
	warn.Warn("kept")
	debug.Debug("also kept")

	if recs := decodeLines(t, &warnBuf); len(recs) != 1 || recs[0]["msg"] != "kept" || recs[0]["level"] != "warn" {
		t.Fatalf("warn logger wrote: %s", warnBuf.String())
	}
	if recs := decodeLines(t, &debugBuf); len(recs) != 1 || recs[0]["level"] != "debug" {
		t.Fatalf("debug logger wrote: %s", debugBuf.String())
	}
	if warn.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info must be disabled at warn")
	}
}

func TestSlogBridge_GroupsErrorsAndDurations(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "info"}, &buf)
	l := NewSlog(&zl).With("endpoint", "ep0").WithGroup("attempt")

	l.Warn("overpass attempt failed",
		"n", 2,
		"wait", 1500*time.Millisecond,
		"err", errors.New("status 429"),
		slog.Group("cache", "name", "area"))

	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("want 1 line, got %s", buf.String())
	}
	want := map[string]any{
		"endpoint":           "ep0",
		"attempt.n":          float64(2),
		"attempt.wait":       "1.5s",
		"attempt.err":        "status 429",
		"attempt.cache.name": "area",
	}
	for k, v := range want {
		if recs[0][k] != v {
			t.Fatalf("field %s=%v want %v\n%s", k, recs[0][k], v, buf.String())
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"debug": "debug", " WARN ": "warn", "warning": "warn", "error": "error", "": "info", "verbose": "info"}
	for in, want := range cases {
		if got := ParseLevel(in).String(); got != want {
			t.Fatalf("ParseLevel(%q)=%s want %s", in, got, want)
		}
	}
}

func TestWithRequestID_GeneratesWhenEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if id := fieldsFrom(ctx).requestID; len(id) != 16 {
		t.Fatalf("generated id=%q want 16 hex chars", id)
	}
}

func TestWithFields_DoNotLeakToParent(t *testing.T) {
	parent := WithLookup(context.Background(), "area")
	child := WithCacheKey(parent, "k")
	if fieldsFrom(parent).cacheKey != "" {
		t.Fatal("child value leaked into parent context")
	}
	if f := fieldsFrom(child); f.lookup != "area" || f.cacheKey != "k" {
		t.Fatalf("child fields=%+v", f)
	}
}
