package config

import (
	"reflect"
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"INVALIDATION_ENABLED", "INVALIDATION_TOPIC", "KAFKA_GROUP_ID", "H3_MAX_CELLS", "OVERPASS_ENDPOINTS", "BOUNDARY_CACHE_TTL", "MIN_REQUEST_INTERVAL", "CACHE_BACKEND", "DEFAULT_REGION", "H3_RES"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	if !reflect.DeepEqual(cfg.Overpass.Endpoints, DefaultEndpoints) {
		t.Fatalf("endpoints=%v", cfg.Overpass.Endpoints)
	}
	if cfg.Cache.TTL != 5*time.Minute || cfg.Overpass.MinInterval != 3*time.Second {
		t.Fatalf("ttl=%s interval=%s", cfg.Cache.TTL, cfg.Overpass.MinInterval)
	}
	if cfg.Overpass.DefaultRegion != "New South Wales" {
		t.Fatalf("region=%q", cfg.Overpass.DefaultRegion)
	}
	if cfg.Cache.Backend != CacheBackendMemory || cfg.H3Res != 8 {
		t.Fatalf("backend=%q res=%d", cfg.Cache.Backend, cfg.H3Res)
	}
	if cfg.Overpass.AttemptTimeout != 30*time.Second {
		t.Fatalf("attempt timeout=%s", cfg.Overpass.AttemptTimeout)
	}
	if cfg.H3MaxCells != 100_000 {
		t.Fatalf("max cells=%d", cfg.H3MaxCells)
	}
	if cfg.Invalidation.Enabled || cfg.Invalidation.Topic != "boundary-invalidation" || cfg.Invalidation.GroupID != "boundary-invalidator" {
		t.Fatalf("invalidation=%+v", cfg.Invalidation)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("OVERPASS_ENDPOINTS", " https://a.example/api/interpreter ,, https://b.example/api/interpreter")
	t.Setenv("BOUNDARY_CACHE_TTL", "90s")
	t.Setenv("MIN_REQUEST_INTERVAL", "500ms")
	t.Setenv("CACHE_BACKEND", "REDIS")
	t.Setenv("EVENTS_ENABLED", "yes")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("H3_RES", "10")
	t.Setenv("H3_MAX_CELLS", "5000")

	cfg := FromEnv()
	want := []string{"https://a.example/api/interpreter", "https://b.example/api/interpreter"}
	if !reflect.DeepEqual(cfg.Overpass.Endpoints, want) {
		t.Fatalf("endpoints=%v", cfg.Overpass.Endpoints)
	}
	if cfg.Cache.TTL != 90*time.Second || cfg.Overpass.MinInterval != 500*time.Millisecond {
		t.Fatalf("ttl=%s interval=%s", cfg.Cache.TTL, cfg.Overpass.MinInterval)
	}
	if cfg.Cache.Backend != CacheBackendRedis {
		t.Fatalf("backend=%q", cfg.Cache.Backend)
	}
	if !cfg.Events.Enabled || len(cfg.Events.Brokers) != 2 {
		t.Fatalf("events=%+v", cfg.Events)
	}
	if cfg.H3Res != 10 || cfg.H3MaxCells != 5000 {
		t.Fatalf("res=%d max cells=%d", cfg.H3Res, cfg.H3MaxCells)
	}
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("BOUNDARY_CACHE_TTL", "soon")
	t.Setenv("H3_RES", "42")
	t.Setenv("CACHE_BACKEND", "memcached")
	t.Setenv("METRICS_ENABLED", "maybe")

	cfg := FromEnv()
	if cfg.Cache.TTL != 5*time.Minute {
		t.Fatalf("ttl=%s", cfg.Cache.TTL)
	}
	if cfg.H3Res != 8 {
		t.Fatalf("res=%d", cfg.H3Res)
	}
	if cfg.Cache.Backend != CacheBackendMemory {
		t.Fatalf("backend=%q", cfg.Cache.Backend)
	}
	if !cfg.MetricsEnabled {
		t.Fatal("metrics should stay enabled on unparsable value")
	}
}
