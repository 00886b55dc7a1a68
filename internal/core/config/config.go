package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultEndpoints are the interchangeable public Overpass mirrors, in rotation order.
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
}

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type LogCfg struct {
	Level   string
	Console bool
	SampleN int
}

type OverpassCfg struct {
	Endpoints      []string
	UserAgent      string
	AttemptTimeout time.Duration
	MinInterval    time.Duration
	DefaultRegion  string
}

type CacheCfg struct {
	Backend        string
	TTL            time.Duration
	MaxEntries     int
	StaleRetention time.Duration
	OpTimeout      time.Duration
	RedisAddr      string
}

type EventsCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	Queue   int
}

// InvalidationCfg drives the Kafka consumer that drops cached boundaries.
// It shares the brokers of EventsCfg.
type InvalidationCfg struct {
	Enabled bool
	Topic   string
	GroupID string
}

type Config struct {
	Addr           string
	Log            LogCfg
	Overpass       OverpassCfg
	Cache          CacheCfg
	Events         EventsCfg
	Invalidation   InvalidationCfg
	H3Res          int
	H3MaxCells     int
	MetricsEnabled bool
}

func FromEnv() Config {
	res := getint("H3_RES", 8)
	if res < 0 || res > 15 {
		res = 8
	}

	backend := strings.ToLower(getenv("CACHE_BACKEND", CacheBackendMemory))
	if backend != CacheBackendRedis {
		backend = CacheBackendMemory
	}

	endpoints := parseList(getenv("OVERPASS_ENDPOINTS", ""))
	if len(endpoints) == 0 {
		endpoints = append([]string(nil), DefaultEndpoints...)
	}

	return Config{
		Addr: getenv("ADDR", ":8090"),
		Log: LogCfg{
			Level:   getenv("LOG_LEVEL", "info"),
			Console: getbool("LOG_CONSOLE", false),
			SampleN: getint("LOG_SAMPLE_N", 0),
		},
		Overpass: OverpassCfg{
			Endpoints:      endpoints,
			UserAgent:      getenv("OVERPASS_USER_AGENT", "suburb-boundaries/1.0"),
			AttemptTimeout: getduration("OVERPASS_ATTEMPT_TIMEOUT", 30*time.Second),
			MinInterval:    getduration("MIN_REQUEST_INTERVAL", 3*time.Second),
			DefaultRegion:  getenv("DEFAULT_REGION", "New South Wales"),
		},
		Cache: CacheCfg{
			Backend:        backend,
			TTL:            getduration("BOUNDARY_CACHE_TTL", 5*time.Minute),
			MaxEntries:     getint("CACHE_MAX_ENTRIES", 1024),
			StaleRetention: getduration("CACHE_STALE_RETENTION", 24*time.Hour),
			OpTimeout:      getduration("CACHE_OP_TIMEOUT", 250*time.Millisecond),
			RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		},
		Events: EventsCfg{
			Enabled: getbool("EVENTS_ENABLED", false),
			Brokers: parseList(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("KAFKA_TOPIC", "boundary-resolutions"),
			Queue:   getint("EVENTS_QUEUE", 1024),
		},
		Invalidation: InvalidationCfg{
			Enabled: getbool("INVALIDATION_ENABLED", false),
			Topic:   getenv("INVALIDATION_TOPIC", "boundary-invalidation"),
			GroupID: getenv("KAFKA_GROUP_ID", "boundary-invalidator"),
		},
		H3Res:          res,
		H3MaxCells:     getint("H3_MAX_CELLS", 100_000),
		MetricsEnabled: getbool("METRICS_ENABLED", true),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "a, b,,c" into [a b c]
func parseList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
