package observability

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of overpass calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 13),
		},
		[]string{"upstream"},
	)

	upstreamAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_attempts_total",
			Help: "Overpass attempts by endpoint and result (ok, rate_limited, failed).",
		},
		[]string{"upstream", "result"},
	)

	endpointRotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "endpoint_rotations_total",
			Help: "Rotation cursor advances by reason.",
		},
		[]string{"reason"},
	)

	boundaryLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boundary_lookups_total",
			Help: "Boundary lookups by kind (area, name) and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	cacheOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_op_total",
			Help: "Cache backend operations by result.",
		},
		[]string{"op", "result"},
	)

	redisOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Latency of redis operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	invalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boundary_invalidations_total",
			Help: "Invalidation events by kind and result (ok, skipped, error).",
		},
		[]string{"kind", "result"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "boundary_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		upstreamLatencySeconds,
		upstreamAttemptsTotal,
		endpointRotationsTotal,
		boundaryLookupsTotal,
		cacheOpTotal,
		redisOpDurationSeconds,
		invalidationsTotal,
		buildInfo,
	}
}

// Init registers the collectors with reg (the default registerer when nil).
// Registering twice with the same registry is a no-op.
func Init(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

// ObserveUpstream records one overpass attempt against endpoint.
func ObserveUpstream(endpoint, result string, durationSeconds float64) {
	u := UpstreamLabel(endpoint)
	upstreamAttemptsTotal.WithLabelValues(u, result).Inc()
	upstreamLatencySeconds.WithLabelValues(u).Observe(durationSeconds)
}

func IncRotation(reason string) {
	endpointRotationsTotal.WithLabelValues(reason).Inc()
}

func IncLookup(kind, outcome string) {
	boundaryLookupsTotal.WithLabelValues(kind, outcome).Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	cacheOpTotal.WithLabelValues(op, res).Inc()
	redisOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func IncInvalidation(kind, result string) {
	if kind == "" {
		kind = "unknown"
	}
	invalidationsTotal.WithLabelValues(kind, result).Inc()
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}

// UpstreamLabel reduces an endpoint URL to its host to bound label cardinality.
func UpstreamLabel(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
