package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Init(reg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := Init(reg); err != nil {
		t.Fatalf("second Init must be a no-op: %v", err)
	}

	ExposeBuildInfo("test")
	ObserveHTTP("GET", "/boundaries", 200, 0.001)
	ObserveUpstream("https://overpass-api.de/api/interpreter", "rate_limited", 0.2)
	IncRotation("rate_limited")
	IncLookup("name", "fetched")
	IncInvalidation("", "skipped")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		`boundary_build_info{version="test"} 1`,
		`http_requests_total{method="GET",route="/boundaries",status="200"}`,
		`upstream_attempts_total{result="rate_limited",upstream="overpass-api.de"}`,
		`endpoint_rotations_total{reason="rate_limited"}`,
		`boundary_lookups_total{kind="name",outcome="fetched"}`,
		`boundary_invalidations_total{kind="unknown",result="skipped"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics payload missing %q; got:\n%s", want, body)
		}
	}
}

func TestUpstreamLabel(t *testing.T) {
	if got := UpstreamLabel("https://overpass.kumi.systems/api/interpreter"); got != "overpass.kumi.systems" {
		t.Fatalf("label=%q", got)
	}
	if got := UpstreamLabel("::bad"); got != "unknown" {
		t.Fatalf("label=%q want unknown", got)
	}
}
