package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveLane(t *testing.T) {
	m := New()
	m.ObserveLane("web_search", "brave", "available", false, false, false, 120)
	m.ObserveLane("web_search", "duckduckgo", "degraded", true, true, false, 300)
	m.ObserveLane("vector_search", "", "timeout", false, false, true, 2000)

	if got := testutil.ToFloat64(m.laneExecutions.WithLabelValues("web_search", "brave", "available", "false", "false", "false")); got != 1 {
		t.Errorf("keyed execution counter = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.laneExecutions.WithLabelValues("web_search", "duckduckgo", "degraded", "true", "true", "false")); got != 1 {
		t.Errorf("fallback execution counter = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.laneExecutions.WithLabelValues("vector_search", "none", "timeout", "false", "false", "true")); got != 1 {
		t.Errorf("timeout execution counter = %f, want 1 with provider defaulted to none", got)
	}
}

func TestObserveRetrieval(t *testing.T) {
	m := New()
	m.ObserveRetrieval("orchestrated_hybrid", 450)
	m.ObserveRetrieval("no_lanes_available", 2)

	if got := testutil.ToFloat64(m.retrievals.WithLabelValues("orchestrated_hybrid")); got != 1 {
		t.Errorf("retrievals{orchestrated_hybrid} = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.retrievals.WithLabelValues("no_lanes_available")); got != 1 {
		t.Errorf("retrievals{no_lanes_available} = %f, want 1", got)
	}
}

func TestSetBreakerState(t *testing.T) {
	m := New()
	m.SetBreakerState("brave", 2)

	if got := testutil.ToFloat64(m.breakerState.WithLabelValues("brave")); got != 2 {
		t.Errorf("breaker state gauge = %f, want 2", got)
	}
}

func TestObserveCacheLookup(t *testing.T) {
	m := New()
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)

	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")); got != 2 {
		t.Errorf("cache hits = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheLookups.WithLabelValues("miss")); got != 1 {
		t.Errorf("cache misses = %f, want 1", got)
	}
}

func TestHandlerServesScrapePage(t *testing.T) {
	m := New()
	m.ObserveRetrieval("orchestrated_hybrid", 100)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "fuse_retrieval_requests_total") {
		t.Error("scrape page missing fuse_retrieval_requests_total")
	}
}
