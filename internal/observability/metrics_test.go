package observability

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestObserveHTTPRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewGeoCollector(reg)
	if err != nil {
		t.Fatalf("NewGeoCollector: %v", err)
	}

	collector.ObserveHTTP("position_calculate", http.MethodPost, http.StatusOK, 12*time.Millisecond)
	collector.ObserveHTTP("position_calculate", http.MethodPost, http.StatusOK, 7*time.Millisecond)
	collector.ObserveHTTP("position_calculate", http.MethodPost, http.StatusNotFound, 3*time.Millisecond)

	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("position_calculate", "POST", "200")); got != 2 {
		t.Fatalf("geo_http_requests_total{code=200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.HTTPRequests.WithLabelValues("position_calculate", "POST", "404")); got != 1 {
		t.Fatalf("geo_http_requests_total{code=404} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "geo_http_request_duration_seconds", map[string]string{
		"route": "position_calculate",
	}); count != 3 {
		t.Fatalf("geo_http_request_duration_seconds sample_count = %d, want 3", count)
	}
}

func TestTileCacheRecorderMethods(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewGeoCollector(reg)
	if err != nil {
		t.Fatalf("NewGeoCollector: %v", err)
	}

	collector.TileLookup("miss")
	collector.TileLookup("hit")
	collector.TileLookup("hit")
	collector.TileFetch(200*time.Millisecond, nil)
	collector.TileFetch(5*time.Second, fmt.Errorf("deadline exceeded"))

	if got := testutil.ToFloat64(collector.TileLookups.WithLabelValues("hit")); got != 2 {
		t.Fatalf("geo_tile_cache_lookups_total{result=hit} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.TileFetchFailures); got != 1 {
		t.Fatalf("geo_tile_fetch_failures_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "geo_tile_fetch_duration_seconds", nil); count != 2 {
		t.Fatalf("geo_tile_fetch_duration_seconds sample_count = %d, want 2", count)
	}
}

func TestMetricsHandlerExposesGeoSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewGeoCollector(reg)
	if err != nil {
		t.Fatalf("NewGeoCollector: %v", err)
	}
	collector.ObservationsAdded.Inc()
	collector.PositionCalcs.WithLabelValues("ok").Inc()
	collector.Correlations.WithLabelValues("true").Inc()
	collector.ActiveTargets.Set(7)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"geo_observations_added_total",
		"geo_position_calculations_total",
		"geo_correlations_total",
		"geo_targets 7",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
}

func TestNewGeoCollectorTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewGeoCollector(reg)
	if err != nil {
		t.Fatalf("first NewGeoCollector: %v", err)
	}
	second, err := NewGeoCollector(reg)
	if err != nil {
		t.Fatalf("second NewGeoCollector: %v", err)
	}

	first.ObservationsAdded.Inc()
	second.ObservationsAdded.Inc()
	if got := testutil.ToFloat64(first.ObservationsAdded); got != 2 {
		t.Fatalf("shared counter = %v, want 2 after increments through both handles", got)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
