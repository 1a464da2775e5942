package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// GeoCollector bundles Prometheus metrics for the geolocation service and
// provides helpers to wire them into HTTP handlers and the tile cache.
type GeoCollector struct {
	gatherer prometheus.Gatherer

	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	ObservationsAdded prometheus.Counter
	PositionCalcs     *prometheus.CounterVec
	Correlations      *prometheus.CounterVec
	ActiveTargets     prometheus.Gauge

	TileLookups       *prometheus.CounterVec
	TileFetchDuration prometheus.Histogram
	TileFetchFailures prometheus.Counter
}

// NewGeoCollector registers geolocation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
// Registration tolerates already-registered collectors of the same type so
// repeated construction in tests is safe.
func NewGeoCollector(reg prometheus.Registerer) (*GeoCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geo_http_requests_total",
		Help: "Total handled HTTP requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "code"})
	requests, err := registerCounterVec(reg, requests, "geo_http_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geo_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route"})
	durations, err = registerHistogramVec(reg, durations, "geo_http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	observations, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geo_observations_added_total",
		Help: "Total triangulation observations accepted.",
	}), "geo_observations_added_total")
	if err != nil {
		return nil, err
	}

	calcs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geo_position_calculations_total",
		Help: "Total position calculations, labeled by outcome (ok | insufficient | not_found).",
	}, []string{"outcome"})
	calcs, err = registerCounterVec(reg, calcs, "geo_position_calculations_total")
	if err != nil {
		return nil, err
	}

	correlations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geo_correlations_total",
		Help: "Total image correlations, labeled by acceptance (accepted | rejected).",
	}, []string{"accepted"})
	correlations, err = registerCounterVec(reg, correlations, "geo_correlations_total")
	if err != nil {
		return nil, err
	}

	targets, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geo_targets",
		Help: "Current number of tracked triangulation targets.",
	}), "geo_targets")
	if err != nil {
		return nil, err
	}

	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geo_tile_cache_lookups_total",
		Help: "Tile cache lookups, labeled by result (hit | stale | miss).",
	}, []string{"result"})
	lookups, err = registerCounterVec(reg, lookups, "geo_tile_cache_lookups_total")
	if err != nil {
		return nil, err
	}

	fetchDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "geo_tile_fetch_duration_seconds",
		Help:    "Satellite tile fetch latency in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}), "geo_tile_fetch_duration_seconds")
	if err != nil {
		return nil, err
	}

	fetchFailures, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geo_tile_fetch_failures_total",
		Help: "Total satellite tile fetches that failed or timed out.",
	}), "geo_tile_fetch_failures_total")
	if err != nil {
		return nil, err
	}

	return &GeoCollector{
		gatherer:          gatherer,
		HTTPRequests:      requests,
		HTTPDurations:     durations,
		ObservationsAdded: observations,
		PositionCalcs:     calcs,
		Correlations:      correlations,
		ActiveTargets:     targets,
		TileLookups:       lookups,
		TileFetchDuration: fetchDuration,
		TileFetchFailures: fetchFailures,
	}, nil
}

// Handler returns the Prometheus scrape handler for this collector's
// gatherer.
func (c *GeoCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one handled request.
func (c *GeoCollector) ObserveHTTP(route, method string, code int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(route, method, fmt.Sprintf("%d", code)).Inc()
	c.HTTPDurations.WithLabelValues(route).Observe(duration.Seconds())
}

// TileLookup implements tilecache.MetricsRecorder.
func (c *GeoCollector) TileLookup(result string) {
	c.TileLookups.WithLabelValues(result).Inc()
}

// TileFetch implements tilecache.MetricsRecorder.
func (c *GeoCollector) TileFetch(duration time.Duration, err error) {
	c.TileFetchDuration.Observe(duration.Seconds())
	if err != nil {
		c.TileFetchFailures.Inc()
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, ctr prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(ctr); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return ctr, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(g); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return g, nil
}
