// Package api exposes the geolocation engines over HTTP for the surrounding
// web layer. Routes mirror the /api/geo surface of the original service.
package api

import (
	"net/http"

	"github.com/signalsfoundry/drone-geolocator/core"
	"github.com/signalsfoundry/drone-geolocator/geoindex"
	"github.com/signalsfoundry/drone-geolocator/internal/logging"
	"github.com/signalsfoundry/drone-geolocator/internal/observability"
)

// Server routes HTTP requests to the triangulation and correlation engines.
type Server struct {
	triangulation *core.TriangulationEngine
	correlation   *core.CorrelationEngine
	index         *geoindex.Index

	log       logging.Logger
	collector *observability.GeoCollector

	mux *http.ServeMux
}

// NewServer wires the handlers. The collector may be nil (no metrics); the
// logger may be nil (no logs).
func NewServer(
	triangulation *core.TriangulationEngine,
	correlation *core.CorrelationEngine,
	index *geoindex.Index,
	log logging.Logger,
	collector *observability.GeoCollector,
) *Server {
	if log == nil {
		log = logging.Noop()
	}
	s := &Server{
		triangulation: triangulation,
		correlation:   correlation,
		index:         index,
		log:           log,
		collector:     collector,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("POST /api/geo/target/create", "target_create", s.handleCreateTarget)
	s.handle("POST /api/geo/observation/add", "observation_add", s.handleAddObservation)
	s.handle("POST /api/geo/position/calculate", "position_calculate", s.handleCalculatePosition)
	s.handle("POST /api/geo/target/reset", "target_reset", s.handleResetTarget)
	s.handle("POST /api/geo/target/resolve", "target_resolve", s.handleResolveTarget)
	s.handle("GET /api/geo/targets", "targets_list", s.handleListTargets)
	s.handle("GET /api/geo/targets/nearby", "targets_nearby", s.handleNearbyTargets)
	s.handle("POST /api/geo/correlate", "correlate", s.handleCorrelate)
	s.handle("GET /healthz", "healthz", s.handleHealth)
}

func (s *Server) handle(pattern, route string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.instrument(route, h))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
