package core

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/drone-geolocator/internal/logging"
	"github.com/signalsfoundry/drone-geolocator/model"
)

// TriangulationConfig carries the tunable constants of the position solver.
// The distance defaults are inherited from the field prototype and have no
// derivation from sensor physics; they are configuration precisely so that
// deployments can replace them.
type TriangulationConfig struct {
	// DefaultDistanceM is assumed when an observation's elevation angle is at
	// or below the horizon, where altitude/sin(elevation) yields no usable
	// slant range.
	DefaultDistanceM float64
	// MaxDistanceM caps the slant-range estimate for shallow elevation angles.
	MaxDistanceM float64
	// SpreadScaleM is the spread (metres) at which the precision confidence
	// is halved. See precisionConfidence.
	SpreadScaleM float64
}

// DefaultTriangulationConfig returns the prototype constants: 1 km fallback
// distance, 10 km cap, 250 m confidence half-spread.
func DefaultTriangulationConfig() TriangulationConfig {
	return TriangulationConfig{
		DefaultDistanceM: 1000,
		MaxDistanceM:     10000,
		SpreadScaleM:     250,
	}
}

type targetState struct {
	status       model.TargetStatus
	observations []model.Observation
}

// TriangulationEngine estimates ground target positions from bearing and
// elevation observations taken by a moving drone. It owns the target map;
// all access goes through its methods and is safe for concurrent use.
type TriangulationEngine struct {
	mu      sync.RWMutex
	targets map[string]*targetState

	cfg TriangulationConfig
	log logging.Logger
	now func() time.Time
}

// NewTriangulationEngine constructs an engine with the given config. A zero
// config field falls back to its default. A nil logger is replaced by a noop.
func NewTriangulationEngine(cfg TriangulationConfig, log logging.Logger) *TriangulationEngine {
	def := DefaultTriangulationConfig()
	if cfg.DefaultDistanceM <= 0 {
		cfg.DefaultDistanceM = def.DefaultDistanceM
	}
	if cfg.MaxDistanceM <= 0 {
		cfg.MaxDistanceM = def.MaxDistanceM
	}
	if cfg.SpreadScaleM <= 0 {
		cfg.SpreadScaleM = def.SpreadScaleM
	}
	if log == nil {
		log = logging.Noop()
	}
	return &TriangulationEngine{
		targets: make(map[string]*targetState),
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// CreateTarget registers a fresh target with no observations and returns its
// generated ID.
func (e *TriangulationEngine) CreateTarget() string {
	id := "target-" + uuid.NewString()[:8]

	e.mu.Lock()
	e.targets[id] = &targetState{status: model.TargetActive}
	e.mu.Unlock()

	return id
}

// AddObservation appends a sighting to the target, creating the target on
// first reference. The bearing is normalized into [0,360) and the confidence
// clamped into [0,1] before storage. It returns the observation ID.
func (e *TriangulationEngine) AddObservation(targetID string, drone model.Position, bearingDeg, elevationDeg, confidence float64) string {
	obs := model.Observation{
		ID:           uuid.NewString(),
		TargetID:     targetID,
		Drone:        drone,
		BearingDeg:   NormalizeBearing(bearingDeg),
		ElevationDeg: elevationDeg,
		Confidence:   Clamp01(confidence),
		CreatedAt:    e.now(),
	}

	e.mu.Lock()
	ts, ok := e.targets[targetID]
	if !ok {
		ts = &targetState{status: model.TargetActive}
		e.targets[targetID] = ts
	}
	ts.observations = append(ts.observations, obs)
	count := len(ts.observations)
	e.mu.Unlock()

	e.log.Debug(context.Background(), "observation added",
		logging.String("target_id", targetID),
		logging.String("observation_id", obs.ID),
		logging.Int("observations", count),
	)
	return obs.ID
}

// CalculatePosition triangulates the target from its observations. It needs
// at least two; with fewer it returns ErrInsufficientObservations. The call
// never mutates the target, so repeated calls with the same observations are
// deterministic.
func (e *TriangulationEngine) CalculatePosition(targetID string) (model.EstimatedPosition, error) {
	e.mu.RLock()
	ts, ok := e.targets[targetID]
	var observations []model.Observation
	if ok {
		observations = append(observations, ts.observations...)
	}
	e.mu.RUnlock()

	if !ok {
		return model.EstimatedPosition{}, fmt.Errorf("target %q: %w", targetID, ErrTargetNotFound)
	}
	if len(observations) < 2 {
		return model.EstimatedPosition{}, fmt.Errorf("target %q has %d observations: %w",
			targetID, len(observations), ErrInsufficientObservations)
	}

	lats := make([]float64, len(observations))
	lons := make([]float64, len(observations))
	weights := make([]float64, len(observations))
	for i, obs := range observations {
		d := e.estimateDistance(obs.Drone.AltitudeM, obs.ElevationDeg)
		lats[i], lons[i] = ProjectPoint(obs.Drone.Latitude, obs.Drone.Longitude, obs.BearingDeg, d)
		weights[i] = obs.Confidence
	}

	lat, lon := weightedCentroid(lats, lons, weights)
	stdDev := rmsSpreadM(lats, lons, lat, lon)

	est := model.EstimatedPosition{
		Latitude:  lat,
		Longitude: lon,
		Precision: model.Precision{
			StdDevM:          stdDev,
			ConfidencePct:    precisionConfidence(stdDev, len(observations), e.cfg.SpreadScaleM),
			ObservationCount: len(observations),
		},
	}

	e.log.Info(context.Background(), "position calculated",
		logging.String("target_id", targetID),
		logging.Float64("latitude", est.Latitude),
		logging.Float64("longitude", est.Longitude),
		logging.Float64("std_dev_m", est.Precision.StdDevM),
		logging.Int("observations", len(observations)),
	)
	return est, nil
}

// ResetTarget clears all observations of the target, returning it to an
// empty active state for re-use. It reports false for unknown targets.
func (e *TriangulationEngine) ResetTarget(targetID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ts, ok := e.targets[targetID]
	if !ok {
		return false
	}
	ts.observations = nil
	ts.status = model.TargetActive
	return true
}

// MarkResolved flips the target status to resolved, e.g. after its estimate
// has been confirmed. It reports false for unknown targets.
func (e *TriangulationEngine) MarkResolved(targetID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ts, ok := e.targets[targetID]
	if !ok {
		return false
	}
	ts.status = model.TargetResolved
	return true
}

// ListTargets returns the IDs of all known targets, in unspecified order.
func (e *TriangulationEngine) ListTargets() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.targets))
	for id := range e.targets {
		ids = append(ids, id)
	}
	return ids
}

// Targets returns a snapshot of every known target, in unspecified order.
// Observations are copied, so callers may hold the result across later
// mutations.
func (e *TriangulationEngine) Targets() []model.Target {
	e.mu.RLock()
	defer e.mu.RUnlock()

	targets := make([]model.Target, 0, len(e.targets))
	for id, ts := range e.targets {
		targets = append(targets, model.Target{
			ID:           id,
			Status:       ts.status,
			Observations: append([]model.Observation(nil), ts.observations...),
		})
	}
	return targets
}

// Target returns a snapshot of a single target.
func (e *TriangulationEngine) Target(targetID string) (model.Target, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ts, ok := e.targets[targetID]
	if !ok {
		return model.Target{}, false
	}
	return model.Target{
		ID:           targetID,
		Status:       ts.status,
		Observations: append([]model.Observation(nil), ts.observations...),
	}, true
}

// estimateDistance derives a slant-range estimate from altitude and the
// elevation angle. Elevation at or below the horizon yields no usable
// estimate, so the configured fallback distance is used; steep trigonometric
// results are capped at the configured maximum.
func (e *TriangulationEngine) estimateDistance(altitudeM, elevationDeg float64) float64 {
	if elevationDeg <= 0 {
		return e.cfg.DefaultDistanceM
	}
	d := altitudeM / math.Sin(radians(elevationDeg))
	return math.Min(d, e.cfg.MaxDistanceM)
}

// weightedCentroid computes the confidence-weighted mean of candidate
// points. A zero weight sum falls back to the unweighted arithmetic mean so
// the division is always defined.
func weightedCentroid(lats, lons, weights []float64) (float64, float64) {
	var sumW float64
	for _, w := range weights {
		sumW += w
	}
	if sumW == 0 {
		for i := range weights {
			weights[i] = 1
		}
		sumW = float64(len(weights))
	}

	var lat, lon float64
	for i := range lats {
		lat += weights[i] * lats[i]
		lon += weights[i] * lons[i]
	}
	return lat / sumW, lon / sumW
}

// rmsSpreadM is the root-mean-square haversine distance of the candidate
// points from the centroid, in metres.
func rmsSpreadM(lats, lons []float64, centroidLat, centroidLon float64) float64 {
	var sumSq float64
	for i := range lats {
		d := Haversine(lats[i], lons[i], centroidLat, centroidLon)
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(lats)))
}

// precisionConfidence maps the spread and observation count onto a
// percentage:
//
//	pct = 95 · tanh(n/3) · 1/(1 + σ/scale)
//
// It is continuous and deterministic, strictly decreasing in the spread σ,
// strictly increasing in the observation count n, and capped at 95 so the
// solver never claims certainty.
func precisionConfidence(stdDevM float64, n int, spreadScaleM float64) float64 {
	pct := 95 * math.Tanh(float64(n)/3) / (1 + stdDevM/spreadScaleM)
	if pct < 0 {
		return 0
	}
	if pct > 95 {
		return 95
	}
	return pct
}
