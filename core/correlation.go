package core

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/drone-geolocator/internal/logging"
	"github.com/signalsfoundry/drone-geolocator/model"
)

// TileProvider hands out satellite reference imagery for a coordinate. It is
// implemented by tilecache.Cache; tests supply deterministic fakes.
type TileProvider interface {
	GetOrFetch(ctx context.Context, lat, lon float64, zoom int) ([]byte, error)
}

// ImageCorrelator is the external similarity/offset collaborator. Given a
// captured image and a reference tile it reports the pixel offset of the
// capture within the reference and a confidence in [0,1]. The matching
// algorithm itself is out of scope for this package.
type ImageCorrelator interface {
	Correlate(ctx context.Context, image, reference []byte) (pixelDX, pixelDY, confidence float64, err error)
}

// CorrelationConfig tunes the GPS-correction pipeline.
type CorrelationConfig struct {
	// Zoom is the reference-tile zoom level requested from the provider.
	Zoom int
	// DefaultThreshold gates acceptance when the caller passes a
	// non-positive threshold.
	DefaultThreshold float64
	// MetersPerPixel overrides the ground resolution of the capture. When
	// zero, the Web-Mercator ground resolution at (lat, Zoom) is used.
	MetersPerPixel float64
}

// DefaultCorrelationConfig matches the prototype: zoom 17, threshold 0.6.
func DefaultCorrelationConfig() CorrelationConfig {
	return CorrelationConfig{
		Zoom:             17,
		DefaultThreshold: 0.6,
	}
}

// CorrelationEngine corrects a drone GPS fix by correlating a captured image
// against a cached satellite reference. Both collaborators are injected at
// construction; the engine never selects providers at call time.
type CorrelationEngine struct {
	tiles      TileProvider
	correlator ImageCorrelator
	cfg        CorrelationConfig
	log        logging.Logger
}

// NewCorrelationEngine wires the engine to its collaborators. A nil logger
// is replaced by a noop.
func NewCorrelationEngine(tiles TileProvider, correlator ImageCorrelator, cfg CorrelationConfig, log logging.Logger) *CorrelationEngine {
	def := DefaultCorrelationConfig()
	if cfg.Zoom <= 0 {
		cfg.Zoom = def.Zoom
	}
	if cfg.DefaultThreshold <= 0 {
		cfg.DefaultThreshold = def.DefaultThreshold
	}
	if log == nil {
		log = logging.Noop()
	}
	return &CorrelationEngine{
		tiles:      tiles,
		correlator: correlator,
		cfg:        cfg,
		log:        log,
	}
}

// Correlate runs the correction pipeline: validate telemetry, obtain the
// reference tile, obtain the similarity signal, and gate on confidence.
//
// Failures of the tile or correlator collaborators are recoverable: the
// result degrades to the uncorrected telemetry coordinates with zero
// confidence rather than returning an error. Confidence below the threshold
// is likewise not an error; it yields Accepted=false with the original
// coordinates. Acceptance is inclusive: confidence >= threshold accepts.
func (e *CorrelationEngine) Correlate(ctx context.Context, image []byte, tel model.Telemetry, threshold float64) (model.CorrelationResult, error) {
	if tel.GPS == nil {
		return model.CorrelationResult{}, ErrMissingTelemetry
	}
	if threshold <= 0 {
		threshold = e.cfg.DefaultThreshold
	}
	lat, lon := tel.GPS.Latitude, tel.GPS.Longitude

	reference, err := e.tiles.GetOrFetch(ctx, lat, lon, e.cfg.Zoom)
	if err != nil {
		e.log.Warn(ctx, "reference tile unavailable, returning uncorrected fix",
			logging.Float64("latitude", lat),
			logging.Float64("longitude", lon),
			logging.String("error", err.Error()),
		)
		return uncorrected(lat, lon, 0), nil
	}

	dx, dy, confidence, err := e.correlator.Correlate(ctx, image, reference)
	if err != nil {
		e.log.Warn(ctx, "image correlator failed, returning uncorrected fix",
			logging.String("error", err.Error()),
		)
		return uncorrected(lat, lon, 0), nil
	}
	confidence = Clamp01(confidence)

	if confidence < threshold {
		e.log.Debug(ctx, "correlation below threshold",
			logging.Float64("confidence", confidence),
			logging.Float64("threshold", threshold),
		)
		return uncorrected(lat, lon, confidence), nil
	}

	mpp := e.cfg.MetersPerPixel
	if mpp <= 0 {
		mpp = GroundResolution(lat, e.cfg.Zoom)
	}
	correctedLat, correctedLon, err := PixelToGPS(dx, dy, tel, mpp)
	if err != nil {
		return model.CorrelationResult{}, fmt.Errorf("apply pixel offset: %w", err)
	}

	e.log.Info(ctx, "GPS fix corrected",
		logging.Float64("latitude", correctedLat),
		logging.Float64("longitude", correctedLon),
		logging.Float64("confidence", confidence),
	)
	return model.CorrelationResult{
		CorrectedLatitude:  correctedLat,
		CorrectedLongitude: correctedLon,
		Confidence:         confidence,
		Accepted:           true,
	}, nil
}

func uncorrected(lat, lon, confidence float64) model.CorrelationResult {
	return model.CorrelationResult{
		CorrectedLatitude:  lat,
		CorrectedLongitude: lon,
		Confidence:         confidence,
		Accepted:           false,
	}
}

// GroundResolution returns the Web-Mercator ground resolution in metres per
// pixel for 256px tiles at the given latitude and zoom level.
func GroundResolution(lat float64, zoom int) float64 {
	return 156543.03392 * math.Cos(radians(lat)) / math.Pow(2, float64(zoom))
}
