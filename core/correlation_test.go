package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/signalsfoundry/drone-geolocator/model"
)

type fakeTiles struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeTiles) GetOrFetch(ctx context.Context, lat, lon float64, zoom int) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

type fakeCorrelator struct {
	dx, dy, confidence float64
	err                error
}

func (f *fakeCorrelator) Correlate(ctx context.Context, image, reference []byte) (float64, float64, float64, error) {
	return f.dx, f.dy, f.confidence, f.err
}

func newCorrelationUnderTest(tiles TileProvider, corr ImageCorrelator) *CorrelationEngine {
	return NewCorrelationEngine(tiles, corr, CorrelationConfig{MetersPerPixel: 1}, nil)
}

func TestCorrelate_MissingTelemetry(t *testing.T) {
	e := newCorrelationUnderTest(&fakeTiles{data: []byte("ref")}, &fakeCorrelator{})

	_, err := e.Correlate(context.Background(), []byte("img"), model.Telemetry{}, 0.6)
	if !errors.Is(err, ErrMissingTelemetry) {
		t.Fatalf("err = %v, want ErrMissingTelemetry", err)
	}
}

func TestCorrelate_TileFailureDegradesGracefully(t *testing.T) {
	tiles := &fakeTiles{err: fmt.Errorf("fetch timed out")}
	e := newCorrelationUnderTest(tiles, &fakeCorrelator{confidence: 0.99})

	result, err := e.Correlate(context.Background(), []byte("img"), telemetryAt(40, -3, 0), 0.6)
	if err != nil {
		t.Fatalf("tile failure must not be fatal: %v", err)
	}
	if result.Accepted {
		t.Error("degraded result was accepted")
	}
	if result.Confidence != 0 {
		t.Errorf("degraded confidence = %v, want 0", result.Confidence)
	}
	if result.CorrectedLatitude != 40 || result.CorrectedLongitude != -3 {
		t.Errorf("degraded coordinates = (%v, %v), want the telemetry fix",
			result.CorrectedLatitude, result.CorrectedLongitude)
	}
}

func TestCorrelate_CorrelatorFailureDegradesGracefully(t *testing.T) {
	e := newCorrelationUnderTest(
		&fakeTiles{data: []byte("ref")},
		&fakeCorrelator{err: fmt.Errorf("provider unavailable")},
	)

	result, err := e.Correlate(context.Background(), []byte("img"), telemetryAt(40, -3, 0), 0.6)
	if err != nil {
		t.Fatalf("correlator failure must not be fatal: %v", err)
	}
	if result.Accepted || result.Confidence != 0 {
		t.Errorf("result = %+v, want rejected with zero confidence", result)
	}
}

func TestCorrelate_BelowThresholdKeepsOriginalCoordinates(t *testing.T) {
	e := newCorrelationUnderTest(
		&fakeTiles{data: []byte("ref")},
		&fakeCorrelator{dx: 500, dy: 500, confidence: 0.3},
	)

	result, err := e.Correlate(context.Background(), []byte("img"), telemetryAt(40, -3, 0), 0.6)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if result.Accepted {
		t.Error("sub-threshold correlation was accepted")
	}
	if result.Confidence != 0.3 {
		t.Errorf("confidence = %v, want the correlator's 0.3", result.Confidence)
	}
	if result.CorrectedLatitude != 40 || result.CorrectedLongitude != -3 {
		t.Errorf("coordinates = (%v, %v), want unmodified telemetry fix",
			result.CorrectedLatitude, result.CorrectedLongitude)
	}
}

func TestCorrelate_ThresholdIsInclusive(t *testing.T) {
	e := newCorrelationUnderTest(
		&fakeTiles{data: []byte("ref")},
		&fakeCorrelator{dx: 0, dy: 0, confidence: 0.6},
	)

	result, err := e.Correlate(context.Background(), []byte("img"), telemetryAt(40, -3, 0), 0.6)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if !result.Accepted {
		t.Error("confidence == threshold must accept")
	}
}

func TestCorrelate_AcceptedAppliesPixelOffset(t *testing.T) {
	e := newCorrelationUnderTest(
		&fakeTiles{data: []byte("ref")},
		&fakeCorrelator{dx: 100, dy: 0, confidence: 0.9},
	)

	result, err := e.Correlate(context.Background(), []byte("img"), telemetryAt(40, -3, 0), 0.6)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if !result.Accepted {
		t.Fatal("high-confidence correlation was rejected")
	}
	// 100 m east at 40°N with 1 m/px.
	almostEqual(t, result.CorrectedLatitude, 40, 1e-9, "corrected latitude")
	almostEqual(t, result.CorrectedLongitude, -3+0.0011726620, 1e-8, "corrected longitude")
	if result.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", result.Confidence)
	}
}

func TestCorrelate_DefaultThresholdApplies(t *testing.T) {
	e := NewCorrelationEngine(
		&fakeTiles{data: []byte("ref")},
		&fakeCorrelator{confidence: 0.5},
		CorrelationConfig{MetersPerPixel: 1}, // default threshold 0.6
		nil,
	)

	result, err := e.Correlate(context.Background(), []byte("img"), telemetryAt(40, -3, 0), 0)
	if err != nil {
		t.Fatalf("Correlate: %v", err)
	}
	if result.Accepted {
		t.Error("0.5 confidence accepted against the 0.6 default threshold")
	}
}

func TestCorrelate_PoleRejected(t *testing.T) {
	e := newCorrelationUnderTest(
		&fakeTiles{data: []byte("ref")},
		&fakeCorrelator{dx: 10, dy: 10, confidence: 0.9},
	)

	_, err := e.Correlate(context.Background(), []byte("img"), telemetryAt(89.9, 0, 0), 0.6)
	if !errors.Is(err, ErrPoleSingularity) {
		t.Fatalf("err = %v, want ErrPoleSingularity", err)
	}
}

func TestGroundResolution(t *testing.T) {
	// Reference value for 256px Web-Mercator tiles: ~0.915 m/px at 40°N, z17.
	almostEqual(t, GroundResolution(40, 17), 0.9149, 1e-3, "ground resolution")

	// Halves with each zoom level.
	almostEqual(t, GroundResolution(0, 10)/GroundResolution(0, 11), 2, 1e-9, "zoom halving")
}
