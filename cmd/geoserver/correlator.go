package main

import (
	"context"

	"github.com/signalsfoundry/drone-geolocator/core"
)

// simulatedCorrelator stands in for a real image-correlation provider. It
// reports a fixed small offset with high confidence, which matches the
// behaviour of the field prototype well enough to exercise the full
// correction pipeline.
//
// TODO: replace with a client for the production correlation service once
// its endpoint is available.
type simulatedCorrelator struct {
	dx, dy     float64
	confidence float64
}

func newSimulatedCorrelator() core.ImageCorrelator {
	return &simulatedCorrelator{dx: 12, dy: -8, confidence: 0.85}
}

func (c *simulatedCorrelator) Correlate(ctx context.Context, image, reference []byte) (float64, float64, float64, error) {
	return c.dx, c.dy, c.confidence, nil
}
