package core

import "errors"

// Domain errors. All of them describe recoverable conditions: callers are
// expected to inspect them with errors.Is and react, not crash.
var (
	// ErrTargetNotFound is returned when a target ID has never been seen.
	ErrTargetNotFound = errors.New("target not found")

	// ErrInsufficientObservations is returned by CalculatePosition when a
	// target has fewer than two observations. The caller may add more
	// observations and retry.
	ErrInsufficientObservations = errors.New("at least 2 observations required")

	// ErrMissingTelemetry is returned when telemetry carries no GPS fix.
	ErrMissingTelemetry = errors.New("telemetry has no GPS fix")

	// ErrPoleSingularity is returned when a flat-earth longitude conversion
	// is requested too close to a pole, where cos(lat) vanishes.
	ErrPoleSingularity = errors.New("latitude too close to a pole for longitude conversion")
)
