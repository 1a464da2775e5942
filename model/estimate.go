package model

// Precision describes how trustworthy an estimated position is.
type Precision struct {
	StdDevM          float64 `json:"std_dev_m"`
	ConfidencePct    float64 `json:"confidence_pct"` // [0,95]; never claims certainty
	ObservationCount int     `json:"observation_count"`
}

// EstimatedPosition is a triangulated ground position. It is derived state:
// recomputed on every request, never cached.
type EstimatedPosition struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Precision Precision `json:"precision"`
}

// CorrelationResult is the outcome of correlating a captured image against a
// satellite reference. When Accepted is false the corrected coordinates are
// the uncorrected telemetry coordinates.
type CorrelationResult struct {
	CorrectedLatitude  float64 `json:"corrected_latitude"`
	CorrectedLongitude float64 `json:"corrected_longitude"`
	Confidence         float64 `json:"confidence"` // [0,1]
	Accepted           bool    `json:"accepted"`
}
