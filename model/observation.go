package model

import "time"

// Position is a geodetic drone position: WGS84 degrees plus altitude above
// ground in metres.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	AltitudeM float64 `json:"altitude_m"`
}

// Observation is a single bearing/elevation sighting of a ground target,
// taken from a known drone position. Observations are immutable once created.
type Observation struct {
	ID           string    `json:"id"`
	TargetID     string    `json:"target_id"`
	Drone        Position  `json:"drone_position"`
	BearingDeg   float64   `json:"bearing_deg"`   // [0,360), clockwise from true north
	ElevationDeg float64   `json:"elevation_deg"` // [-90,90], relative to horizontal
	Confidence   float64   `json:"confidence"`    // [0,1]
	CreatedAt    time.Time `json:"created_at"`
}

// TargetStatus tracks the lifecycle of a triangulation target.
type TargetStatus int

const (
	TargetActive TargetStatus = iota
	TargetResolved
)

// String returns the wire spelling of the status.
func (s TargetStatus) String() string {
	switch s {
	case TargetResolved:
		return "resolved"
	default:
		return "active"
	}
}

// Target is a snapshot of a triangulation target and its accumulated
// observations, in arrival order.
type Target struct {
	ID           string        `json:"target_id"`
	Status       TargetStatus  `json:"-"`
	Observations []Observation `json:"observations"`
}
