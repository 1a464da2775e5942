package model

// GPSFix is a raw latitude/longitude pair reported by the platform.
type GPSFix struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Orientation is the platform attitude in degrees. Only yaw participates in
// the pixel-to-GPS transform; pitch and roll are carried for completeness.
type Orientation struct {
	YawDeg   float64 `json:"yaw_deg"`
	PitchDeg float64 `json:"pitch_deg"`
	RollDeg  float64 `json:"roll_deg"`
}

// Telemetry is the drone state snapshot consumed by the correlation engine.
// GPS is a pointer so that an absent fix is distinguishable from (0, 0).
type Telemetry struct {
	GPS         *GPSFix     `json:"gps"`
	AltitudeM   float64     `json:"altitude_m"`
	Orientation Orientation `json:"orientation"`
}
