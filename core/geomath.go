package core

import "math"

// EarthRadiusM is the mean Earth radius used for all simple geometry
// calculations in the geolocation layer (metres).
const EarthRadiusM = 6371000.0

// MetersPerDegreeLat is the flat-earth conversion factor between metres and
// degrees of latitude (and of longitude at the equator).
const MetersPerDegreeLat = 111320.0

// Haversine returns the great-circle distance in metres between two
// lat/lon points given in degrees.
//
// Inputs are not validated: out-of-range coordinates produce mathematically
// valid but meaningless output. Validation is the caller's responsibility.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	return 2 * EarthRadiusM * math.Asin(math.Sqrt(a))
}

// ProjectPoint returns the lat/lon (degrees) reached by travelling
// distanceM metres from (lat, lon) along bearingDeg (degrees clockwise from
// true north).
//
// This is an equirectangular forward projection with latitude-dependent
// longitude scaling (Δλ = Δx / (R·cos φ)), not a true geodesic. The relative
// error against a full great-circle solution grows with distance and
// latitude; for the sub-10 km projections used by the triangulation engine
// it stays below ~0.1% (a few metres) at mid latitudes. Do not use it for
// long-range projections or near the poles.
func ProjectPoint(lat, lon, bearingDeg, distanceM float64) (float64, float64) {
	latRad := radians(lat)
	bearing := radians(bearingDeg)

	dLat := (distanceM / EarthRadiusM) * math.Cos(bearing)
	dLon := (distanceM / EarthRadiusM) * math.Sin(bearing) / math.Cos(latRad)

	return lat + degrees(dLat), lon + degrees(dLon)
}

// RotateXY rotates the vector (x, y) by yawDeg degrees counter-clockwise
// and returns the rotated components.
func RotateXY(x, y, yawDeg float64) (float64, float64) {
	yaw := radians(yawDeg)
	sin, cos := math.Sincos(yaw)
	return x*cos - y*sin, x*sin + y*cos
}

// NormalizeBearing wraps an arbitrary bearing in degrees into [0, 360).
func NormalizeBearing(bearingDeg float64) float64 {
	b := math.Mod(bearingDeg, 360)
	if b < 0 {
		b += 360
	}
	return b
}

// Clamp01 clamps v into [0, 1]. NaN clamps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
