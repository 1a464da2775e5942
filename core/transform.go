package core

import (
	"fmt"
	"math"

	"github.com/signalsfoundry/drone-geolocator/model"
)

// maxOperatingLatitudeDeg bounds the flat-earth longitude conversion.
// Beyond it cos(lat) is small enough that Δlon blows up, so the transform
// rejects the input instead of producing garbage coordinates.
const maxOperatingLatitudeDeg = 89.0

// PixelToGPS converts a pixel offset inside a captured image into an
// absolute GPS coordinate, using the drone telemetry taken at capture time.
//
// pixelDX grows to the image right, pixelDY to the image top (device frame).
// The offset is scaled to metres, rotated into the north-referenced frame by
// the platform yaw, and applied to the telemetry fix with a local flat-earth
// conversion (Δlat = y/111320, Δlon = x/(111320·cos lat)).
func PixelToGPS(pixelDX, pixelDY float64, tel model.Telemetry, metersPerPixel float64) (float64, float64, error) {
	if tel.GPS == nil {
		return 0, 0, ErrMissingTelemetry
	}
	lat := tel.GPS.Latitude
	if math.Abs(lat) > maxOperatingLatitudeDeg {
		return 0, 0, fmt.Errorf("latitude %.4f: %w", lat, ErrPoleSingularity)
	}

	xM := pixelDX * metersPerPixel
	yM := pixelDY * metersPerPixel

	// Device frame -> north-referenced frame.
	xM, yM = RotateXY(xM, yM, tel.Orientation.YawDeg)

	dLat := yM / MetersPerDegreeLat
	dLon := xM / (MetersPerDegreeLat * math.Cos(radians(lat)))

	return lat + dLat, tel.GPS.Longitude + dLon, nil
}
