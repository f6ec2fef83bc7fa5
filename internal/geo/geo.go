// Package geo provides the position sample model and the spherical-Earth
// distance and bearing math used by the wandering engine.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used for the spherical
// approximation. Adequate at neighbourhood scale.
const EarthRadiusMeters = 6371000.0

// Point is a single position sample. UnixMs is the sample timestamp in
// milliseconds. AccuracyMeters is the reported horizontal accuracy
// (1-sigma); zero means the source did not report one.
type Point struct {
	Lat            float64 `json:"latitude"`
	Lng            float64 `json:"longitude"`
	UnixMs         int64   `json:"timestamp_ms"`
	AccuracyMeters float64 `json:"accuracy_meters,omitempty"`
}

// Valid reports whether the point carries usable coordinates and a
// plausible timestamp. NaN/Inf coordinates, out-of-range lat/lng and
// non-positive timestamps are all rejected.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) {
		return false
	}
	if math.IsNaN(p.Lng) || math.IsInf(p.Lng, 0) {
		return false
	}
	if p.Lat < -90 || p.Lat > 90 {
		return false
	}
	if p.Lng < -180 || p.Lng > 180 {
		return false
	}
	if p.UnixMs <= 0 {
		return false
	}
	if math.IsNaN(p.AccuracyMeters) || p.AccuracyMeters < 0 {
		return false
	}
	return true
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial compass heading from a to b in degrees,
// normalised to [0, 360).
func Bearing(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLng := toRadians(b.Lng - a.Lng)
	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	deg := toDegrees(math.Atan2(y, x))
	return math.Mod(deg+360, 360)
}

// BearingDelta returns the absolute angular difference between two
// compass headings, in [0, 180].
func BearingDelta(b1, b2 float64) float64 {
	d := math.Abs(b1 - b2)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// PathLength returns the sum of consecutive haversine distances along
// points, in meters. Fewer than two points is a zero-length path.
func PathLength(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Haversine(points[i-1], points[i])
	}
	return total
}
