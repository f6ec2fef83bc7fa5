// Package zones models named circular safe zones and evaluates position
// samples against them.
package zones

import (
	"github.com/elmbrook/wanderguard/internal/geo"
	"github.com/google/uuid"
)

// Zone is a named circular geofence. The monitored person is considered
// safe while inside at least one zone.
type Zone struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	CenterLat    float64 `json:"center_lat"`
	CenterLng    float64 `json:"center_lng"`
	RadiusMeters float64 `json:"radius_meters"`
}

// NewZone creates a Zone with a generated ID.
func NewZone(name string, lat, lng, radiusMeters float64) Zone {
	return Zone{
		ID:           uuid.NewString(),
		Name:         name,
		CenterLat:    lat,
		CenterLng:    lng,
		RadiusMeters: radiusMeters,
	}
}

// Contains reports whether p lies within the zone, boundary inclusive.
func (z Zone) Contains(p geo.Point) bool {
	center := geo.Point{Lat: z.CenterLat, Lng: z.CenterLng, UnixMs: p.UnixMs}
	return geo.Haversine(p, center) <= z.RadiusMeters
}

// Evaluation is the result of testing a sample against the configured
// zones and the home reference point.
type Evaluation struct {
	// OutsideSafeZone is false iff the sample lies inside at least one
	// zone. With zero zones configured every sample is outside.
	OutsideSafeZone bool `json:"outside_safe_zone"`

	// ContainingZoneID names the first zone containing the sample, or
	// is empty when outside.
	ContainingZoneID string `json:"containing_zone_id,omitempty"`

	// DistanceFromHomeMeters is the haversine distance to the home
	// point, or 0 when no home is configured.
	DistanceFromHomeMeters float64 `json:"distance_from_home_meters"`
}

// Evaluate tests p against zs and the optional home point. It is a pure
// function of its inputs.
func Evaluate(p geo.Point, zs []Zone, home *geo.Point) Evaluation {
	ev := Evaluation{OutsideSafeZone: true}
	for _, z := range zs {
		if z.Contains(p) {
			ev.OutsideSafeZone = false
			ev.ContainingZoneID = z.ID
			break
		}
	}
	if home != nil {
		ev.DistanceFromHomeMeters = geo.Haversine(p, *home)
	}
	return ev
}

// Source supplies the current zone set and home point. The store-backed
// implementation lets an administrator change zones while tracking runs;
// the monitor re-reads the source on every classification tick.
type Source interface {
	Zones() ([]Zone, *geo.Point, error)
}

// StaticSource is a fixed in-memory Source for tests and dev mode.
type StaticSource struct {
	Set  []Zone
	Home *geo.Point
}

func (s *StaticSource) Zones() ([]Zone, *geo.Point, error) {
	return s.Set, s.Home, nil
}
