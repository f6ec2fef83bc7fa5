package zones

import (
	"math"
	"testing"

	"github.com/elmbrook/wanderguard/internal/geo"
)

// metersLat converts a northward offset in meters to degrees latitude.
func metersLat(m float64) float64 {
	return m / 111320.0
}

func TestNewZoneAssignsID(t *testing.T) {
	a := NewZone("home", 37.77, -122.42, 100)
	b := NewZone("home", 37.77, -122.42, 100)
	if a.ID == "" || b.ID == "" {
		t.Fatal("NewZone produced an empty ID")
	}
	if a.ID == b.ID {
		t.Error("NewZone produced duplicate IDs")
	}
}

func TestZoneContainsBoundaryInclusive(t *testing.T) {
	z := Zone{ID: "z1", Name: "yard", CenterLat: 37.77, CenterLng: -122.42, RadiusMeters: 100}

	center := geo.Point{Lat: 37.77, Lng: -122.42, UnixMs: 1}
	if !z.Contains(center) {
		t.Error("center not contained")
	}

	inside := geo.Point{Lat: 37.77 + metersLat(99), Lng: -122.42, UnixMs: 1}
	if !z.Contains(inside) {
		t.Error("point 99m north not contained")
	}

	outside := geo.Point{Lat: 37.77 + metersLat(110), Lng: -122.42, UnixMs: 1}
	if z.Contains(outside) {
		t.Error("point 110m north should be outside")
	}
}

func TestEvaluateFirstContainingZoneWins(t *testing.T) {
	home := geo.Point{Lat: 37.77, Lng: -122.42, UnixMs: 1}
	zs := []Zone{
		{ID: "z1", CenterLat: 37.77, CenterLng: -122.42, RadiusMeters: 100},
		{ID: "z2", CenterLat: 37.77, CenterLng: -122.42, RadiusMeters: 500},
	}

	ev := Evaluate(home, zs, &home)
	if ev.OutsideSafeZone {
		t.Error("expected inside")
	}
	if ev.ContainingZoneID != "z1" {
		t.Errorf("ContainingZoneID = %q, want z1 (first match)", ev.ContainingZoneID)
	}
	if ev.DistanceFromHomeMeters != 0 {
		t.Errorf("DistanceFromHomeMeters = %f, want 0", ev.DistanceFromHomeMeters)
	}
}

func TestEvaluateOutsideAllZones(t *testing.T) {
	home := geo.Point{Lat: 37.77, Lng: -122.42, UnixMs: 1}
	zs := []Zone{{ID: "z1", CenterLat: 37.77, CenterLng: -122.42, RadiusMeters: 100}}

	p := geo.Point{Lat: 37.77 + metersLat(1500), Lng: -122.42, UnixMs: 1}
	ev := Evaluate(p, zs, &home)
	if !ev.OutsideSafeZone {
		t.Error("expected outside")
	}
	if ev.ContainingZoneID != "" {
		t.Errorf("ContainingZoneID = %q, want empty", ev.ContainingZoneID)
	}
	if math.Abs(ev.DistanceFromHomeMeters-1500) > 20 {
		t.Errorf("DistanceFromHomeMeters = %f, want ~1500", ev.DistanceFromHomeMeters)
	}
}

func TestEvaluateNoZonesConfigured(t *testing.T) {
	p := geo.Point{Lat: 37.77, Lng: -122.42, UnixMs: 1}
	ev := Evaluate(p, nil, nil)
	if !ev.OutsideSafeZone {
		t.Error("with zero zones every point is outside")
	}
	if ev.DistanceFromHomeMeters != 0 {
		t.Errorf("DistanceFromHomeMeters = %f with no home, want 0", ev.DistanceFromHomeMeters)
	}
}

func TestStaticSource(t *testing.T) {
	home := geo.Point{Lat: 1, Lng: 2, UnixMs: 1}
	src := &StaticSource{Set: []Zone{{ID: "z1"}}, Home: &home}
	zs, h, err := src.Zones()
	if err != nil {
		t.Fatalf("Zones: %v", err)
	}
	if len(zs) != 1 || zs[0].ID != "z1" {
		t.Errorf("zones = %+v, want single z1", zs)
	}
	if h == nil || h.Lat != 1 {
		t.Errorf("home = %+v, want lat 1", h)
	}
}
