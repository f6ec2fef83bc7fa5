package store

import (
	"path/filepath"
	"testing"

	"github.com/elmbrook/wanderguard/internal/geo"
	"github.com/elmbrook/wanderguard/internal/wander"
	"github.com/elmbrook/wanderguard/internal/zones"
	"github.com/google/go-cmp/cmp"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestZoneCRUD(t *testing.T) {
	s := testStore(t)

	z := zones.Zone{ID: "z1", Name: "home yard", CenterLat: 37.77, CenterLng: -122.42, RadiusMeters: 150}
	if err := s.UpsertZone(z); err != nil {
		t.Fatalf("UpsertZone: %v", err)
	}

	got, err := s.ListZones()
	if err != nil {
		t.Fatalf("ListZones: %v", err)
	}
	if diff := cmp.Diff([]zones.Zone{z}, got); diff != "" {
		t.Errorf("zones mismatch (-want +got):\n%s", diff)
	}

	// Upsert updates in place.
	z.Name = "front yard"
	z.RadiusMeters = 300
	if err := s.UpsertZone(z); err != nil {
		t.Fatalf("UpsertZone update: %v", err)
	}
	got, err = s.ListZones()
	if err != nil {
		t.Fatalf("ListZones: %v", err)
	}
	if len(got) != 1 || got[0].Name != "front yard" || got[0].RadiusMeters != 300 {
		t.Errorf("updated zone = %+v", got)
	}

	if err := s.DeleteZone("z1"); err != nil {
		t.Fatalf("DeleteZone: %v", err)
	}
	got, err = s.ListZones()
	if err != nil {
		t.Fatalf("ListZones: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("zones after delete = %+v, want none", got)
	}

	// Deleting a missing zone is not an error.
	if err := s.DeleteZone("z1"); err != nil {
		t.Errorf("DeleteZone missing: %v", err)
	}
}

func TestUpsertZoneValidation(t *testing.T) {
	s := testStore(t)
	if err := s.UpsertZone(zones.Zone{Name: "no id", RadiusMeters: 10}); err == nil {
		t.Error("expected error for missing zone id")
	}
	if err := s.UpsertZone(zones.Zone{ID: "z1", RadiusMeters: 0}); err == nil {
		t.Error("expected error for zero radius")
	}
}

func TestHomePoint(t *testing.T) {
	s := testStore(t)

	home, err := s.Home()
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if home != nil {
		t.Errorf("Home before SetHome = %+v, want nil", home)
	}

	if err := s.SetHome(37.77, -122.42); err != nil {
		t.Fatalf("SetHome: %v", err)
	}
	home, err = s.Home()
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if home == nil || home.Lat != 37.77 || home.Lng != -122.42 {
		t.Errorf("Home = %+v", home)
	}

	// SetHome replaces; there is only ever one row.
	if err := s.SetHome(40.0, -105.0); err != nil {
		t.Fatalf("SetHome replace: %v", err)
	}
	home, err = s.Home()
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if home == nil || home.Lat != 40.0 {
		t.Errorf("replaced Home = %+v", home)
	}

	if err := s.ClearHome(); err != nil {
		t.Fatalf("ClearHome: %v", err)
	}
	home, err = s.Home()
	if err != nil {
		t.Fatalf("Home: %v", err)
	}
	if home != nil {
		t.Errorf("Home after ClearHome = %+v, want nil", home)
	}
}

func TestZonesSource(t *testing.T) {
	s := testStore(t)
	if err := s.UpsertZone(zones.Zone{ID: "z1", Name: "yard", CenterLat: 1, CenterLng: 2, RadiusMeters: 50}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetHome(1, 2); err != nil {
		t.Fatal(err)
	}

	zs, home, err := s.Zones()
	if err != nil {
		t.Fatalf("Zones: %v", err)
	}
	if len(zs) != 1 || zs[0].ID != "z1" {
		t.Errorf("zones = %+v", zs)
	}
	if home == nil || home.Lat != 1 || home.Lng != 2 {
		t.Errorf("home = %+v", home)
	}
}

func TestSampleLog(t *testing.T) {
	s := testStore(t)

	points := []geo.Point{
		{Lat: 37.770, Lng: -122.420, UnixMs: 1000, AccuracyMeters: 5},
		{Lat: 37.771, Lng: -122.421, UnixMs: 2000, AccuracyMeters: 8},
		{Lat: 37.772, Lng: -122.422, UnixMs: 3000, AccuracyMeters: 12},
	}
	for _, p := range points {
		if err := s.RecordSample(p); err != nil {
			t.Fatalf("RecordSample: %v", err)
		}
	}

	got, err := s.ListSamples(1000, 3000, 0)
	if err != nil {
		t.Fatalf("ListSamples: %v", err)
	}
	if diff := cmp.Diff(points, got); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}

	// Range bounds are inclusive; limit caps the result.
	got, err = s.ListSamples(2000, 2000, 0)
	if err != nil {
		t.Fatalf("ListSamples: %v", err)
	}
	if len(got) != 1 || got[0].UnixMs != 2000 {
		t.Errorf("ranged samples = %+v", got)
	}
	got, err = s.ListSamples(0, 9000, 2)
	if err != nil {
		t.Fatalf("ListSamples: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("limited samples = %d, want 2", len(got))
	}
}

func TestEventRoundTrip(t *testing.T) {
	s := testStore(t)

	loc := geo.Point{Lat: 37.78, Lng: -122.43, UnixMs: 60000}
	in := wander.Event{
		ID:   "e1",
		Type: wander.EventWanderingStart,
		State: wander.State{
			IsWandering:            true,
			Pattern:                wander.PatternCircling,
			Confidence:             0.95,
			DurationSeconds:        12.5,
			DistanceFromHomeMeters: 340,
			OutsideSafeZone:        true,
			LastKnownLocation:      &loc,
		},
		UnixMs: 60000,
	}
	if err := s.RecordEvent(in); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}

	got, err := s.ListEvents(0, 100000, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if diff := cmp.Diff(in, got[0]); diff != "" {
		t.Errorf("event mismatch (-want +got):\n%s", diff)
	}
}

func TestListEventsNewestFirst(t *testing.T) {
	s := testStore(t)

	for i, typ := range []wander.EventType{wander.EventLeftSafeZone, wander.EventWanderingStart, wander.EventWanderingEnd} {
		e := wander.Event{
			ID:     string(rune('a' + i)),
			Type:   typ,
			State:  wander.State{Pattern: wander.PatternNone},
			UnixMs: int64((i + 1) * 1000),
		}
		if err := s.RecordEvent(e); err != nil {
			t.Fatalf("RecordEvent: %v", err)
		}
	}

	got, err := s.ListEvents(0, 10000, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].UnixMs != 3000 || got[2].UnixMs != 1000 {
		t.Errorf("events not newest-first: %+v", got)
	}

	got, err = s.ListEvents(0, 10000, 1)
	if err != nil {
		t.Fatalf("ListEvents limited: %v", err)
	}
	if len(got) != 1 || got[0].UnixMs != 3000 {
		t.Errorf("limited events = %+v", got)
	}
}

func TestEventWithoutLocation(t *testing.T) {
	s := testStore(t)

	in := wander.Event{
		ID:     "e1",
		Type:   wander.EventReturnedSafe,
		State:  wander.State{Pattern: wander.PatternNone},
		UnixMs: 1000,
	}
	if err := s.RecordEvent(in); err != nil {
		t.Fatalf("RecordEvent: %v", err)
	}
	got, err := s.ListEvents(0, 10000, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	if got[0].State.LastKnownLocation != nil {
		t.Errorf("LastKnownLocation = %+v, want nil", got[0].State.LastKnownLocation)
	}
	if got[0].State.IsWandering {
		t.Error("pattern none must reconstruct as not wandering")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := s1.UpsertZone(zones.Zone{ID: "z1", Name: "yard", RadiusMeters: 10}); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	// Reopening an existing database must keep its contents.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()
	zs, err := s2.ListZones()
	if err != nil {
		t.Fatal(err)
	}
	if len(zs) != 1 {
		t.Errorf("zones after reopen = %+v, want 1", zs)
	}
}
