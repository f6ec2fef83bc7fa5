// Package store persists safe zones, the home point, admitted position
// samples and emitted wandering events in sqlite.
package store

import (
	"database/sql"
	"fmt"

	"github.com/elmbrook/wanderguard/internal/geo"
	"github.com/elmbrook/wanderguard/internal/wander"
	"github.com/elmbrook/wanderguard/internal/zones"
	_ "modernc.org/sqlite"
)

type Store struct {
	*sql.DB
}

// Open opens (or creates) the sqlite database at path and ensures the
// baseline schema exists. Versioned upgrades beyond the baseline run
// through MigrateUp.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS safe_zones (
			zone_id           TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			center_lat        DOUBLE NOT NULL,
			center_lng        DOUBLE NOT NULL,
			radius_m          DOUBLE NOT NULL,
			kind              TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS home_point (
			home_id           INTEGER PRIMARY KEY CHECK (home_id = 1),
			lat               DOUBLE NOT NULL,
			lng               DOUBLE NOT NULL
		);
		CREATE TABLE IF NOT EXISTS samples (
			lat               DOUBLE NOT NULL,
			lng               DOUBLE NOT NULL,
			accuracy_m        DOUBLE,
			unix_ms           BIGINT NOT NULL,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_samples_unix_ms ON samples(unix_ms);
		CREATE TABLE IF NOT EXISTS wander_events (
			event_id          TEXT PRIMARY KEY,
			event_type        TEXT NOT NULL,
			pattern           TEXT NOT NULL,
			confidence        DOUBLE NOT NULL,
			duration_s        DOUBLE NOT NULL,
			distance_home_m   DOUBLE NOT NULL,
			outside_zone      INTEGER NOT NULL,
			lat               DOUBLE,
			lng               DOUBLE,
			unix_ms           BIGINT NOT NULL,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_wander_events_unix_ms ON wander_events(unix_ms);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db}, nil
}

// UpsertZone inserts or replaces a safe zone.
func (s *Store) UpsertZone(z zones.Zone) error {
	if z.ID == "" {
		return fmt.Errorf("zone id is required")
	}
	if z.RadiusMeters <= 0 {
		return fmt.Errorf("zone radius must be positive, got %f", z.RadiusMeters)
	}
	_, err := s.Exec(
		`INSERT INTO safe_zones (zone_id, name, center_lat, center_lng, radius_m)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(zone_id) DO UPDATE SET
			name = excluded.name,
			center_lat = excluded.center_lat,
			center_lng = excluded.center_lng,
			radius_m = excluded.radius_m`,
		z.ID, z.Name, z.CenterLat, z.CenterLng, z.RadiusMeters,
	)
	return err
}

// DeleteZone removes a zone by ID. Deleting a missing zone is not an
// error.
func (s *Store) DeleteZone(id string) error {
	_, err := s.Exec(`DELETE FROM safe_zones WHERE zone_id = ?`, id)
	return err
}

// ListZones returns all configured zones, oldest first.
func (s *Store) ListZones() ([]zones.Zone, error) {
	rows, err := s.Query(`SELECT zone_id, name, center_lat, center_lng, radius_m FROM safe_zones ORDER BY created_at, zone_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zs []zones.Zone
	for rows.Next() {
		var z zones.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.CenterLat, &z.CenterLng, &z.RadiusMeters); err != nil {
			return nil, err
		}
		zs = append(zs, z)
	}
	return zs, rows.Err()
}

// SetHome stores the home reference point, replacing any previous one.
func (s *Store) SetHome(lat, lng float64) error {
	_, err := s.Exec(
		`INSERT INTO home_point (home_id, lat, lng) VALUES (1, ?, ?)
		 ON CONFLICT(home_id) DO UPDATE SET lat = excluded.lat, lng = excluded.lng`,
		lat, lng,
	)
	return err
}

// ClearHome removes the home reference point.
func (s *Store) ClearHome() error {
	_, err := s.Exec(`DELETE FROM home_point WHERE home_id = 1`)
	return err
}

// Home returns the configured home point, or nil when none is set.
func (s *Store) Home() (*geo.Point, error) {
	var lat, lng float64
	err := s.QueryRow(`SELECT lat, lng FROM home_point WHERE home_id = 1`).Scan(&lat, &lng)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &geo.Point{Lat: lat, Lng: lng}, nil
}

// Zones implements zones.Source, letting the monitor pick up
// administrator changes on its next tick.
func (s *Store) Zones() ([]zones.Zone, *geo.Point, error) {
	zs, err := s.ListZones()
	if err != nil {
		return nil, nil, err
	}
	home, err := s.Home()
	if err != nil {
		return nil, nil, err
	}
	return zs, home, nil
}

// RecordSample appends one admitted position sample to the log.
func (s *Store) RecordSample(p geo.Point) error {
	_, err := s.Exec(
		`INSERT INTO samples (lat, lng, accuracy_m, unix_ms) VALUES (?, ?, ?, ?)`,
		p.Lat, p.Lng, p.AccuracyMeters, p.UnixMs,
	)
	return err
}

// ListSamples returns samples with unix_ms in [sinceMs, untilMs],
// oldest first, capped at limit (default 10000 when limit <= 0).
func (s *Store) ListSamples(sinceMs, untilMs int64, limit int) ([]geo.Point, error) {
	if limit <= 0 {
		limit = 10000
	}
	rows, err := s.Query(
		`SELECT lat, lng, accuracy_m, unix_ms FROM samples
		 WHERE unix_ms >= ? AND unix_ms <= ?
		 ORDER BY unix_ms ASC LIMIT ?`,
		sinceMs, untilMs, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []geo.Point
	for rows.Next() {
		var p geo.Point
		var acc sql.NullFloat64
		if err := rows.Scan(&p.Lat, &p.Lng, &acc, &p.UnixMs); err != nil {
			return nil, err
		}
		if acc.Valid {
			p.AccuracyMeters = acc.Float64
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// RecordEvent persists one emitted wandering event.
func (s *Store) RecordEvent(e wander.Event) error {
	var lat, lng sql.NullFloat64
	if e.State.LastKnownLocation != nil {
		lat = sql.NullFloat64{Float64: e.State.LastKnownLocation.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: e.State.LastKnownLocation.Lng, Valid: true}
	}
	_, err := s.Exec(
		`INSERT INTO wander_events (
			event_id, event_type, pattern, confidence, duration_s,
			distance_home_m, outside_zone, lat, lng, unix_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Type), string(e.State.Pattern), e.State.Confidence,
		e.State.DurationSeconds, e.State.DistanceFromHomeMeters,
		boolToInt(e.State.OutsideSafeZone), lat, lng, e.UnixMs,
	)
	return err
}

// ListEvents returns events with unix_ms in [sinceMs, untilMs], newest
// first, capped at limit (default 500 when limit <= 0).
func (s *Store) ListEvents(sinceMs, untilMs int64, limit int) ([]wander.Event, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.Query(
		`SELECT event_id, event_type, pattern, confidence, duration_s,
			distance_home_m, outside_zone, lat, lng, unix_ms
		 FROM wander_events
		 WHERE unix_ms >= ? AND unix_ms <= ?
		 ORDER BY unix_ms DESC LIMIT ?`,
		sinceMs, untilMs, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []wander.Event
	for rows.Next() {
		var e wander.Event
		var eventType, pattern string
		var outside int
		var lat, lng sql.NullFloat64
		if err := rows.Scan(&e.ID, &eventType, &pattern, &e.State.Confidence,
			&e.State.DurationSeconds, &e.State.DistanceFromHomeMeters,
			&outside, &lat, &lng, &e.UnixMs); err != nil {
			return nil, err
		}
		e.Type = wander.EventType(eventType)
		e.State.Pattern = wander.Pattern(pattern)
		e.State.IsWandering = e.State.Pattern != wander.PatternNone
		e.State.OutsideSafeZone = outside != 0
		if lat.Valid && lng.Valid {
			e.State.LastKnownLocation = &geo.Point{Lat: lat.Float64, Lng: lng.Float64, UnixMs: e.UnixMs}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
