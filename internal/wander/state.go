// Package wander implements the wandering-detection engine: it
// classifies the recent trajectory into behavioural patterns, maintains
// the single current state, and emits edge-triggered events to
// subscribers.
package wander

import (
	"github.com/elmbrook/wanderguard/internal/geo"
)

// Pattern is the behavioural classification of recent movement.
type Pattern string

const (
	PatternNone     Pattern = "none"
	PatternCircling Pattern = "circling" // high path length, low net displacement
	PatternPacing   Pattern = "pacing"   // repeated near-180° direction reversals
	PatternLost     Pattern = "lost"     // outside all zones and far from home
)

// State is the engine's single current view of the monitored person.
// Every classifier tick replaces it wholesale; readers never observe a
// partially updated value.
type State struct {
	IsWandering            bool       `json:"is_wandering"`
	Pattern                Pattern    `json:"wandering_type"`
	Confidence             float64    `json:"confidence"`
	DurationSeconds        float64    `json:"duration_seconds"`
	DistanceFromHomeMeters float64    `json:"distance_from_home_meters"`
	OutsideSafeZone        bool       `json:"outside_safe_zone"`
	LastKnownLocation      *geo.Point `json:"last_known_location,omitempty"`
}

// NeutralState is the state before any classification has run and after
// stopTracking resets the store.
func NeutralState() State {
	return State{Pattern: PatternNone}
}

// EventType identifies an edge-triggered transition.
type EventType string

const (
	// EventWanderingStart fires when IsWandering flips false→true.
	EventWanderingStart EventType = "wandering_start"
	// EventWanderingEnd fires when IsWandering flips true→false.
	EventWanderingEnd EventType = "wandering_end"
	// EventLeftSafeZone fires when OutsideSafeZone flips false→true.
	EventLeftSafeZone EventType = "left_safe_zone"
	// EventReturnedSafe fires when OutsideSafeZone flips true→false.
	EventReturnedSafe EventType = "returned_safe"
	// EventSnapshot is the replay delivered once to each new
	// subscriber; it carries the current state and marks no transition.
	EventSnapshot EventType = "snapshot"
)

// Event is an immutable notification constructed at emission time. State
// is a value snapshot, safe to retain.
type Event struct {
	ID     string    `json:"id"`
	Type   EventType `json:"type"`
	State  State     `json:"state"`
	UnixMs int64     `json:"timestamp_ms"`
}
