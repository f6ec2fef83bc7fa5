package wander

import (
	"sync"
	"time"

	"github.com/elmbrook/wanderguard/internal/geo"
	"github.com/elmbrook/wanderguard/internal/timeutil"
	"github.com/elmbrook/wanderguard/internal/zones"
	"github.com/google/uuid"
)

// StateStore holds the single current State, applies atomic wholesale
// replacements, and detects edge transitions. Only Apply mutates the
// state; readers always get a consistent value copy.
type StateStore struct {
	mu    sync.Mutex
	cur   State
	clock timeutil.Clock

	// wanderingSince is the instant IsWandering most recently became
	// true; zero while not wandering.
	wanderingSince time.Time
}

// NewStateStore creates a store holding the neutral state.
func NewStateStore(clock timeutil.Clock) *StateStore {
	return &StateStore{cur: NeutralState(), clock: clock}
}

// Current returns a copy of the current state.
func (s *StateStore) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// Reset restores the neutral state without emitting events. Used by
// stopTracking so a later session starts clean.
func (s *StateStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = NeutralState()
	s.wanderingSince = time.Time{}
}

// Apply replaces the current state from a classification result and the
// safe-zone evaluation of the latest sample, returning the edge-triggered
// events the transition produced (zone transitions first, then wandering
// transitions). Apply never fails: out-of-range confidence is clamped,
// not propagated as an error.
func (s *StateStore) Apply(cl Classification, ev zones.Evaluation, last *geo.Point) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	prev := s.cur

	next := State{
		IsWandering:            cl.Pattern != PatternNone,
		Pattern:                cl.Pattern,
		Confidence:             clamp01(cl.Confidence),
		DistanceFromHomeMeters: ev.DistanceFromHomeMeters,
		OutsideSafeZone:        ev.OutsideSafeZone,
		LastKnownLocation:      last,
	}
	if next.Pattern == PatternNone {
		next.Confidence = 0
	}

	// Duration counts from the instant wandering most recently became
	// true and resets to zero on any transition back to none.
	switch {
	case next.IsWandering && !prev.IsWandering:
		s.wanderingSince = now
	case !next.IsWandering:
		s.wanderingSince = time.Time{}
	}
	if next.IsWandering {
		next.DurationSeconds = s.clock.Since(s.wanderingSince).Seconds()
	}

	s.cur = next

	var events []Event
	if !prev.OutsideSafeZone && next.OutsideSafeZone {
		events = append(events, s.newEventLocked(EventLeftSafeZone, now))
	}
	if prev.OutsideSafeZone && !next.OutsideSafeZone {
		events = append(events, s.newEventLocked(EventReturnedSafe, now))
	}
	if !prev.IsWandering && next.IsWandering {
		events = append(events, s.newEventLocked(EventWanderingStart, now))
	}
	if prev.IsWandering && !next.IsWandering {
		events = append(events, s.newEventLocked(EventWanderingEnd, now))
	}
	return events
}

func (s *StateStore) newEventLocked(t EventType, now time.Time) Event {
	return Event{
		ID:     uuid.NewString(),
		Type:   t,
		State:  s.cur,
		UnixMs: now.UnixMilli(),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
