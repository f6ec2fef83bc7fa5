// Package api exposes the wandering engine over HTTP: current state,
// safe-zone administration, the event log, a live SSE event stream, and
// sample ingest for companion devices.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elmbrook/wanderguard/internal/config"
	"github.com/elmbrook/wanderguard/internal/geo"
	"github.com/elmbrook/wanderguard/internal/monitoring"
	"github.com/elmbrook/wanderguard/internal/store"
	"github.com/elmbrook/wanderguard/internal/wander"
	"github.com/elmbrook/wanderguard/internal/zones"
)

type Server struct {
	monitor *wander.Monitor
	store   *store.Store
	tuning  *config.Tuning
}

func NewServer(m *wander.Monitor, st *store.Store, tuning *config.Tuning) *Server {
	return &Server{monitor: m, store: st, tuning: tuning}
}

// ServeMux returns the API routes. The caller mounts this under /api.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/state", s.handleState)
	mux.HandleFunc("/params", s.handleParams)
	mux.HandleFunc("/zones", s.handleZones)
	mux.HandleFunc("/zones/", s.handleZoneByID)
	mux.HandleFunc("/home", s.handleHome)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/events/stream", s.handleEventStream)
	mux.HandleFunc("/samples", s.handleSamples)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		monitoring.Logf("api: failed to encode response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleState returns the current wandering state.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.monitor.State())
}

// handleParams returns the effective tuning values.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"buffer_capacity":                s.tuning.GetBufferCapacity(),
		"accuracy_floor_meters":          s.tuning.GetAccuracyFloorMeters(),
		"min_points_for_analysis":        s.tuning.GetMinPointsForAnalysis(),
		"analysis_window":                s.tuning.GetAnalysisWindow(),
		"analysis_interval":              s.tuning.GetAnalysisInterval().String(),
		"circling_ratio_threshold":       s.tuning.GetCirclingRatioThreshold(),
		"min_circling_distance_meters":   s.tuning.GetMinCirclingDistanceMeters(),
		"pacing_reversal_threshold":      s.tuning.GetPacingReversalThreshold(),
		"pacing_reversal_degrees":        s.tuning.GetPacingReversalDegrees(),
		"lost_distance_threshold_meters": s.tuning.GetLostDistanceThresholdMeters(),
	})
}

// handleZones lists or creates safe zones.
func (s *Server) handleZones(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		zs, err := s.store.ListZones()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if zs == nil {
			zs = []zones.Zone{}
		}
		writeJSON(w, http.StatusOK, zs)

	case http.MethodPost:
		var req struct {
			Name         string  `json:"name"`
			CenterLat    float64 `json:"center_lat"`
			CenterLng    float64 `json:"center_lng"`
			RadiusMeters float64 `json:"radius_meters"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
			return
		}
		if req.Name == "" || req.RadiusMeters <= 0 {
			writeJSONError(w, http.StatusBadRequest, "name and a positive radius_meters are required")
			return
		}
		z := zones.NewZone(req.Name, req.CenterLat, req.CenterLng, req.RadiusMeters)
		if err := s.store.UpsertZone(z); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, z)

	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleZoneByID updates or deletes a single zone at /zones/{id}.
func (s *Server) handleZoneByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/zones/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var z zones.Zone
		if err := json.NewDecoder(r.Body).Decode(&z); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
			return
		}
		z.ID = id
		if err := s.store.UpsertZone(z); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, z)

	case http.MethodDelete:
		if err := s.store.DeleteZone(id); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleHome gets, sets or clears the home reference point.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		home, err := s.store.Home()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if home == nil {
			writeJSONError(w, http.StatusNotFound, "no home point configured")
			return
		}
		writeJSON(w, http.StatusOK, home)

	case http.MethodPut:
		var req struct {
			Lat float64 `json:"latitude"`
			Lng float64 `json:"longitude"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
			return
		}
		if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
			writeJSONError(w, http.StatusBadRequest, "coordinates out of range")
			return
		}
		if err := s.store.SetHome(req.Lat, req.Lng); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		if err := s.store.ClearHome(); err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleEvents lists recorded events. Query params: since, until (unix
// ms, defaults to the last 24h) and limit.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	now := time.Now().UnixMilli()
	since := now - 24*time.Hour.Milliseconds()
	until := now
	limit := 0
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "since must be unix milliseconds")
			return
		}
		since = parsed
	}
	if v := r.URL.Query().Get("until"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "until must be unix milliseconds")
			return
		}
		until = parsed
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	events, err := s.store.ListEvents(since, until, limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []wander.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleEventStream bridges the event bus onto Server-Sent Events. The
// first frame is the replayed state snapshot.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	// Bus callbacks run on the classifier tick; forward through a
	// buffered channel so a slow HTTP client cannot stall dispatch.
	eventCh := make(chan wander.Event, 16)
	unsubscribe := s.monitor.Subscribe(func(e wander.Event) {
		select {
		case eventCh <- e:
		default:
			// Client not keeping up; drop rather than block the bus.
		}
	})
	defer unsubscribe()

	for {
		select {
		case e := <-eventCh:
			payload, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// handleSamples ingests position samples posted by a companion device.
// Accepts a single point or an array of points; invalid samples are
// dropped silently, matching the buffer's admission policy.
func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
		return
	}
	var points []geo.Point
	if len(raw) > 0 && raw[0] == '[' {
		if err := json.Unmarshal(raw, &points); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
			return
		}
	} else {
		var single geo.Point
		if err := json.Unmarshal(raw, &single); err != nil {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid body: %v", err))
			return
		}
		points = append(points, single)
	}

	floor := s.tuning.GetAccuracyFloorMeters()
	accepted := 0
	for _, p := range points {
		s.monitor.Ingest(p)
		if !p.Valid() || (floor > 0 && p.AccuracyMeters > floor) {
			continue // dropped by the buffer's admission policy too
		}
		accepted++
		if err := s.store.RecordSample(p); err != nil {
			monitoring.Logf("api: failed to record sample: %v", err)
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": accepted})
}
