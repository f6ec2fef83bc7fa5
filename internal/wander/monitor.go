package wander

import (
	"sync"

	"github.com/elmbrook/wanderguard/internal/config"
	"github.com/elmbrook/wanderguard/internal/geo"
	"github.com/elmbrook/wanderguard/internal/monitoring"
	"github.com/elmbrook/wanderguard/internal/timeutil"
	"github.com/elmbrook/wanderguard/internal/track"
	"github.com/elmbrook/wanderguard/internal/zones"
)

// PositionSource is the external capability that produces position
// samples. Watch installs the callbacks and returns a cancel function
// releasing the subscription. Source failures (permission, device error)
// arrive on onErr and never affect already-buffered samples.
type PositionSource interface {
	Watch(onSample func(geo.Point), onErr func(error)) (cancel func(), err error)
}

// EventRecorder persists emitted events. Optional; recording failures
// are logged, never propagated into the classification pass.
type EventRecorder interface {
	RecordEvent(e Event) error
}

// Monitor wires the trajectory buffer, classifier, state store and event
// bus into a tracking session. Exactly one classification pass runs at a
// time, on a periodic tick independent of sample ingestion.
type Monitor struct {
	cfg        *config.Tuning
	clock      timeutil.Clock
	buffer     *track.Buffer
	classifier *Classifier
	states     *StateStore
	bus        *Bus
	zoneSource zones.Source
	source     PositionSource
	recorder   EventRecorder

	mu           sync.Mutex
	running      bool
	stopCh       chan struct{}
	doneCh       chan struct{}
	cancelSource func()
}

// MonitorOption customises a Monitor at construction.
type MonitorOption func(*Monitor)

// WithRecorder attaches an event recorder (typically the sqlite store).
func WithRecorder(r EventRecorder) MonitorOption {
	return func(m *Monitor) { m.recorder = r }
}

// NewMonitor builds a Monitor from validated tuning and injected
// collaborators. cfg must already have passed Validate; the buffer
// constructor re-checks the derived values and rejects nonsense.
func NewMonitor(cfg *config.Tuning, clock timeutil.Clock, src PositionSource, zoneSource zones.Source, opts ...MonitorOption) (*Monitor, error) {
	buf, err := track.NewBuffer(cfg.GetBufferCapacity(), cfg.GetAccuracyFloorMeters())
	if err != nil {
		return nil, err
	}
	states := NewStateStore(clock)
	m := &Monitor{
		cfg:        cfg,
		clock:      clock,
		buffer:     buf,
		classifier: NewClassifier(cfg),
		states:     states,
		bus:        NewBus(states.Current),
		zoneSource: zoneSource,
		source:     src,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// State returns the current wandering state.
func (m *Monitor) State() State {
	return m.states.Current()
}

// BufferLen returns the number of buffered samples.
func (m *Monitor) BufferLen() int {
	return m.buffer.Len()
}

// Subscribe registers a callback on the event bus; the callback is first
// invoked with a snapshot of the current state.
func (m *Monitor) Subscribe(cb func(Event)) (unsubscribe func()) {
	return m.bus.Subscribe(cb)
}

// Ingest feeds one sample into the trajectory buffer. Invalid samples
// are dropped silently. Safe to call concurrently with a running
// classification pass.
func (m *Monitor) Ingest(p geo.Point) {
	m.buffer.Append(p)
}

// Start installs the position-source subscription and starts the
// periodic classification ticker. Calling Start while running is a
// no-op.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	cancel, err := m.source.Watch(m.Ingest, func(err error) {
		monitoring.Logf("position source error: %v", err)
	})
	if err != nil {
		return err
	}
	m.cancelSource = cancel

	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.running = true
	go m.run(m.stopCh, m.doneCh)
	return nil
}

// Stop cancels the ticker, releases the position-source subscription,
// clears the buffer and resets the state to neutral. Calling Stop while
// stopped is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopCh)
	cancel := m.cancelSource
	m.cancelSource = nil
	done := m.doneCh
	m.mu.Unlock()

	<-done
	if cancel != nil {
		cancel()
	}
	m.buffer.Clear()
	m.states.Reset()
}

// run is the single-writer classification loop. A tick either completes
// a full pass or skips entirely; there is no mid-pass cancellation.
func (m *Monitor) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	ticker := m.clock.NewTicker(m.cfg.GetAnalysisInterval())
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			m.tick()
		}
	}
}

// tick runs one classification pass over a consistent buffer snapshot.
func (m *Monitor) tick() {
	snapshot := m.buffer.Snapshot()
	if len(snapshot) == 0 {
		return
	}
	last := snapshot[len(snapshot)-1]

	zs, home, err := m.zoneSource.Zones()
	if err != nil {
		monitoring.Logf("zone source error, skipping tick: %v", err)
		return
	}
	ev := zones.Evaluate(last, zs, home)

	cl, ok := m.classifier.Classify(snapshot, ev)
	if !ok {
		// Below the minimum point count: prior state persists.
		return
	}

	events := m.states.Apply(cl, ev, &last)
	for _, e := range events {
		if m.recorder != nil {
			if err := m.recorder.RecordEvent(e); err != nil {
				monitoring.Logf("failed to record event %s: %v", e.Type, err)
			}
		}
	}
	m.bus.Publish(events)
}
