package wander

import (
	crand "crypto/rand"
	"encoding/hex"
	"sync"
)

// Bus is the subscriber registry for wandering events. Dispatch is
// synchronous and in subscription order; the subscriber list is
// snapshotted at dispatch start so an unsubscribe during dispatch takes
// effect before the removed callback would next be invoked.
type Bus struct {
	mu      sync.Mutex
	subs    map[string]func(Event)
	order   []string
	current func() State
}

// NewBus creates a Bus. current supplies the state replayed to each new
// subscriber.
func NewBus(current func() State) *Bus {
	return &Bus{
		subs:    make(map[string]func(Event)),
		current: current,
	}
}

// randomID generates a random subscriber ID (8 byte random hex value).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe registers cb and immediately invokes it exactly once with a
// snapshot event carrying the current state, then once per event on every
// subsequent publish. The returned function removes the subscription; no
// invocations occur after it returns.
func (b *Bus) Subscribe(cb func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := randomID()
	b.subs[id] = cb
	b.order = append(b.order, id)
	replay := Event{Type: EventSnapshot, State: b.current()}
	b.mu.Unlock()

	// Replay outside the lock so the callback may subscribe/unsubscribe.
	cb(replay)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		for i, sid := range b.order {
			if sid == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers each event to every subscriber, synchronously, in
// subscription order. A slow callback delays later subscribers within
// this call but never blocks a future publish.
func (b *Bus) Publish(events []Event) {
	if len(events) == 0 {
		return
	}

	b.mu.Lock()
	ids := append([]string(nil), b.order...)
	b.mu.Unlock()

	for _, e := range events {
		for _, id := range ids {
			// Re-check liveness per delivery: a subscriber removed
			// mid-dispatch must not be invoked again.
			b.mu.Lock()
			cb := b.subs[id]
			b.mu.Unlock()
			if cb != nil {
				cb(e)
			}
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
