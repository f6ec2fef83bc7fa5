// Package track maintains the bounded trajectory history of position
// samples feeding the wandering classifier.
package track

import (
	"fmt"
	"sync"

	"github.com/elmbrook/wanderguard/internal/geo"
)

// Buffer is a fixed-capacity ring of position samples with FIFO
// eviction. Appends may interleave with snapshot reads; the lock covers
// only the small append/evict and copy-out sections.
type Buffer struct {
	mu       sync.Mutex
	points   []geo.Point
	head     int // index of the oldest point
	size     int
	capacity int

	// accuracyFloor rejects samples whose reported accuracy is worse
	// than this many meters. Zero disables the check.
	accuracyFloor float64
}

// NewBuffer creates a Buffer holding at most capacity points. Samples
// with a reported accuracy worse than accuracyFloorMeters are dropped;
// pass 0 to accept any accuracy.
func NewBuffer(capacity int, accuracyFloorMeters float64) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer capacity must be positive, got %d", capacity)
	}
	if accuracyFloorMeters < 0 {
		return nil, fmt.Errorf("accuracy floor must be non-negative, got %f", accuracyFloorMeters)
	}
	return &Buffer{
		points:        make([]geo.Point, capacity),
		capacity:      capacity,
		accuracyFloor: accuracyFloorMeters,
	}, nil
}

// Append adds a sample, evicting the oldest when full. Invalid samples
// (bad coordinates, bad timestamp, accuracy above the floor) are dropped
// silently; Append never fails and never leaves the ring inconsistent.
func (b *Buffer) Append(p geo.Point) {
	if !p.Valid() {
		return
	}
	if b.accuracyFloor > 0 && p.AccuracyMeters > b.accuracyFloor {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.size < b.capacity {
		b.points[(b.head+b.size)%b.capacity] = p
		b.size++
		return
	}
	// Full: overwrite the oldest slot and advance the head.
	b.points[b.head] = p
	b.head = (b.head + 1) % b.capacity
}

// Snapshot returns a copy of the buffered samples in insertion order,
// oldest first. The returned slice is owned by the caller.
func (b *Buffer) Snapshot() []geo.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]geo.Point, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.points[(b.head+i)%b.capacity]
	}
	return out
}

// Len returns the number of buffered samples.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Capacity returns the fixed capacity of the ring.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Clear discards all buffered samples.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}
