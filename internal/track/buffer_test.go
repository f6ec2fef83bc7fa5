package track

import (
	"sync"
	"testing"

	"github.com/elmbrook/wanderguard/internal/geo"
)

func pt(i int) geo.Point {
	return geo.Point{Lat: float64(i) * 0.0001, Lng: 0, UnixMs: int64(i + 1), AccuracyMeters: 5}
}

func TestNewBufferValidation(t *testing.T) {
	if _, err := NewBuffer(0, 0); err == nil {
		t.Error("expected error for zero capacity")
	}
	if _, err := NewBuffer(-1, 0); err == nil {
		t.Error("expected error for negative capacity")
	}
	if _, err := NewBuffer(10, -1); err == nil {
		t.Error("expected error for negative accuracy floor")
	}
	b, err := NewBuffer(10, 50)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if b.Capacity() != 10 {
		t.Errorf("Capacity = %d, want 10", b.Capacity())
	}
}

func TestAppendAndSnapshotOrder(t *testing.T) {
	b, err := NewBuffer(5, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		b.Append(pt(i))
	}
	if b.Len() != 3 {
		t.Fatalf("Len = %d, want 3", b.Len())
	}
	snap := b.Snapshot()
	for i, p := range snap {
		if p.UnixMs != int64(i+1) {
			t.Errorf("snapshot[%d].UnixMs = %d, want %d", i, p.UnixMs, i+1)
		}
	}
}

func TestAppendEvictsOldest(t *testing.T) {
	b, err := NewBuffer(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		b.Append(pt(i))
	}
	if b.Len() != 3 {
		t.Fatalf("Len = %d, want 3", b.Len())
	}
	snap := b.Snapshot()
	// Points 0 and 1 were evicted; 2, 3, 4 remain in order.
	want := []int64{3, 4, 5}
	for i, p := range snap {
		if p.UnixMs != want[i] {
			t.Errorf("snapshot[%d].UnixMs = %d, want %d", i, p.UnixMs, want[i])
		}
	}
}

func TestAppendDropsInvalid(t *testing.T) {
	b, err := NewBuffer(5, 0)
	if err != nil {
		t.Fatal(err)
	}
	b.Append(geo.Point{Lat: 91, Lng: 0, UnixMs: 1})  // latitude out of range
	b.Append(geo.Point{Lat: 0, Lng: 181, UnixMs: 1}) // longitude out of range
	b.Append(geo.Point{Lat: 0, Lng: 0, UnixMs: 0})   // missing timestamp
	if b.Len() != 0 {
		t.Errorf("Len = %d after invalid appends, want 0", b.Len())
	}
}

func TestAppendDropsAboveAccuracyFloor(t *testing.T) {
	b, err := NewBuffer(5, 50)
	if err != nil {
		t.Fatal(err)
	}
	b.Append(geo.Point{Lat: 0, Lng: 0, UnixMs: 1, AccuracyMeters: 51})
	if b.Len() != 0 {
		t.Errorf("Len = %d after low-accuracy append, want 0", b.Len())
	}
	b.Append(geo.Point{Lat: 0, Lng: 0, UnixMs: 2, AccuracyMeters: 50})
	if b.Len() != 1 {
		t.Errorf("Len = %d after floor-accuracy append, want 1", b.Len())
	}

	// Zero floor accepts everything valid.
	open, err := NewBuffer(5, 0)
	if err != nil {
		t.Fatal(err)
	}
	open.Append(geo.Point{Lat: 0, Lng: 0, UnixMs: 1, AccuracyMeters: 9999})
	if open.Len() != 1 {
		t.Errorf("Len = %d with disabled floor, want 1", open.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	b, err := NewBuffer(5, 0)
	if err != nil {
		t.Fatal(err)
	}
	b.Append(pt(0))
	snap := b.Snapshot()
	snap[0].Lat = 89
	if got := b.Snapshot()[0].Lat; got == 89 {
		t.Error("mutating the snapshot leaked into the buffer")
	}
}

func TestClear(t *testing.T) {
	b, err := NewBuffer(3, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		b.Append(pt(i))
	}
	b.Clear()
	if b.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", b.Len())
	}
	// The ring must keep working after a clear mid-wrap.
	b.Append(pt(10))
	snap := b.Snapshot()
	if len(snap) != 1 || snap[0].UnixMs != 11 {
		t.Errorf("snapshot after Clear = %+v, want single point with UnixMs 11", snap)
	}
}

func TestConcurrentAppendSnapshot(t *testing.T) {
	b, err := NewBuffer(16, 0)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				b.Append(pt(w*200 + i))
			}
		}(w)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = b.Snapshot()
			_ = b.Len()
		}
	}()
	wg.Wait()
	if b.Len() != 16 {
		t.Errorf("Len = %d after concurrent fill, want 16", b.Len())
	}
}
