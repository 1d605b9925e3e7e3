package frame

import "testing"

func TestRentReleaseRoundTrip(t *testing.T) {
	p := New(1024, 4)

	buf := p.Rent()
	if len(buf) != 1024 {
		t.Fatalf("rented buffer has len %d, want 1024", len(buf))
	}

	p.Release(buf)

	buf2 := p.Rent()
	if len(buf2) != 1024 {
		t.Fatalf("re-rented buffer has len %d, want 1024", len(buf2))
	}

	stats := p.Stats()
	if stats.Hits != 1 {
		t.Fatalf("expected 1 pool hit after release+rent, got %d", stats.Hits)
	}
}

func TestRentNeverFailsWhenEmpty(t *testing.T) {
	p := New(64, 2)
	for i := 0; i < 10; i++ {
		buf := p.Rent()
		if len(buf) != 64 {
			t.Fatalf("iteration %d: got len %d", i, len(buf))
		}
	}
	stats := p.Stats()
	if stats.Allocations != 10 {
		t.Fatalf("expected 10 fresh allocations, got %d", stats.Allocations)
	}
}

func TestReleaseNoOpAtCapacity(t *testing.T) {
	p := New(32, 2)
	bufs := make([][]byte, 3)
	for i := range bufs {
		bufs[i] = p.Rent()
	}
	for _, b := range bufs {
		p.Release(b)
	}

	p.mu.Lock()
	free := len(p.free)
	p.mu.Unlock()

	if free != 2 {
		t.Fatalf("expected free list capped at 2, got %d", free)
	}
}

func TestReleaseWrongSizeDropped(t *testing.T) {
	p := New(16, 4)
	p.Release(make([]byte, 8))

	p.mu.Lock()
	free := len(p.free)
	p.mu.Unlock()

	if free != 0 {
		t.Fatalf("expected wrong-size buffer to be dropped, free list has %d", free)
	}
}

func TestWarmup(t *testing.T) {
	p := New(128, 8)
	p.Warmup(4)

	for i := 0; i < 4; i++ {
		p.Rent()
	}
	stats := p.Stats()
	if stats.Hits != 4 {
		t.Fatalf("expected 4 hits after warmup, got %d", stats.Hits)
	}
}

func TestHitRate(t *testing.T) {
	s := Stats{Hits: 7, Allocations: 3}
	if got := s.HitRate(); got != 0.7 {
		t.Fatalf("expected hit rate 0.7, got %v", got)
	}

	var zero Stats
	if got := zero.HitRate(); got != 0 {
		t.Fatalf("expected 0 hit rate with no rents, got %v", got)
	}
}
