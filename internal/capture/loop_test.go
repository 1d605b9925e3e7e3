package capture

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"rewind/internal/frame"
	"rewind/internal/framechan"
)

// fakeDuplicator feeds a scripted sequence of acquire outcomes: each entry
// is either a byte to fill the frame with (success) or nil (miss).
type fakeDuplicator struct {
	mu        sync.Mutex
	script    []*byte
	i         int
	recovered int
	failNext  bool
}

func (f *fakeDuplicator) AcquireFrame(dst []byte) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failNext {
		f.failNext = false
		return false, fmt.Errorf("simulated device error")
	}

	if f.i >= len(f.script) {
		return false, nil
	}
	v := f.script[f.i]
	f.i++
	if v == nil {
		return false, nil
	}
	for i := range dst {
		dst[i] = *v
	}
	return true, nil
}

func (f *fakeDuplicator) Recover() error {
	f.mu.Lock()
	f.recovered++
	f.mu.Unlock()
	return nil
}

func byteVal(b byte) *byte { return &b }

func TestLoopRepublishesLastValidOnShortMiss(t *testing.T) {
	pool := frame.New(4, 16)
	ch := framechan.New(pool, 8)

	dup := &fakeDuplicator{script: []*byte{byteVal(1), nil, nil}}
	loop := New(pool, ch, dup, 1000, 4)

	ctx, cancel := context.WithCancel(context.Background())

	var published []byte
	go func() {
		for i := 0; i < 3; i++ {
			f, ok := ch.Next()
			if !ok {
				return
			}
			published = append(published, f.Buf[0])
			pool.Release(f.Buf)
		}
		cancel()
	}()

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("loop did not exit after cancel")
	}

	if len(published) < 3 {
		t.Fatalf("expected at least 3 published frames, got %d", len(published))
	}
	for _, v := range published[:3] {
		if v != 1 {
			t.Fatalf("expected republished last-valid byte 1, got %d", v)
		}
	}
}

func TestLoopRecoversAfterSustainedMisses(t *testing.T) {
	pool := frame.New(4, 16)
	ch := framechan.New(pool, 8)

	script := make([]*byte, 0, 12)
	script = append(script, byteVal(9))
	for i := 0; i < 11; i++ {
		script = append(script, nil)
	}
	dup := &fakeDuplicator{script: script}
	loop := New(pool, ch, dup, 2000, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go func() {
		for {
			f, ok := ch.Next()
			if !ok {
				return
			}
			pool.Release(f.Buf)
		}
	}()

	loop.Run(ctx)
	ch.Close()

	dup.mu.Lock()
	recovered := dup.recovered
	dup.mu.Unlock()

	if recovered == 0 {
		t.Fatalf("expected at least one recovery attempt after sustained misses")
	}
}
