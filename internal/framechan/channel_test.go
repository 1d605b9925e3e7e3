package framechan

import (
	"testing"

	"rewind/internal/frame"
)

func TestPublishNeverBlocksOnOverflow(t *testing.T) {
	pool := frame.New(4, 16)
	ch := New(pool, 3)

	for i := 0; i < 10; i++ {
		ch.Publish(Frame{Buf: pool.Rent(), Valid: 4})
	}

	if got := ch.Len(); got != 3 {
		t.Fatalf("expected queue capped at 3, got %d", got)
	}
	if got := ch.Dropped(); got != 7 {
		t.Fatalf("expected 7 drops, got %d", got)
	}
}

func TestNextFIFOOrder(t *testing.T) {
	pool := frame.New(1, 8)
	ch := New(pool, 3)

	for i := byte(1); i <= 3; i++ {
		buf := pool.Rent()
		buf[0] = i
		ch.Publish(Frame{Buf: buf, Valid: 1})
	}

	for i := byte(1); i <= 3; i++ {
		f, ok := ch.Next()
		if !ok {
			t.Fatalf("expected frame %d, got closed", i)
		}
		if f.Buf[0] != i {
			t.Fatalf("expected FIFO order, got %d want %d", f.Buf[0], i)
		}
		pool.Release(f.Buf)
	}
}

func TestCloseReleasesQueuedBuffers(t *testing.T) {
	pool := frame.New(4, 16)
	ch := New(pool, 3)

	ch.Publish(Frame{Buf: pool.Rent(), Valid: 4})
	ch.Publish(Frame{Buf: pool.Rent(), Valid: 4})

	before := pool.Stats()
	ch.Close()

	_, ok := ch.Next()
	if ok {
		t.Fatalf("expected Next to report closed with empty queue")
	}

	buf := pool.Rent()
	if len(buf) != 4 {
		t.Fatalf("pool corrupted after channel close")
	}
	after := pool.Stats()
	if after.Allocations > before.Allocations+1 {
		t.Fatalf("expected released buffers to be reused, not reallocated")
	}
}

func TestPublishAfterCloseReleasesImmediately(t *testing.T) {
	pool := frame.New(2, 4)
	ch := New(pool, 3)
	ch.Close()

	ch.Publish(Frame{Buf: pool.Rent(), Valid: 2})
	if got := ch.Len(); got != 0 {
		t.Fatalf("expected no queued frames after closed publish, got %d", got)
	}
}
