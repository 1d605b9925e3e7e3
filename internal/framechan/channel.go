// Package framechan implements the non-blocking, drop-oldest hand-off
// between the capture loop and the encoder writer task. Capture must never
// stall waiting on the encoder, so Publish never blocks; the channel drops
// the oldest queued frame instead, returning its buffer to the frame pool.
package framechan

import (
	"sync"
	"sync/atomic"

	"rewind/internal/frame"
)

// DefaultCapacity is the channel's default queue depth (spec: 3).
const DefaultCapacity = 3

// Frame pairs a rented buffer with the number of valid bytes it carries.
// Ownership moves capture -> channel -> writer -> pool exactly once per
// Frame; Next()'s caller is responsible for releasing Buf back to the pool
// it came from once done with it.
type Frame struct {
	Buf   []byte
	Valid int
}

// Channel is a bounded, single-producer/single-consumer, drop-oldest queue.
type Channel struct {
	pool *frame.Pool

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Frame
	cap    int
	closed bool

	dropped uint64
}

// New creates a Channel with the given capacity (DefaultCapacity if cap<=0)
// that returns overflowed buffers to pool.
func New(pool *frame.Pool, capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Channel{
		pool: pool,
		cap:  capacity,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Publish enqueues f. If the channel is at capacity, the oldest queued
// frame is dropped (its buffer released to the pool) to make room. Publish
// never blocks and never fails; a Publish after Close is a silent no-op
// with the buffer released immediately, since there is no reader left to
// consume it.
func (c *Channel) Publish(f Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		c.pool.Release(f.Buf)
		return
	}

	if len(c.queue) >= c.cap {
		oldest := c.queue[0]
		c.queue = c.queue[1:]
		c.pool.Release(oldest.Buf)
		atomic.AddUint64(&c.dropped, 1)
	}

	c.queue = append(c.queue, f)
	c.cond.Signal()
}

// Next blocks until a frame is available or the channel is closed. It
// returns ok=false only after Close, once the queue has drained.
func (c *Channel) Next() (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.queue) == 0 && !c.closed {
		c.cond.Wait()
	}

	if len(c.queue) == 0 {
		return Frame{}, false
	}

	f := c.queue[0]
	c.queue = c.queue[1:]
	return f, true
}

// Close marks the channel closed and wakes any blocked reader. Frames
// still queued at close time are drained and their buffers released back
// to the pool so no buffer is leaked if the writer task exits before
// draining the channel itself.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for _, f := range c.queue {
		c.pool.Release(f.Buf)
	}
	c.queue = nil
	c.cond.Broadcast()
}

// Dropped returns the monotonic count of frames dropped due to overflow.
func (c *Channel) Dropped() uint64 {
	return atomic.LoadUint64(&c.dropped)
}

// Len reports the number of frames currently queued, for diagnostics.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
