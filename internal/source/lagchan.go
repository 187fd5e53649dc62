package source

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/chengang12345632/media-test-sub001/internal/segment"
)

// LagChannel is a bounded, single-consumer segment queue that mimics a
// broadcast channel's Lagged semantics (spec §4.1 Live variant): when the
// buffer is full, Send drops the oldest queued segment to make room for
// the newest one rather than blocking the QUIC ingress reader — live video
// is real-time, so a slow consumer should skip forward, not stall the
// feed. Recv reports how many segments were dropped since the previous
// Recv so the caller can log the skip the way a tokio::broadcast consumer
// observes RecvError::Lagged.
type LagChannel struct {
	mu     sync.Mutex
	buf    []*segment.VideoSegment
	cap    int
	closed bool
	notify chan struct{}

	dropped atomic.Int64
}

// NewLagChannel creates a channel with the given buffer capacity.
func NewLagChannel(capacity int) *LagChannel {
	if capacity <= 0 {
		capacity = 1000
	}
	return &LagChannel{cap: capacity, notify: make(chan struct{}, 1)}
}

func (c *LagChannel) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Send enqueues a segment, dropping the oldest buffered one if full.
func (c *LagChannel) Send(seg *segment.VideoSegment) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if len(c.buf) >= c.cap {
		c.buf = c.buf[1:]
		c.dropped.Add(1)
	}
	c.buf = append(c.buf, seg)
	c.mu.Unlock()
	c.wake()
}

// Close marks the channel closed; pending Recv calls return ok=false.
func (c *LagChannel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wake()
}

// Recv blocks until a segment is available, the channel is closed, or ctx
// is cancelled. It reports the number of segments dropped since the last
// Recv alongside the next segment.
func (c *LagChannel) Recv(ctx context.Context) (seg *segment.VideoSegment, skipped int64, ok bool, err error) {
	for {
		c.mu.Lock()
		if len(c.buf) > 0 {
			seg = c.buf[0]
			c.buf = c.buf[1:]
			skipped = c.dropped.Swap(0)
			c.mu.Unlock()
			return seg, skipped, true, nil
		}
		if c.closed {
			skipped = c.dropped.Swap(0)
			c.mu.Unlock()
			return nil, skipped, false, nil
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, 0, false, ctx.Err()
		case <-c.notify:
		}
	}
}

// Drain discards any buffered segments without returning them and reports
// how many were discarded.
func (c *LagChannel) Drain() (dropped int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dropped = int64(len(c.buf))
	c.buf = nil
	return dropped
}
