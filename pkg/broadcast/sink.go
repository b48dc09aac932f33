package broadcast

import (
	"sync"
	"sync/atomic"
)

// Sink is the write end of one subscriber's push channel.
// Push must not block; an error marks the subscriber as dead.
type Sink interface {
	Push(ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event) error

func (f SinkFunc) Push(ev Event) error { return f(ev) }

// Queue is a bounded FIFO sink. The dispatcher writes into it and the stream
// session drains Events() onto the transport, so dispatch never waits on
// network writes. A full queue rejects the push: a subscriber that cannot
// keep up is treated like one whose transport is gone.
type Queue struct {
	ch     chan Event
	closed bool
	mu     sync.RWMutex
}

// NewQueue creates a queue holding up to size pending events (minimum 1).
func NewQueue(size int) *Queue {
	return &Queue{ch: make(chan Event, max(size, 1))}
}

func (q *Queue) Push(ev Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrSinkClosed
	}
	select {
	case q.ch <- ev:
		return nil
	default:
		return ErrSinkFull
	}
}

// Events is closed once the queue is closed and drained.
func (q *Queue) Events() <-chan Event {
	return q.ch
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close is idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Counter tracks live subscriber handles across all rooms.
// It is diagnostic only; Dec never goes below zero.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() int64 {
	return c.n.Add(1)
}

func (c *Counter) Dec() int64 {
	for {
		cur := c.n.Load()
		if cur <= 0 {
			return 0
		}
		if c.n.CompareAndSwap(cur, cur-1) {
			return cur - 1
		}
	}
}

func (c *Counter) Value() int64 {
	return c.n.Load()
}
