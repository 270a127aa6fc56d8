package engine

import "sync/atomic"

// Clock hands out the logical seq that orders the event log.
//
// A seq is reserved with Peek and only becomes current once Advance commits
// it, after the event has reached the log. A failed append therefore leaves
// no gap. Reads are safe from any goroutine; Peek and Advance belong to the
// single writer.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first seq is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned after start, so the next seq is
// start+1. Recovery uses it to resume after the last logged event.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Current returns the last committed seq, or 0 before any event.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Peek returns the seq the next event will carry.
func (c *Clock) Peek() int64 {
	return c.seq.Load() + 1
}

// Advance commits seq if it is exactly the one Peek returned. It reports
// false when another caller moved the clock in between.
func (c *Clock) Advance(seq int64) bool {
	return c.seq.CompareAndSwap(seq-1, seq)
}

// Resume repositions the clock at seq, discarding the previous position.
func (c *Clock) Resume(seq int64) {
	c.seq.Store(seq)
}
