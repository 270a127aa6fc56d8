package engine

import (
	"sync"

	"github.com/roach88/roster/internal/ir"
)

// Submission is an event waiting to be applied, tagged with the batch it
// arrived in.
type Submission struct {
	BatchID string
	Event   ir.Event
}

// eventQueue is a thread-safe FIFO queue of submissions.
//
// The queue is unbounded so that producers never block on the writer.
// Thread-safety is provided for external enqueuing while the Engine's Run
// loop dequeues.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type eventQueue struct {
	mu     sync.Mutex
	items  []Submission
	closed bool
	signal chan struct{} // Signals availability (buffered, size 1)
}

// newEventQueue creates an empty queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		items:  make([]Submission, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a submission to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(s Submission) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, s)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Submission{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Submission, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Submission{}, false
	}

	s := q.items[0]

	// Clear the slot so the event can be collected.
	q.items[0] = Submission{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return s, true
}

// Wait returns a channel that signals when submissions may be available.
// The channel is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close signals that no more submissions will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
