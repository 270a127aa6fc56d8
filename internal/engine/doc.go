// Package engine implements the roster single-writer application loop.
//
// The engine receives events, stamps them with a logical seq, appends them
// to the durable log, and folds them into the membership index through
// membership.Reduce. The current index is published through an atomic
// pointer so readers on any goroutine see a consistent immutable snapshot.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All events are applied in one goroutine. This ensures:
// - Events are applied strictly in the order they were enqueued
// - The log order and the fold order are the same
// - Replaying the log reproduces the published index exactly
//
// Event Processing Flow:
// 1. Submissions are enqueued to a FIFO queue (Enqueue) or applied directly (Apply)
// 2. Run() dequeues submissions one at a time
// 3. Apply() stamps seq, appends to the store, reduces, publishes
// 4. Every N applied events a snapshot of the index is written
//
// Recovery loads the latest snapshot and folds the tail of the log; the
// clock resumes after the last logged seq.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Every event carries a seq reserved with Clock.Peek and committed with
// Clock.Advance once it is in the log. NEVER use wall-clock timestamps for
// ordering.
//
// Persist Before Publish:
// An event that fails to reach the log is not applied to the index, so the
// published index never runs ahead of what replay can rebuild.
package engine
