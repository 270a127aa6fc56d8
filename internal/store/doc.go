// Package store provides SQLite-backed durable storage for the roster event log.
//
// The store is an append-only log with:
//   - Events: every envelope applied to the membership index, stamped with
//     the engine's logical seq and the batch it arrived in
//   - Snapshots: the index as of a given seq, so recovery does not need to
//     fold the whole log
//
// # Ordering
//
// All ordering uses the seq INTEGER primary key (logical clock), never
// timestamps. Every read orders by seq ASC so that replay is deterministic.
//
// # Idempotency
//
// Event ids are content-addressed (ir.EventID) and UNIQUE, snapshots are
// keyed by seq. Writing either twice is a silent no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
