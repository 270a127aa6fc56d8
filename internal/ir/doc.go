// Package ir provides the event types and wire representation for roster.
//
// This package contains the event union, its JSON envelope codec, canonical
// JSON and content-addressed hashing. All other internal packages import ir;
// ir imports nothing internal.
//
// Key design constraints:
//   - Event is a closed union: only the types in this package implement it
//   - Unknown kinds decode to Unrecognized, never to an error
//   - All JSON tags use snake_case
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
