// Package harness runs membership scenarios as executable contract tests.
//
// A scenario names an initial index, a sequence of wire envelopes and the
// expected outcome. The harness applies the envelopes through a real
// engine.Engine backed by an in-memory store, records one trace step per
// event, evaluates assertions, and checks that a replay of the log
// reproduces the final index.
//
// # Scenario Format
//
//	name: member_added_existing
//	description: "A new member joins a parent that already has members"
//	initial:
//	  id: [old_user_id]
//	  other_id: [other_user_id]
//	events:
//	  - kind: member_added
//	    payload: { parent_id: id, child_id: user_id }
//	expect:
//	  id: [old_user_id, user_id]
//	  other_id: [other_user_id]
//	assertions:
//	  - type: untouched
//	    parents: [other_id]
//
// # Assertion Types
//
//   - identity: every event was a no-op and the final index is the initial one
//   - untouched: the listed parents still hold the initial member sets
//   - empty: the final index has no parents
//   - member_count: a parent holds exactly count members
//
// # Deterministic Testing
//
// Each run uses a fresh in-memory SQLite store, a fixed batch id and the
// engine's logical clock, so traces are identical across runs and can be
// compared against golden files with RunWithGolden.
package harness
