// Package membership maintains the derived index from a parent id (a
// channel) to the set of child ids (users) known to belong to it.
//
// The index is an immutable value. Reduce never mutates its input: every
// transition returns either the identical *Index (the event did not apply)
// or a new *Index that shares every untouched *MemberSet with its
// predecessor. Consumers can therefore detect change with pointer equality,
// both for the whole index and per parent.
//
//	idx := membership.Empty()
//	idx = membership.Reduce(idx, ir.MemberAdded{ParentID: "c1", ChildID: "u1"})
//	idx.Get("c1").Has("u1") // true
//
// Reduce is a pure function. Callers serialize event delivery; see the
// engine package for the single-writer loop that does so.
package membership
