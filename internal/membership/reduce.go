package membership

import "github.com/roach88/roster/internal/ir"

// Reduce applies ev to prev and returns the resulting index.
//
// A nil prev is the initial state (empty index). The returned value is prev
// itself whenever the event does not change membership: unrecognized kinds,
// additive events with an empty parent id, an empty child collection, or
// only children that are already members. Otherwise the result is a new
// index sharing every untouched *MemberSet with prev.
//
// SessionEnded yields a new empty index regardless of prev.
func Reduce(prev *Index, ev ir.Event) *Index {
	if prev == nil {
		prev = Empty()
	}

	switch ev.(type) {
	case ir.MemberAdded, ir.MembersAddedList, ir.MembersAddedMap, ir.ParentPayloadReceived:
		parent, _ := ir.TargetParent(ev)
		return merge(prev, parent, childIDs(ev))
	case ir.SessionEnded:
		return Empty()
	default:
		// Unrecognized kinds and nil pass through unchanged.
		return prev
	}
}

// ReduceAll folds events into prev in order.
func ReduceAll(prev *Index, events ...ir.Event) *Index {
	for _, ev := range events {
		prev = Reduce(prev, ev)
	}
	if prev == nil {
		return Empty()
	}
	return prev
}

// childIDs extracts the child ids an additive event carries, whatever shape
// the producer delivered them in.
func childIDs(ev ir.Event) []string {
	switch e := ev.(type) {
	case ir.MemberAdded:
		return []string{e.ChildID}
	case ir.MembersAddedList:
		ids := make([]string, len(e.Children))
		for i, c := range e.Children {
			ids[i] = c.ID
		}
		return ids
	case ir.MembersAddedMap:
		ids := make([]string, 0, len(e.Children))
		for id := range e.Children {
			ids = append(ids, id)
		}
		return ids
	case ir.ParentPayloadReceived:
		ids := make([]string, len(e.Payload.Items))
		for i, it := range e.Payload.Items {
			ids[i] = it.ChildID
		}
		return ids
	default:
		return nil
	}
}

// merge unions ids into the set at parent with copy-on-write at that key.
func merge(prev *Index, parent string, ids []string) *Index {
	if parent == "" || len(ids) == 0 {
		return prev
	}
	current := prev.Get(parent)
	next := current.Union(ids)
	if next == current {
		return prev
	}
	return prev.with(parent, next)
}
