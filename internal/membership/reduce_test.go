package membership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roster/internal/ir"
)

// existing returns the two-parent index most cases start from.
func existing() *Index {
	return NewIndex(map[string][]string{
		"id":       {"old_user_id"},
		"other_id": {"other_user_id"},
	})
}

func TestReduce_InitialState(t *testing.T) {
	next := Reduce(nil, ir.Unrecognized{})
	require.NotNil(t, next)
	assert.Equal(t, 0, next.Len())
	assert.Equal(t, map[string][]string{}, next.ToMap())
}

func TestReduce_MemberAdded(t *testing.T) {
	t.Run("no existing members", func(t *testing.T) {
		next := Reduce(Empty(), ir.MemberAdded{ParentID: "id", ChildID: "user_id"})
		assert.Equal(t, map[string][]string{"id": {"user_id"}}, next.ToMap())
	})

	t.Run("existing members", func(t *testing.T) {
		prev := existing()
		next := Reduce(prev, ir.MemberAdded{ParentID: "id", ChildID: "user_id"})

		assert.Equal(t, map[string][]string{
			"id":       {"old_user_id", "user_id"},
			"other_id": {"other_user_id"},
		}, next.ToMap())
		assert.Same(t, prev.Get("other_id"), next.Get("other_id"))
		assert.NotSame(t, prev.Get("id"), next.Get("id"))
	})
}

func TestReduce_MembersAddedList(t *testing.T) {
	ev := ir.MembersAddedList{
		ParentID: "id",
		Children: []ir.ChildRecord{{ID: "user_id"}, {ID: "user_id_2"}},
	}

	t.Run("no existing members", func(t *testing.T) {
		next := Reduce(Empty(), ev)
		assert.Equal(t, map[string][]string{"id": {"user_id", "user_id_2"}}, next.ToMap())
	})

	t.Run("existing members", func(t *testing.T) {
		prev := existing()
		next := Reduce(prev, ev)
		assert.Equal(t, map[string][]string{
			"id":       {"old_user_id", "user_id", "user_id_2"},
			"other_id": {"other_user_id"},
		}, next.ToMap())
		assert.Same(t, prev.Get("other_id"), next.Get("other_id"))
	})
}

func TestReduce_MembersAddedMap(t *testing.T) {
	ev := ir.MembersAddedMap{
		ParentID: "id",
		Children: map[string]ir.ChildRecord{
			"user_id":   {ID: "user_id"},
			"user_id_2": {ID: "user_id_2"},
		},
	}

	t.Run("no existing members", func(t *testing.T) {
		next := Reduce(Empty(), ev)
		assert.Equal(t, map[string][]string{"id": {"user_id", "user_id_2"}}, next.ToMap())
	})

	t.Run("existing members", func(t *testing.T) {
		prev := existing()
		next := Reduce(prev, ev)
		assert.Equal(t, map[string][]string{
			"id":       {"old_user_id", "user_id", "user_id_2"},
			"other_id": {"other_user_id"},
		}, next.ToMap())
		assert.Same(t, prev.Get("other_id"), next.Get("other_id"))
	})
}

func TestReduce_ParentPayloadReceived(t *testing.T) {
	ev := ir.ParentPayloadReceived{
		ParentID: "id",
		Payload: ir.ParentPayload{Items: []ir.PayloadItem{
			{ChildID: "user_id"},
			{ChildID: "user_id_2"},
		}},
	}

	t.Run("no existing members", func(t *testing.T) {
		next := Reduce(Empty(), ev)
		assert.Equal(t, map[string][]string{"id": {"user_id", "user_id_2"}}, next.ToMap())
	})

	t.Run("existing members", func(t *testing.T) {
		prev := existing()
		next := Reduce(prev, ev)
		assert.Equal(t, map[string][]string{
			"id":       {"old_user_id", "user_id", "user_id_2"},
			"other_id": {"other_user_id"},
		}, next.ToMap())
		assert.Same(t, prev.Get("other_id"), next.Get("other_id"))
	})
}

func TestReduce_SessionEnded(t *testing.T) {
	prev := existing()
	next := Reduce(prev, ir.SessionEnded{})

	assert.Equal(t, 0, next.Len())
	assert.NotSame(t, prev, next)
	// The previous snapshot is untouched.
	assert.Equal(t, 2, prev.Len())

	assert.Equal(t, 0, Reduce(Empty(), ir.SessionEnded{}).Len())
}

func TestReduce_IdentityOnNoop(t *testing.T) {
	prev := existing()

	tests := []struct {
		name string
		ev   ir.Event
	}{
		{"nil event", nil},
		{"unrecognized kind", ir.Unrecognized{EventKind: "typing_started"}},
		{"unrecognized with payload", ir.Unrecognized{EventKind: "x", Payload: []byte(`{"parent_id":"id"}`)}},
		{"missing parent", ir.MemberAdded{ChildID: "user_id"}},
		{"empty list", ir.MembersAddedList{ParentID: "id"}},
		{"empty map", ir.MembersAddedMap{ParentID: "id", Children: map[string]ir.ChildRecord{}}},
		{"empty payload", ir.ParentPayloadReceived{ParentID: "id"}},
		{"already a member", ir.MemberAdded{ParentID: "id", ChildID: "old_user_id"}},
		{"list of existing members", ir.MembersAddedList{
			ParentID: "id",
			Children: []ir.ChildRecord{{ID: "old_user_id"}, {ID: "old_user_id"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Same(t, prev, Reduce(prev, tt.ev))
		})
	}
}

func TestReduce_EmptyCollectionForAbsentParentCreatesNothing(t *testing.T) {
	prev := Empty()
	next := Reduce(prev, ir.MembersAddedList{ParentID: "new"})
	assert.Same(t, prev, next)
	assert.Nil(t, next.Get("new"))
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	prev := existing()
	before := prev.ToMap()
	idSet := prev.Get("id")

	Reduce(prev, ir.MemberAdded{ParentID: "id", ChildID: "user_id"})
	Reduce(prev, ir.MemberAdded{ParentID: "new_id", ChildID: "user_id"})
	Reduce(prev, ir.SessionEnded{})

	assert.Equal(t, before, prev.ToMap())
	assert.Same(t, idSet, prev.Get("id"))
	assert.False(t, idSet.Has("user_id"))
}

func TestReduce_DuplicatesWithinBatchCollapse(t *testing.T) {
	next := Reduce(nil, ir.ParentPayloadReceived{
		ParentID: "id",
		Payload: ir.ParentPayload{Items: []ir.PayloadItem{
			{ChildID: "a"}, {ChildID: "b"}, {ChildID: "a"}, {ChildID: "a"},
		}},
	})
	assert.Equal(t, []string{"a", "b"}, next.Get("id").IDs())
}

func TestReduceAll(t *testing.T) {
	final := ReduceAll(nil,
		ir.MemberAdded{ParentID: "c1", ChildID: "u1"},
		ir.MembersAddedList{ParentID: "c2", Children: []ir.ChildRecord{{ID: "u2"}}},
		ir.SessionEnded{},
		ir.MemberAdded{ParentID: "c3", ChildID: "u3"},
	)
	assert.Equal(t, map[string][]string{"c3": {"u3"}}, final.ToMap())

	assert.Equal(t, 0, ReduceAll(nil).Len())

	prev := existing()
	assert.Same(t, prev, ReduceAll(prev))
}

func TestChildIDs(t *testing.T) {
	assert.Equal(t, []string{"u"}, childIDs(ir.MemberAdded{ParentID: "p", ChildID: "u"}))
	assert.ElementsMatch(t, []string{"a", "b"}, childIDs(ir.MembersAddedMap{
		Children: map[string]ir.ChildRecord{"a": {}, "b": {ID: "ignored"}},
	}))
	assert.Nil(t, childIDs(ir.SessionEnded{}))
}
