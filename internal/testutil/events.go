package testutil

import (
	"bytes"
	"testing"

	"github.com/roach88/roster/internal/ir"
	"github.com/roach88/roster/internal/membership"
)

// Index builds an index from parent -> member ids.
func Index(m map[string][]string) *membership.Index {
	return membership.NewIndex(m)
}

// Added builds a member_added event.
func Added(parent, child string) ir.MemberAdded {
	return ir.MemberAdded{ParentID: parent, ChildID: child}
}

// List builds a members_added_list event.
func List(parent string, ids ...string) ir.MembersAddedList {
	children := make([]ir.ChildRecord, len(ids))
	for i, id := range ids {
		children[i] = ir.ChildRecord{ID: id}
	}
	return ir.MembersAddedList{ParentID: parent, Children: children}
}

// Map builds a members_added_map event keyed by id.
func Map(parent string, ids ...string) ir.MembersAddedMap {
	children := make(map[string]ir.ChildRecord, len(ids))
	for _, id := range ids {
		children[id] = ir.ChildRecord{ID: id}
	}
	return ir.MembersAddedMap{ParentID: parent, Children: children}
}

// Payload builds a parent_payload_received event with one item per author.
func Payload(parent string, authors ...string) ir.ParentPayloadReceived {
	items := make([]ir.PayloadItem, len(authors))
	for i, id := range authors {
		items[i] = ir.PayloadItem{ChildID: id}
	}
	return ir.ParentPayloadReceived{ParentID: parent, Payload: ir.ParentPayload{Items: items}}
}

// NDJSON encodes events as newline-delimited wire envelopes.
func NDJSON(t testing.TB, events ...ir.Event) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, ev := range events {
		line, err := ir.EncodeEvent(ev)
		if err != nil {
			t.Fatalf("EncodeEvent(%T) failed: %v", ev, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
