package ir

import "encoding/json"

// Kind strings carried in the envelope "kind" discriminator.
const (
	KindMemberAdded           = "member_added"
	KindMembersAddedList      = "members_added_list"
	KindMembersAddedMap       = "members_added_map"
	KindParentPayloadReceived = "parent_payload_received"
	KindSessionEnded          = "session_ended"
)

// Event is a sealed interface over the event records the membership index
// consumes. Only the types declared in this file implement it.
type Event interface {
	// Kind returns the envelope discriminator for the event.
	Kind() string

	event() // Sealed
}

// ChildRecord is a child entity as delivered by producers of batch events.
type ChildRecord struct {
	ID string `json:"id"`
}

// PayloadItem is an entry of an unrelated bulk payload that names a child.
type PayloadItem struct {
	ChildID string `json:"child_id"`
}

// ParentPayload is the bulk payload carried by ParentPayloadReceived.
type ParentPayload struct {
	Items []PayloadItem `json:"items"`
}

// MemberAdded records a single child joining a parent.
type MemberAdded struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
}

// MembersAddedList records a batch of children delivered as a sequence.
type MembersAddedList struct {
	ParentID string        `json:"parent_id"`
	Children []ChildRecord `json:"children"`
}

// MembersAddedMap records a batch of children delivered keyed by child id.
// Only the keys of Children are used.
type MembersAddedMap struct {
	ParentID string                 `json:"parent_id"`
	Children map[string]ChildRecord `json:"children"`
}

// ParentPayloadReceived carries a payload for a parent from which child
// membership can be inferred (e.g. a page of messages reveals their authors).
type ParentPayloadReceived struct {
	ParentID string        `json:"parent_id"`
	Payload  ParentPayload `json:"payload"`
}

// SessionEnded signals that the session was terminated and all derived
// membership must be discarded.
type SessionEnded struct{}

// Unrecognized wraps an event whose kind is not part of the union.
// The payload is kept verbatim so the event can be persisted and replayed.
type Unrecognized struct {
	EventKind string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (MemberAdded) Kind() string           { return KindMemberAdded }
func (MembersAddedList) Kind() string      { return KindMembersAddedList }
func (MembersAddedMap) Kind() string       { return KindMembersAddedMap }
func (ParentPayloadReceived) Kind() string { return KindParentPayloadReceived }
func (SessionEnded) Kind() string          { return KindSessionEnded }
func (u Unrecognized) Kind() string        { return u.EventKind }

func (MemberAdded) event()           {}
func (MembersAddedList) event()      {}
func (MembersAddedMap) event()       {}
func (ParentPayloadReceived) event() {}
func (SessionEnded) event()          {}
func (Unrecognized) event()          {}

// IsRecognized reports whether kind names one of the union's known events.
func IsRecognized(kind string) bool {
	switch kind {
	case KindMemberAdded, KindMembersAddedList, KindMembersAddedMap,
		KindParentPayloadReceived, KindSessionEnded:
		return true
	}
	return false
}

// TargetParent returns the parent id an additive event applies to.
// The boolean is false for events that do not target a single parent.
func TargetParent(ev Event) (string, bool) {
	switch e := ev.(type) {
	case MemberAdded:
		return e.ParentID, true
	case MembersAddedList:
		return e.ParentID, true
	case MembersAddedMap:
		return e.ParentID, true
	case ParentPayloadReceived:
		return e.ParentID, true
	default:
		return "", false
	}
}
