package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope is the wire form of an event: a kind discriminator and a
// kind-specific payload object.
type Envelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeError reports an envelope that could not be turned into an Event.
type DecodeError struct {
	Kind string // Empty when the envelope itself was unreadable
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("decode %s event: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("decode event: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrMissingKind is returned (wrapped in DecodeError) for envelopes without a kind.
var ErrMissingKind = errors.New("missing kind")

// DecodeEvent parses a JSON envelope into an Event.
//
// Unknown kinds are not an error: they decode to Unrecognized with the raw
// payload preserved. Missing payload fields decode to zero values.
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Err: err}
	}
	return env.Event()
}

// Event converts the envelope to its typed Event.
func (env Envelope) Event() (Event, error) {
	if env.Kind == "" {
		return nil, &DecodeError{Err: ErrMissingKind}
	}

	payload := []byte(env.Payload)
	if len(bytes.TrimSpace(payload)) == 0 || bytes.Equal(bytes.TrimSpace(payload), []byte("null")) {
		payload = []byte("{}")
	}

	var (
		ev  Event
		err error
	)
	switch env.Kind {
	case KindMemberAdded:
		var e MemberAdded
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindMembersAddedList:
		var e MembersAddedList
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindMembersAddedMap:
		var e MembersAddedMap
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindParentPayloadReceived:
		var e ParentPayloadReceived
		err = json.Unmarshal(payload, &e)
		ev = e
	case KindSessionEnded:
		// No payload fields are consumed.
		ev = SessionEnded{}
	default:
		var compact bytes.Buffer
		if err := json.Compact(&compact, payload); err != nil {
			return nil, &DecodeError{Kind: env.Kind, Err: err}
		}
		ev = Unrecognized{EventKind: env.Kind, Payload: json.RawMessage(compact.Bytes())}
	}
	if err != nil {
		return nil, &DecodeError{Kind: env.Kind, Err: err}
	}
	return ev, nil
}

// EncodePayload returns the payload bytes of an event as stored in the log.
// Recognized kinds use canonical JSON; Unrecognized payloads are compacted.
func EncodePayload(ev Event) ([]byte, error) {
	switch e := ev.(type) {
	case MemberAdded:
		return MarshalCanonical(map[string]any{
			"parent_id": e.ParentID,
			"child_id":  e.ChildID,
		})
	case MembersAddedList:
		children := make([]any, len(e.Children))
		for i, c := range e.Children {
			children[i] = map[string]any{"id": c.ID}
		}
		return MarshalCanonical(map[string]any{
			"parent_id": e.ParentID,
			"children":  children,
		})
	case MembersAddedMap:
		children := make(map[string]any, len(e.Children))
		for k, c := range e.Children {
			children[k] = map[string]any{"id": c.ID}
		}
		return MarshalCanonical(map[string]any{
			"parent_id": e.ParentID,
			"children":  children,
		})
	case ParentPayloadReceived:
		items := make([]any, len(e.Payload.Items))
		for i, it := range e.Payload.Items {
			items[i] = map[string]any{"child_id": it.ChildID}
		}
		return MarshalCanonical(map[string]any{
			"parent_id": e.ParentID,
			"payload":   map[string]any{"items": items},
		})
	case SessionEnded:
		return []byte("{}"), nil
	case Unrecognized:
		if len(bytes.TrimSpace(e.Payload)) == 0 {
			return []byte("{}"), nil
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, e.Payload); err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", e.EventKind, err)
		}
		return compact.Bytes(), nil
	case nil:
		return nil, fmt.Errorf("encode payload: nil event")
	default:
		return nil, fmt.Errorf("encode payload: unsupported event %T", ev)
	}
}

// EncodeEvent returns the JSON envelope for an event.
func EncodeEvent(ev Event) ([]byte, error) {
	payload, err := EncodePayload(ev)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"kind":`)
	if err := writeCanonicalString(&buf, ev.Kind()); err != nil {
		return nil, fmt.Errorf("encode kind: %w", err)
	}
	buf.WriteString(`,"payload":`)
	buf.Write(payload)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
