package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/roster/internal/ir"
	"github.com/roach88/roster/internal/membership"
)

// StoredEvent is one row of the event log.
type StoredEvent struct {
	Seq     int64  `json:"seq"`
	ID      string `json:"id"`
	BatchID string `json:"batch_id"`
	Kind    string `json:"kind"`
	Payload string `json:"payload"`
}

// NewStoredEvent encodes ev for the log and computes its content-addressed id.
func NewStoredEvent(seq int64, batchID string, ev ir.Event) (StoredEvent, error) {
	if ev == nil {
		return StoredEvent{}, fmt.Errorf("new stored event: nil event")
	}
	payload, err := ir.EncodePayload(ev)
	if err != nil {
		return StoredEvent{}, fmt.Errorf("new stored event: %w", err)
	}
	id, err := ir.EventID(ev.Kind(), payload, seq)
	if err != nil {
		return StoredEvent{}, fmt.Errorf("new stored event: %w", err)
	}
	return StoredEvent{
		Seq:     seq,
		ID:      id,
		BatchID: batchID,
		Kind:    ev.Kind(),
		Payload: string(payload),
	}, nil
}

// Event decodes the stored envelope back into an ir.Event.
func (e StoredEvent) Event() (ir.Event, error) {
	return ir.Envelope{Kind: e.Kind, Payload: json.RawMessage(e.Payload)}.Event()
}

// Snapshot is the membership index as of Seq.
type Snapshot struct {
	Seq    int64
	Digest string
	Index  *membership.Index
}

// marshalIndex converts an index to canonical JSON TEXT for storage.
func marshalIndex(idx *membership.Index) (string, error) {
	data, err := idx.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal index: %w", err)
	}
	return string(data), nil
}

// unmarshalIndex parses stored JSON TEXT into an index.
func unmarshalIndex(data string) (*membership.Index, error) {
	if data == "" || data == "{}" {
		return membership.Empty(), nil
	}
	idx := membership.Empty()
	if err := json.Unmarshal([]byte(data), idx); err != nil {
		return nil, fmt.Errorf("unmarshal index: %w", err)
	}
	return idx, nil
}
