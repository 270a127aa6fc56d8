package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEvent = "roster/event/v1"
	DomainIndex = "roster/index/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed id of a sequenced event.
// payload is the stored payload text (see EncodePayload).
func EventID(kind string, payload []byte, seq int64) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"kind":    kind,
		"payload": string(payload),
		"seq":     seq,
	})
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// IndexDigest hashes the canonical form of an index (parent -> member ids).
// Member slices must already be sorted by the caller.
func IndexDigest(index map[string][]string) (string, error) {
	canonical, err := MarshalCanonical(index)
	if err != nil {
		return "", fmt.Errorf("IndexDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainIndex, canonical), nil
}

// MustEventID is like EventID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEventID(kind string, payload []byte, seq int64) string {
	id, err := EventID(kind, payload, seq)
	if err != nil {
		panic(err)
	}
	return id
}
