// Package event implements content-hash event identity and the sink
// interface the core hands completed events off to (spec.md §4.8, §6).
package event

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Type enumerates the event kinds the core emits (spec.md §5 "Ordering
// guarantees": at most one decision/belief/order-intent event per bar).
type Type string

const (
	TypeBar         Type = "BAR"
	TypeBelief      Type = "BELIEF"
	TypeDecision    Type = "DECISION"
	TypeOrderIntent Type = "ORDER_INTENT"
	TypeOrderState  Type = "ORDER_STATE"
	TypeFill        Type = "FILL"
	TypePosition    Type = "POSITION"
	TypeInTrade     Type = "IN_TRADE"
	TypeLearning    Type = "LEARNING_UPDATE"
)

// Event is one emitted record; ID is derived, never set by the caller
// (spec.md §4.8).
type Event struct {
	ID        string          `json:"id"`
	StreamID  string          `json:"stream_id"`
	Timestamp time.Time       `json:"ts"`
	Type      Type            `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	ConfigHash string         `json:"config_hash"`
}

// New builds an Event and stamps its content-hash ID as
// sha256(canonical_json({stream_id, ts, type, payload, config_hash}))
// (spec.md §4.8). The content hash is the primary idempotency key for
// the downstream store.
func New(streamID string, ts time.Time, typ Type, payload any, configHash string) (Event, error) {
	rawPayload, err := canonicalMarshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("event: marshal payload: %w", err)
	}

	e := Event{
		StreamID:   streamID,
		Timestamp:  ts,
		Type:       typ,
		Payload:    rawPayload,
		ConfigHash: configHash,
	}

	id, err := e.computeID()
	if err != nil {
		return Event{}, err
	}
	e.ID = id
	return e, nil
}

func (e Event) computeID() (string, error) {
	canon := map[string]any{
		"stream_id":   e.StreamID,
		"ts":          e.Timestamp.UTC().Format(time.RFC3339Nano),
		"type":        string(e.Type),
		"payload":     json.RawMessage(e.Payload),
		"config_hash": e.ConfigHash,
	}
	raw, err := canonicalMarshal(canon)
	if err != nil {
		return "", fmt.Errorf("event: canonicalize id input: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalMarshal produces minimal-whitespace, sorted-key, UTF-8 JSON
// (spec.md §4.8 "Canonical JSON requires sorted keys, minimal
// whitespace, UTF-8"). encoding/json already sorts map keys and emits no
// extraneous whitespace by default; this wrapper exists as the single
// call site so every caller gets identical bytes.
func canonicalMarshal(v any) ([]byte, error) {
	switch t := v.(type) {
	case json.RawMessage:
		return canonicalizeRaw(t)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return canonicalizeRaw(raw)
	}
}

// canonicalizeRaw re-marshals arbitrary JSON bytes through a generic
// map/slice decode so nested object keys are sorted too, not just the
// top level (json.Marshal on a map only sorts that map's own keys).
func canonicalizeRaw(raw []byte) ([]byte, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(sortedValue(generic))
}

// sortedValue is a no-op for json.Marshal's own purposes (map[string]any
// already sorts keys on marshal) but documents the invariant and gives a
// seam if a future payload type needs custom ordering.
func sortedValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}
	return v
}
