package realtime

import (
	"encoding/json"
	"fmt"
)

// Delta is one collaborative-document mutation: a last-writer-wins register
// write. Clock is a lamport timestamp; Actor breaks ties deterministically,
// so Apply is commutative and idempotent and replicas converge regardless of
// delivery order.
type Delta struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
	Clock uint64          `json:"clock"`
	Actor string          `json:"actor"`
}

// wins reports whether d supersedes current.
func (d Delta) wins(current Delta) bool {
	if d.Clock != current.Clock {
		return d.Clock > current.Clock
	}
	return d.Actor > current.Actor
}

// Document is the authoritative in-memory replica of one collaborative
// document. Not safe for concurrent use; the doc hub serializes access.
type Document struct {
	entries map[string]Delta
	clock   uint64
}

func NewDocument() *Document {
	return &Document{entries: make(map[string]Delta)}
}

// Apply merges one delta and reports whether the state changed.
func (d *Document) Apply(delta Delta) bool {
	if delta.Clock > d.clock {
		d.clock = delta.Clock
	}

	current, ok := d.entries[delta.Key]
	if ok && !delta.wins(current) {
		return false
	}
	d.entries[delta.Key] = delta
	return true
}

// NextClock returns a lamport timestamp strictly after everything applied.
func (d *Document) NextClock() uint64 {
	return d.clock + 1
}

func (d *Document) Len() int {
	return len(d.entries)
}

// Value returns the current register value for a key.
func (d *Document) Value(key string) (json.RawMessage, bool) {
	delta, ok := d.entries[key]
	return delta.Value, ok
}

type snapshotFrame struct {
	Snapshot bool             `json:"snapshot"`
	Clock    uint64           `json:"clock"`
	Entries  map[string]Delta `json:"entries"`
}

// Snapshot encodes the full current state as one frame for new subscribers.
func (d *Document) Snapshot() []byte {
	frame := snapshotFrame{
		Snapshot: true,
		Clock:    d.clock,
		Entries:  d.entries,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return []byte(`{"snapshot":true,"entries":{}}`)
	}
	return data
}

func DecodeDelta(data []byte) (Delta, error) {
	var delta Delta
	if err := json.Unmarshal(data, &delta); err != nil {
		return Delta{}, fmt.Errorf("decode delta: %w", err)
	}
	if delta.Key == "" {
		return Delta{}, fmt.Errorf("decode delta: empty key")
	}
	return delta, nil
}
