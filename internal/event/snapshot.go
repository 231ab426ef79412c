package event

import "time"

// Snapshot is one point-in-time sample: an instant, a memory reading
// when the event tracks memory, and an optional note. Snapshots are
// immutable once taken and never pair with records.
type Snapshot struct {
	timestamp time.Time
	memory    uint64
	note      string
}

// Timestamp returns the instant the snapshot was taken.
func (s Snapshot) Timestamp() time.Time { return s.timestamp }

// Memory returns the memory sample in bytes, 0 when untracked.
func (s Snapshot) Memory() uint64 { return s.memory }

// Note returns the label attached to the snapshot.
func (s Snapshot) Note() string { return s.note }
