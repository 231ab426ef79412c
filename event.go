package profiler

import (
	"time"

	"github.com/northrook/profiler/internal/event"
	"github.com/northrook/profiler/internal/metrics"
	"github.com/northrook/profiler/internal/report"
)

// Record is one start/stop period inside an event.
type Record = event.Record

// Snapshot is one point-in-time sample.
type Snapshot = event.Snapshot

// Event is a handle on one registered event. Operations lock the
// owning profiler, so handles may be shared across goroutines and kept
// for the lifetime of the profiler.
//
// A nil handle, as returned while profiling is disabled, ignores
// commands and reports zero values. Chains like
//
//	p.Event("parse", "import").Start("").Snapshot("mid").Stop("")
//
// are therefore safe regardless of the switch.
type Event struct {
	p     *Profiler
	inner *event.Event
}

// Name returns the event name, empty on a nil handle.
func (e *Event) Name() string {
	if e == nil {
		return ""
	}
	return e.inner.Name()
}

// Category returns the category the event is registered under.
func (e *Event) Category() string {
	if e == nil {
		return ""
	}
	return e.inner.Category()
}

// Key identifies the event as "category::name".
func (e *Event) Key() string {
	if e == nil {
		return ""
	}
	return e.inner.Key()
}

// TracksMemory reports whether records and snapshots carry memory
// samples.
func (e *Event) TracksMemory() bool {
	if e == nil {
		return false
	}
	return e.inner.TracksMemory()
}

// Start opens a new record. Starts are re-entrant: each call appends an
// independently open record.
func (e *Event) Start(note string) *Event {
	if e == nil {
		return nil
	}
	e.p.mu.Lock()
	e.inner.Start(note)
	e.p.mu.Unlock()
	metrics.IncStart(e.inner.Name(), e.inner.Category())
	return e
}

// Stop closes the most recently started record. Stopping with nothing
// started, or stopping twice, warns and changes nothing.
func (e *Event) Stop(note string) *Event {
	if e == nil {
		return nil
	}
	e.p.mu.Lock()
	e.inner.Stop(note)
	e.p.mu.Unlock()
	metrics.IncStop(e.inner.Name(), e.inner.Category())
	return e
}

// Snapshot takes a point-in-time sample, independent of any record.
func (e *Event) Snapshot(note string) *Event {
	if e == nil {
		return nil
	}
	e.p.mu.Lock()
	e.inner.Snapshot(note)
	e.p.mu.Unlock()
	metrics.IncSnapshot(e.inner.Name(), e.inner.Category())
	return e
}

// CloseAll closes every open record without warnings.
func (e *Event) CloseAll() *Event {
	if e == nil {
		return nil
	}
	e.p.mu.Lock()
	e.inner.CloseAll()
	e.p.mu.Unlock()
	return e
}

// Running reports whether the most recently started record is open.
func (e *Event) Running() bool {
	if e == nil {
		return false
	}
	e.p.mu.RLock()
	defer e.p.mu.RUnlock()
	return e.inner.Running()
}

// StartTime returns the start of the first record, or false when
// nothing has been recorded.
func (e *Event) StartTime() (time.Time, bool) {
	if e == nil {
		return time.Time{}, false
	}
	e.p.mu.RLock()
	defer e.p.mu.RUnlock()
	return e.inner.StartTime()
}

// EndTime returns the stop of the last record, or false while it runs.
func (e *Event) EndTime() (time.Time, bool) {
	if e == nil {
		return time.Time{}, false
	}
	e.p.mu.RLock()
	defer e.p.mu.RUnlock()
	return e.inner.EndTime()
}

// Elapsed is the wall-clock span from first start to last stop,
// including gaps between records.
func (e *Event) Elapsed() (time.Duration, bool) {
	if e == nil {
		return 0, false
	}
	e.p.mu.RLock()
	defer e.p.mu.RUnlock()
	return e.inner.ElapsedTime()
}

// Duration sums the deltas of closed records. Open records are skipped
// with a warning.
func (e *Event) Duration() time.Duration {
	if e == nil {
		return 0
	}
	e.p.mu.RLock()
	defer e.p.mu.RUnlock()
	return e.inner.Duration()
}

// PeakMemory returns the highest stop-time memory sample across closed
// records, 0 when none qualifies.
func (e *Event) PeakMemory() uint64 {
	if e == nil {
		return 0
	}
	e.p.mu.RLock()
	defer e.p.mu.RUnlock()
	return e.inner.PeakMemory()
}

// Records returns the recorded periods in start order.
func (e *Event) Records() []*Record {
	if e == nil {
		return nil
	}
	e.p.mu.RLock()
	defer e.p.mu.RUnlock()
	return e.inner.Records()
}

// Snapshots returns the taken snapshots in order.
func (e *Event) Snapshots() []Snapshot {
	if e == nil {
		return nil
	}
	e.p.mu.RLock()
	defer e.p.mu.RUnlock()
	return e.inner.Snapshots()
}

// Summary returns the aggregate view of this event.
func (e *Event) Summary() Summary {
	if e == nil {
		return Summary{}
	}
	e.p.mu.RLock()
	defer e.p.mu.RUnlock()
	return report.Of(e.inner)
}

// String renders "category/name: {peak MiB} MiB - {duration ms} ms".
func (e *Event) String() string {
	if e == nil {
		return ""
	}
	e.p.mu.RLock()
	defer e.p.mu.RUnlock()
	return e.inner.String()
}
