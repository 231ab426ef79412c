// Package event holds the unsynchronized profiling core: events, their
// timed records and their snapshots. Nothing in this package locks;
// callers that share an event across goroutines serialize access
// themselves, as the facade in the repository root does.
package event

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/northrook/profiler/internal/clock"
	"github.com/northrook/profiler/internal/memsample"
	"github.com/northrook/profiler/internal/warn"
)

// Options configures collaborators for a new event. Zero fields fall
// back to the system clock, the process RSS sampler and slog.Default().
type Options struct {
	TrackMemory bool
	Clock       clock.Clock
	Sampler     memsample.Sampler
	Sink        warn.Sink
}

// Event owns the timed periods and snapshots recorded under one
// (category, name) pair. Records accumulate in start order and are
// never removed; aggregates are derived on demand.
type Event struct {
	name        string
	category    string
	trackMemory bool

	records   []*Record
	snapshots []Snapshot

	clk     clock.Clock
	sampler memsample.Sampler
	sink    warn.Sink
}

// New constructs an empty event for the given name and category. The
// caller is expected to have validated both; the registry does.
func New(name, category string, opts Options) *Event {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Sampler == nil {
		opts.Sampler = memsample.Self()
	}
	if opts.Sink == nil {
		opts.Sink = slog.Default()
	}
	return &Event{
		name:        name,
		category:    category,
		trackMemory: opts.TrackMemory,
		clk:         opts.Clock,
		sampler:     opts.Sampler,
		sink:        opts.Sink,
	}
}

// Name returns the event name.
func (e *Event) Name() string { return e.name }

// Category returns the category the event is registered under.
func (e *Event) Category() string { return e.category }

// TracksMemory reports whether records and snapshots carry memory
// samples.
func (e *Event) TracksMemory() bool { return e.trackMemory }

// Key identifies the event in diagnostics as "category::name".
func (e *Event) Key() string { return e.category + "::" + e.name }

// Start opens a new record. Starts are re-entrant: each call appends an
// independently open record and no earlier record is touched.
func (e *Event) Start(note string) *Event {
	e.StartRecord(note)
	return e
}

// StartRecord opens a new record and returns it, for callers that need
// to close this exact period later regardless of what starts in
// between.
func (e *Event) StartRecord(note string) *Record {
	r := newRecord(e.clk, e.sampler, e.sink, e.trackMemory, note)
	e.records = append(e.records, r)
	return r
}

// Stop closes the most recently started record. An earlier record left
// open stays open. When nothing was ever started the call warns and
// does nothing.
func (e *Event) Stop(note string) *Event {
	if len(e.records) == 0 {
		e.sink.Warn("stop called before any start", "event", e.Key())
		return e
	}
	e.records[len(e.records)-1].Stop(note)
	return e
}

// Snapshot takes a point-in-time sample, independent of any record.
func (e *Event) Snapshot(note string) *Event {
	s := Snapshot{timestamp: e.clk.Now(), note: note}
	if e.trackMemory {
		s.memory = e.sampler.Sample()
	}
	e.snapshots = append(e.snapshots, s)
	return e
}

// Running reports whether the most recently started record is still
// open. Earlier records left open do not count.
func (e *Event) Running() bool {
	if len(e.records) == 0 {
		return false
	}
	return !e.records[len(e.records)-1].Stopped()
}

// CloseAll closes every open record without emitting warnings. Shutdown
// paths use it to flush in-flight periods quietly.
func (e *Event) CloseAll() *Event {
	for _, r := range e.records {
		r.Close()
	}
	return e
}

// StartTime returns the start of the first record, or false when
// nothing has been recorded.
func (e *Event) StartTime() (time.Time, bool) {
	if len(e.records) == 0 {
		return time.Time{}, false
	}
	return e.records[0].StartedAt(), true
}

// EndTime returns the stop of the last record, or false while it is
// still running or nothing has been recorded.
func (e *Event) EndTime() (time.Time, bool) {
	if len(e.records) == 0 {
		return time.Time{}, false
	}
	last := e.records[len(e.records)-1]
	if !last.Stopped() {
		return time.Time{}, false
	}
	return last.StoppedAt(), true
}

// ElapsedTime is the wall-clock span from the first start to the last
// stop. Gaps between disjoint records count, so this is not the sum of
// record deltas.
func (e *Event) ElapsedTime() (time.Duration, bool) {
	start, ok := e.StartTime()
	if !ok {
		return 0, false
	}
	end, ok := e.EndTime()
	if !ok {
		return 0, false
	}
	return end.Sub(start), true
}

// Duration sums the delta of every closed record. Open records are
// skipped with a warning so a forgotten stop degrades the total instead
// of failing the caller.
func (e *Event) Duration() time.Duration {
	var total time.Duration
	for _, r := range e.records {
		if !r.Stopped() {
			e.sink.Warn("unstopped record skipped", "event", e.Key())
			continue
		}
		total += r.Delta()
	}
	return total
}

// PeakMemory returns the highest stop-time memory sample across closed
// records, 0 when none qualifies. Open records are skipped with a
// warning; when the event does not track memory closed records are
// skipped silently.
func (e *Event) PeakMemory() uint64 {
	var peak uint64
	for _, r := range e.records {
		if !r.Stopped() {
			e.sink.Warn("unstopped record skipped", "event", e.Key())
			continue
		}
		if !e.trackMemory {
			continue
		}
		if m := r.StopMemory(); m > peak {
			peak = m
		}
	}
	return peak
}

// Records returns the recorded periods in start order. The slice is a
// copy; the records themselves are shared.
func (e *Event) Records() []*Record {
	out := make([]*Record, len(e.records))
	copy(out, e.records)
	return out
}

// Snapshots returns the taken snapshots in order.
func (e *Event) Snapshots() []Snapshot {
	out := make([]Snapshot, len(e.snapshots))
	copy(out, e.snapshots)
	return out
}

// String renders the one-line summary used by reports and logs, for
// example "database/query: 24.50 MiB - 132 ms".
func (e *Event) String() string {
	mib := float64(e.PeakMemory()) / 1024 / 1024
	return fmt.Sprintf("%s/%s: %.2f MiB - %d ms",
		e.category, e.name, mib, e.Duration().Milliseconds())
}
