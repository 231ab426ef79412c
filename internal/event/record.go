package event

import (
	"time"

	"github.com/northrook/profiler/internal/clock"
	"github.com/northrook/profiler/internal/memsample"
	"github.com/northrook/profiler/internal/warn"
)

// Record is a single start/stop period inside an Event. The start
// instant and start memory sample are fixed at construction; the stop
// side is written together with the delta, at most once.
type Record struct {
	start       time.Time
	stop        time.Time
	delta       time.Duration
	startMemory uint64
	stopMemory  uint64
	startNote   string
	stopNote    string
	trackMemory bool

	clk     clock.Clock
	sampler memsample.Sampler
	sink    warn.Sink
}

func newRecord(clk clock.Clock, sampler memsample.Sampler, sink warn.Sink, trackMemory bool, note string) *Record {
	r := &Record{
		start:       clk.Now(),
		startNote:   note,
		trackMemory: trackMemory,
		clk:         clk,
		sampler:     sampler,
		sink:        sink,
	}
	if trackMemory {
		r.startMemory = sampler.Sample()
	}
	return r
}

// Stop closes the record at the current clock instant and derives the
// delta. Stopping an already-stopped record warns and changes nothing;
// the first stop wins.
func (r *Record) Stop(note string) *Record {
	if r.Stopped() {
		r.sink.Warn("record already stopped",
			"started", r.start, "stopped", r.stop)
		return r
	}
	if r.trackMemory {
		r.stopMemory = r.sampler.Sample()
	}
	r.stop = r.clk.Now()
	r.delta = r.stop.Sub(r.start)
	r.stopNote = note
	return r
}

// Close stops the record only if it is still open. Unlike Stop it never
// warns, so shutdown sweeps stay quiet.
func (r *Record) Close() *Record {
	if !r.Stopped() {
		return r.Stop("")
	}
	return r
}

// Stopped reports whether the record has been closed.
func (r *Record) Stopped() bool { return !r.stop.IsZero() }

// StartedAt returns the instant the record was opened.
func (r *Record) StartedAt() time.Time { return r.start }

// StoppedAt returns the instant the record was closed, zero while open.
func (r *Record) StoppedAt() time.Time { return r.stop }

// Delta returns the stop-start difference, zero while open. Check
// Stopped to distinguish an instantaneous record from an open one.
func (r *Record) Delta() time.Duration { return r.delta }

// StartMemory returns the memory sample taken on start, 0 when the
// owning event does not track memory.
func (r *Record) StartMemory() uint64 { return r.startMemory }

// StopMemory returns the memory sample taken on stop.
func (r *Record) StopMemory() uint64 { return r.stopMemory }

// StartNote returns the label attached when the record was opened.
func (r *Record) StartNote() string { return r.startNote }

// StopNote returns the label attached when the record was closed.
func (r *Record) StopNote() string { return r.stopNote }
