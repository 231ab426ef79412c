package profiler

import (
	"time"

	"github.com/northrook/profiler/internal/event"
	"github.com/northrook/profiler/internal/metrics"
)

// Timer is the minimal capability for code that only times sections and
// does not care about categories, snapshots or reports. Profiler
// implements it, so instrumented libraries can depend on this interface
// alone.
type Timer interface {
	Begin(name string) Handle
	End(h Handle)
	Elapsed(h Handle) time.Duration
}

var _ Timer = (*Profiler)(nil)

// Handle pins the record a Begin opened. End stops that record
// specifically, even when later records were started on the same event,
// so interleaved Begin/End pairs resolve correctly.
type Handle struct {
	ev  *event.Event
	rec *event.Record
}

// Valid reports whether the handle refers to a record. Begin returns an
// invalid handle while profiling is disabled; End and Elapsed ignore
// invalid handles.
func (h Handle) Valid() bool { return h.rec != nil }

// Begin opens a record on the named event in the default category.
func (p *Profiler) Begin(name string) Handle {
	p.mu.Lock()
	ev := p.reg.Event(name, "")
	if ev == nil {
		p.mu.Unlock()
		return Handle{}
	}
	rec := ev.StartRecord("")
	p.mu.Unlock()
	metrics.IncStart(ev.Name(), ev.Category())
	return Handle{ev: ev, rec: rec}
}

// End stops the pinned record. Ending twice warns and keeps the first
// stop.
func (p *Profiler) End(h Handle) {
	if !h.Valid() {
		return
	}
	p.mu.Lock()
	h.rec.Stop("")
	p.mu.Unlock()
	metrics.IncStop(h.ev.Name(), h.ev.Category())
}

// Elapsed returns the pinned record's delta once stopped, or the time
// accrued so far while it runs. Invalid handles report zero.
func (p *Profiler) Elapsed(h Handle) time.Duration {
	if !h.Valid() {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if h.rec.Stopped() {
		return h.rec.Delta()
	}
	return p.clk.Now().Sub(h.rec.StartedAt())
}
