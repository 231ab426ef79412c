// Package report renders event aggregates for humans: a text table, a
// CSV file or an HTML chart. Sinks consume Summary rows so they stay
// decoupled from the profiling core.
package report

import (
	"time"

	"github.com/northrook/profiler/internal/event"
)

// Summary is the aggregate view of one event shared by every sink.
// Byte counts come with a derived MiB value so downstream consumers do
// not repeat the conversion.
type Summary struct {
	Category   string  `json:"category"`
	Name       string  `json:"name"`
	Records    int     `json:"records"`
	Snapshots  int     `json:"snapshots"`
	Running    bool    `json:"running"`
	DurationMS float64 `json:"duration_ms"`
	ElapsedMS  float64 `json:"elapsed_ms"`
	PeakMemory uint64  `json:"peak_memory_bytes"`
	MemoryMiB  float64 `json:"peak_memory_mib"`
}

// Of builds the summary row for one event. Aggregate queries on a
// still-running event warn through the event's sink, same as calling
// them directly.
func Of(ev *event.Event) Summary {
	duration := ev.Duration()
	peak := ev.PeakMemory()
	var elapsedMS float64
	if elapsed, ok := ev.ElapsedTime(); ok {
		elapsedMS = float64(elapsed) / float64(time.Millisecond)
	}
	return Summary{
		Category:   ev.Category(),
		Name:       ev.Name(),
		Records:    len(ev.Records()),
		Snapshots:  len(ev.Snapshots()),
		Running:    ev.Running(),
		DurationMS: float64(duration) / float64(time.Millisecond),
		ElapsedMS:  elapsedMS,
		PeakMemory: peak,
		MemoryMiB:  float64(peak) / 1024 / 1024,
	}
}

// Summarize builds rows for a slice of events, keeping their order.
// The registry hands events out sorted by category then name, so
// reports render deterministically.
func Summarize(events []*event.Event) []Summary {
	out := make([]Summary, 0, len(events))
	for _, ev := range events {
		out = append(out, Of(ev))
	}
	return out
}

// Sink renders one batch of summaries to a destination.
type Sink interface {
	Write(rows []Summary) error
}
