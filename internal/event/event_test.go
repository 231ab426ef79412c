package event

import (
	"testing"
	"time"

	"github.com/northrook/profiler/internal/clock"
	"github.com/northrook/profiler/internal/memsample"
	"github.com/northrook/profiler/internal/warn"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEvent(t *testing.T, trackMemory bool, sampler memsample.Sampler) (*Event, *clock.Manual, *warn.Capture) {
	t.Helper()
	clk := clock.NewManual(epoch)
	sink := &warn.Capture{}
	if sampler == nil {
		sampler = memsample.Fixed{}
	}
	ev := New("query", "database", Options{
		TrackMemory: trackMemory,
		Clock:       clk,
		Sampler:     sampler,
		Sink:        sink,
	})
	return ev, clk, sink
}

func TestRecordDeltaIsExactly_StopMinusStart(t *testing.T) {
	ev, clk, sink := newTestEvent(t, false, nil)

	ev.Start("begin")
	clk.Advance(1234 * time.Millisecond)
	ev.Stop("end")

	recs := ev.Records()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if !r.Stopped() {
		t.Fatalf("record should be stopped")
	}
	if want := r.StoppedAt().Sub(r.StartedAt()); r.Delta() != want {
		t.Fatalf("delta=%v, want exactly %v", r.Delta(), want)
	}
	if r.Delta() != 1234*time.Millisecond {
		t.Fatalf("delta=%v, want 1234ms", r.Delta())
	}
	if r.StartNote() != "begin" || r.StopNote() != "end" {
		t.Fatalf("notes lost: %q / %q", r.StartNote(), r.StopNote())
	}
	if len(sink.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", sink.Warnings)
	}
}

func TestDurationSumsOnlyClosedRecords(t *testing.T) {
	ev, clk, sink := newTestEvent(t, false, nil)

	ev.Start("")
	clk.Advance(1 * time.Second)
	ev.Stop("")

	clk.Advance(5 * time.Second)
	ev.Start("")
	clk.Advance(2500 * time.Millisecond)
	ev.Stop("")

	// Third record stays open and must not contribute.
	ev.Start("")
	clk.Advance(time.Hour)

	if got := ev.Duration(); got != 3500*time.Millisecond {
		t.Fatalf("Duration=%v, want 3.5s", got)
	}
	if !sink.Has("unstopped record skipped") {
		t.Fatalf("expected a warning for the open record, got %+v", sink.Warnings)
	}
}

func TestElapsedTimeSpansGapsBetweenRecords(t *testing.T) {
	ev, clk, _ := newTestEvent(t, false, nil)

	clk.Set(epoch.Add(10 * time.Second))
	ev.Start("")
	clk.Set(epoch.Add(11 * time.Second))
	ev.Stop("")

	clk.Set(epoch.Add(20 * time.Second))
	ev.Start("")
	clk.Set(epoch.Add(22 * time.Second))
	ev.Stop("")

	elapsed, ok := ev.ElapsedTime()
	if !ok {
		t.Fatalf("elapsed should be present")
	}
	if elapsed != 12*time.Second {
		t.Fatalf("elapsed=%v, want 12s", elapsed)
	}
	if got := ev.Duration(); got != 3*time.Second {
		t.Fatalf("Duration=%v, want 3s", got)
	}
}

func TestDoubleStopWarnsAndKeepsFirstResult(t *testing.T) {
	ev, clk, sink := newTestEvent(t, false, nil)

	ev.Start("")
	clk.Advance(time.Second)
	ev.Stop("first")
	firstStop := ev.Records()[0].StoppedAt()

	clk.Advance(time.Minute)
	ev.Stop("second")

	r := ev.Records()[0]
	if !r.StoppedAt().Equal(firstStop) {
		t.Fatalf("second stop moved the stop time")
	}
	if r.Delta() != time.Second {
		t.Fatalf("second stop rewrote delta: %v", r.Delta())
	}
	if r.StopNote() != "first" {
		t.Fatalf("second stop rewrote note: %q", r.StopNote())
	}
	if n := sink.Count("record already stopped"); n != 1 {
		t.Fatalf("expected exactly one warning, got %d", n)
	}
}

func TestStopBeforeAnyStartWarns(t *testing.T) {
	ev, _, sink := newTestEvent(t, false, nil)
	ev.Stop("")
	if len(ev.Records()) != 0 {
		t.Fatalf("stop created a record")
	}
	if !sink.Has("stop called before any start") {
		t.Fatalf("expected warning, got %+v", sink.Warnings)
	}
	if sink.Warnings[0].Args[1] != "database::query" {
		t.Fatalf("warning should carry category::name, got %v", sink.Warnings[0].Args)
	}
}

func TestReentrantStartStopsLastFirst(t *testing.T) {
	ev, clk, _ := newTestEvent(t, false, nil)

	ev.Start("outer")
	clk.Advance(time.Second)
	ev.Start("inner")
	clk.Advance(time.Second)
	ev.Stop("")

	recs := ev.Records()
	if recs[0].Stopped() {
		t.Fatalf("outer record should still be open")
	}
	if !recs[1].Stopped() {
		t.Fatalf("inner record should be stopped")
	}
	// Running follows the last record only; the open outer record does
	// not count.
	if ev.Running() {
		t.Fatalf("Running should be false once the last record stopped")
	}
}

func TestPeakMemoryTakesMaxStopSample(t *testing.T) {
	// Samples are consumed start,stop per record:
	// record 1 sees 100,300; record 2 sees 200,250.
	seq := &memsample.Sequence{Values: []uint64{100, 300, 200, 250}}
	ev, clk, _ := newTestEvent(t, true, seq)

	ev.Start("")
	clk.Advance(time.Second)
	ev.Stop("")
	ev.Start("")
	clk.Advance(time.Second)
	ev.Stop("")

	if got := ev.PeakMemory(); got != 300 {
		t.Fatalf("PeakMemory=%d, want 300", got)
	}
	recs := ev.Records()
	if recs[0].StartMemory() != 100 || recs[0].StopMemory() != 300 {
		t.Fatalf("record 1 samples: %d/%d", recs[0].StartMemory(), recs[0].StopMemory())
	}
}

func TestPeakMemoryZeroWhenUntracked(t *testing.T) {
	ev, clk, sink := newTestEvent(t, false, memsample.Fixed{Bytes: 999})
	ev.Start("")
	clk.Advance(time.Second)
	ev.Stop("")
	if got := ev.PeakMemory(); got != 0 {
		t.Fatalf("untracked event reported memory %d", got)
	}
	if len(sink.Warnings) != 0 {
		t.Fatalf("closed untracked records must not warn: %+v", sink.Warnings)
	}
}

func TestPeakMemoryWarnsOnOpenRecord(t *testing.T) {
	ev, _, sink := newTestEvent(t, true, memsample.Fixed{Bytes: 10})
	ev.Start("")
	if got := ev.PeakMemory(); got != 0 {
		t.Fatalf("open record contributed memory %d", got)
	}
	if !sink.Has("unstopped record skipped") {
		t.Fatalf("expected warning, got %+v", sink.Warnings)
	}
}

func TestCloseAllIsQuietAndIdempotent(t *testing.T) {
	ev, clk, sink := newTestEvent(t, false, nil)
	ev.Start("")
	clk.Advance(time.Second)
	ev.Start("")
	clk.Advance(time.Second)

	ev.CloseAll()
	for i, r := range ev.Records() {
		if !r.Stopped() {
			t.Fatalf("record %d still open after CloseAll", i)
		}
	}
	ev.CloseAll()
	if len(sink.Warnings) != 0 {
		t.Fatalf("CloseAll must not warn: %+v", sink.Warnings)
	}
	// Both records closed at the same instant, different start times.
	recs := ev.Records()
	if recs[0].Delta() != 2*time.Second || recs[1].Delta() != time.Second {
		t.Fatalf("deltas after CloseAll: %v, %v", recs[0].Delta(), recs[1].Delta())
	}
}

func TestStartAndEndTimeAbsence(t *testing.T) {
	ev, clk, _ := newTestEvent(t, false, nil)

	if _, ok := ev.StartTime(); ok {
		t.Fatalf("StartTime present with no records")
	}
	if _, ok := ev.EndTime(); ok {
		t.Fatalf("EndTime present with no records")
	}
	if _, ok := ev.ElapsedTime(); ok {
		t.Fatalf("ElapsedTime present with no records")
	}

	ev.Start("")
	start, ok := ev.StartTime()
	if !ok || !start.Equal(epoch) {
		t.Fatalf("StartTime=%v ok=%t", start, ok)
	}
	if _, ok := ev.EndTime(); ok {
		t.Fatalf("EndTime present while running")
	}

	clk.Advance(time.Second)
	ev.Stop("")
	end, ok := ev.EndTime()
	if !ok || !end.Equal(epoch.Add(time.Second)) {
		t.Fatalf("EndTime=%v ok=%t", end, ok)
	}
}

func TestSnapshotsAreIndependentOfRecords(t *testing.T) {
	ev, clk, sink := newTestEvent(t, true, memsample.Fixed{Bytes: 2048})

	ev.Snapshot("before")
	clk.Advance(time.Second)
	ev.Snapshot("after")

	snaps := ev.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Note() != "before" || snaps[1].Note() != "after" {
		t.Fatalf("notes lost: %q %q", snaps[0].Note(), snaps[1].Note())
	}
	if !snaps[1].Timestamp().Equal(epoch.Add(time.Second)) {
		t.Fatalf("snapshot timestamp %v", snaps[1].Timestamp())
	}
	if snaps[0].Memory() != 2048 {
		t.Fatalf("snapshot memory %d", snaps[0].Memory())
	}
	if len(ev.Records()) != 0 {
		t.Fatalf("snapshots must not create records")
	}
	if ev.Running() {
		t.Fatalf("snapshots must not start the event")
	}
	if got := ev.Duration(); got != 0 {
		t.Fatalf("snapshots contributed duration %v", got)
	}
	if len(sink.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %+v", sink.Warnings)
	}
}

func TestSnapshotWithoutMemoryTracking(t *testing.T) {
	ev, _, _ := newTestEvent(t, false, memsample.Fixed{Bytes: 4096})
	ev.Snapshot("")
	if got := ev.Snapshots()[0].Memory(); got != 0 {
		t.Fatalf("untracked snapshot sampled memory %d", got)
	}
}

func TestStringFormat(t *testing.T) {
	// 2 MiB peak, 1500 ms total.
	ev, clk, _ := newTestEvent(t, true, memsample.Fixed{Bytes: 2 * 1024 * 1024})
	ev.Start("")
	clk.Advance(1500 * time.Millisecond)
	ev.Stop("")

	want := "database/query: 2.00 MiB - 1500 ms"
	if got := ev.String(); got != want {
		t.Fatalf("String()=%q, want %q", got, want)
	}
}

func TestDefaultsFillIn(t *testing.T) {
	ev := New("n", "c", Options{})
	ev.Start("").Stop("")
	if got := ev.Duration(); got < 0 {
		t.Fatalf("negative duration %v", got)
	}
}
