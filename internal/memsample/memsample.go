// Package memsample reads process memory so events can attach byte
// counts to their records and snapshots.
package memsample

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v4/process"
)

// Sampler returns a current memory footprint in bytes. Implementations
// return 0 when no reading is available; a failed sample must never
// disturb the measured application.
type Sampler interface {
	Sample() uint64
}

// Process samples the resident set size of one OS process.
type Process struct {
	proc *process.Process
}

// Self returns a sampler reading the current process's RSS.
func Self() *Process {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		slog.Debug("failed to open own process for memory sampling", "error", err)
		return &Process{}
	}
	return &Process{proc: proc}
}

// ForPID returns a sampler reading the RSS of another process, such as
// a child spawned by the CLI.
func ForPID(pid int32) (*Process, error) {
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	return &Process{proc: proc}, nil
}

// Sample returns the process RSS in bytes, or 0 when the reading fails
// (for example after the process exits).
func (p *Process) Sample() uint64 {
	if p.proc == nil {
		return 0
	}
	memInfo, err := p.proc.MemoryInfo()
	if err != nil {
		slog.Debug("failed to sample process memory", "pid", p.proc.Pid, "error", err)
		return 0
	}
	return memInfo.RSS
}

// Runtime samples the Go heap in use via runtime.ReadMemStats. It is
// the alternative source for hosts that care about heap growth rather
// than the process footprint.
type Runtime struct{}

func (Runtime) Sample() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

// Fixed always reports the same value. Tests use it to make memory
// aggregates deterministic.
type Fixed struct {
	Bytes uint64
}

func (f Fixed) Sample() uint64 { return f.Bytes }

// Sequence replays a fixed series of readings then repeats the last
// one. Tests use it to model growth between start and stop samples.
type Sequence struct {
	Values []uint64
	next   int
}

func (s *Sequence) Sample() uint64 {
	if len(s.Values) == 0 {
		return 0
	}
	if s.next >= len(s.Values) {
		return s.Values[len(s.Values)-1]
	}
	v := s.Values[s.next]
	s.next++
	return v
}
