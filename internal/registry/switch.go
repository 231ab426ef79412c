package registry

import "sync/atomic"

// Switch is the enable/disable cell a registry consults before handing
// out events. The zero value is enabled. One Switch may be shared by
// several registries so a single flip silences them all; reads and
// writes are atomic, and a flip mid-measurement only affects later
// calls.
type Switch struct {
	disabled atomic.Bool
}

// NewSwitch returns an enabled switch.
func NewSwitch() *Switch { return &Switch{} }

// Enabled reports whether profiling is on.
func (s *Switch) Enabled() bool { return !s.disabled.Load() }

// Enable turns profiling on.
func (s *Switch) Enable() { s.disabled.Store(false) }

// Disable turns profiling off. Events created earlier keep their data.
func (s *Switch) Disable() { s.disabled.Store(true) }
