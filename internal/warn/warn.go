// Package warn defines the sink the profiling core reports recoverable
// misuse through. Instrumentation must never take the host application
// down, so anything short of a programming error degrades to a warning.
package warn

// Sink receives non-fatal diagnostics. The method set matches
// *slog.Logger so a logger can serve as a sink directly.
type Sink interface {
	Warn(msg string, args ...any)
}

// Discard drops every warning.
type Discard struct{}

func (Discard) Warn(string, ...any) {}

// Warning is one captured diagnostic.
type Warning struct {
	Message string
	Args    []any
}

// Capture retains warnings in order for inspection in tests.
type Capture struct {
	Warnings []Warning
}

func (c *Capture) Warn(msg string, args ...any) {
	c.Warnings = append(c.Warnings, Warning{Message: msg, Args: args})
}

// Has reports whether a warning with the given message was captured.
func (c *Capture) Has(msg string) bool {
	for _, w := range c.Warnings {
		if w.Message == msg {
			return true
		}
	}
	return false
}

// Count returns how many warnings carry the given message.
func (c *Capture) Count(msg string) int {
	n := 0
	for _, w := range c.Warnings {
		if w.Message == msg {
			n++
		}
	}
	return n
}

// Reset clears captured warnings.
func (c *Capture) Reset() { c.Warnings = nil }
