// Package registry resolves names and categories to events, creating
// them on first reference, and carries the enable/disable switch. Like
// package event it does no locking of its own; the facade serializes
// concurrent callers.
package registry

import (
	"log/slog"
	"sort"
	"time"

	"github.com/northrook/profiler/internal/clock"
	"github.com/northrook/profiler/internal/event"
	"github.com/northrook/profiler/internal/memsample"
	"github.com/northrook/profiler/internal/naming"
	"github.com/northrook/profiler/internal/warn"
)

// Config assembles a registry. Zero collaborators fall back to the
// system clock, the process RSS sampler and slog.Default().
type Config struct {
	// Category is the sticky default applied when call sites omit one.
	Category string
	// Disabled starts the registry switched off.
	Disabled bool
	// TrackMemory makes records and snapshots carry memory samples.
	TrackMemory bool
	// Switch shares an enable/disable cell with other registries. When
	// nil the registry gets its own.
	Switch  *Switch
	Clock   clock.Clock
	Sampler memsample.Sampler
	Sink    warn.Sink
}

// Registry is the entry point of the profiling core. Events are keyed
// by category then name; looking one up creates it, so a (name,
// category) pair always resolves to the same event for the lifetime of
// the registry.
type Registry struct {
	events   map[string]map[string]*event.Event
	category string
	sw       *Switch

	trackMemory bool
	clk         clock.Clock
	sampler     memsample.Sampler
	sink        warn.Sink

	createdAt time.Time
	closedAt  time.Time
}

// New constructs a registry from cfg.
func New(cfg Config) *Registry {
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.Sampler == nil {
		cfg.Sampler = memsample.Self()
	}
	if cfg.Sink == nil {
		cfg.Sink = slog.Default()
	}
	sw := cfg.Switch
	if sw == nil {
		sw = NewSwitch()
	}
	if cfg.Disabled {
		sw.Disable()
	}
	r := &Registry{
		events: map[string]map[string]*event.Event{
			naming.DefaultCategory: {},
		},
		sw:          sw,
		trackMemory: cfg.TrackMemory,
		clk:         cfg.Clock,
		sampler:     cfg.Sampler,
		sink:        cfg.Sink,
		createdAt:   cfg.Clock.Now(),
	}
	if cfg.Category != "" {
		r.category = naming.Category(cfg.Category)
	}
	return r
}

// Enabled reports the state of the switch.
func (r *Registry) Enabled() bool { return r.sw.Enabled() }

// Enable turns the switch on.
func (r *Registry) Enable() { r.sw.Enable() }

// Disable turns the switch off. Existing events keep their data; only
// new lookups are refused.
func (r *Registry) Disable() { r.sw.Disable() }

// Switch returns the enable/disable cell, so it can be shared with
// another registry.
func (r *Registry) Switch() *Switch { return r.sw }

// SetCategory sets the sticky default category applied when call sites
// omit one. It can be set once; a later call with a different value is
// rejected with a warning and the original wins.
func (r *Registry) SetCategory(category string) *Registry {
	normalized := naming.Category(category)
	if normalized == "" {
		return r
	}
	if r.category != "" {
		if normalized != r.category {
			r.sink.Warn("default category already set",
				"current", r.category, "rejected", normalized)
		}
		return r
	}
	r.category = normalized
	return r
}

// Category returns the sticky default category, empty when unset.
func (r *Registry) Category() string { return r.category }

func (r *Registry) defaultCategory() string {
	if r.category != "" {
		return r.category
	}
	return naming.DefaultCategory
}

// resolve normalizes a (name, category) pair to storage keys. With no
// category given, a namespaced name supplies both parts: "App\Build\Step"
// registers "Step" under category "step". Invalid names panic via
// naming.MustName.
func (r *Registry) resolve(name, category string) (string, string) {
	if category == "" && naming.Namespaced(name) {
		name = naming.LastSegment(name)
		return naming.MustName(name), naming.Category(name)
	}
	category = naming.Category(category)
	if category == "" {
		category = r.defaultCategory()
	}
	return naming.MustName(name), category
}

// Event returns the event registered under name and category, creating
// it on first reference. It returns nil while the registry is disabled,
// and never starts a record; only Start does that.
func (r *Registry) Event(name, category string) *event.Event {
	if !r.Enabled() {
		return nil
	}
	name, category = r.resolve(name, category)
	byName := r.events[category]
	if byName == nil {
		byName = make(map[string]*event.Event)
		r.events[category] = byName
	}
	ev := byName[name]
	if ev == nil {
		ev = event.New(name, category, event.Options{
			TrackMemory: r.trackMemory,
			Clock:       r.clk,
			Sampler:     r.sampler,
			Sink:        r.sink,
		})
		byName[name] = ev
	}
	return ev
}

// Lookup returns the event under name and category if it already
// exists, without creating it. It works regardless of the switch.
func (r *Registry) Lookup(name, category string) *event.Event {
	name, category = r.resolve(name, category)
	return r.events[category][name]
}

// Start fetches-or-creates the event and opens a new record on it. It
// returns nil while the registry is disabled.
func (r *Registry) Start(name, category string) *event.Event {
	ev := r.Event(name, category)
	if ev == nil {
		return nil
	}
	return ev.Start("")
}

// Stop closes the most recent record of the addressed events and
// returns them. Both parts given addresses one event; a bare name
// addresses that name in every category; a bare category addresses
// everything registered under it; neither is a no-op, since shutdown
// goes through Close. Stop works regardless of the switch so periods
// started before a disable can still be closed.
func (r *Registry) Stop(name, category string) []*event.Event {
	switch {
	case name == "" && category == "":
		return nil
	case name != "" && category != "":
		name, category = r.resolve(name, category)
		if ev := r.events[category][name]; ev != nil {
			ev.Stop("")
			return []*event.Event{ev}
		}
		return nil
	case name != "":
		if naming.Namespaced(name) {
			name = naming.LastSegment(name)
		}
		name = naming.MustName(name)
		var stopped []*event.Event
		for _, category := range r.sortedCategories() {
			if ev := r.events[category][name]; ev != nil {
				ev.Stop("")
				stopped = append(stopped, ev)
			}
		}
		return stopped
	default:
		category = naming.Category(category)
		byName := r.events[category]
		var stopped []*event.Event
		for _, name := range sortedNames(byName) {
			ev := byName[name]
			ev.Stop("")
			stopped = append(stopped, ev)
		}
		return stopped
	}
}

// Close stops every remaining open record across all events, quietly,
// and stamps the registry's end of life. Only the first call has any
// effect.
func (r *Registry) Close() {
	if !r.closedAt.IsZero() {
		return
	}
	for _, byName := range r.events {
		for _, ev := range byName {
			ev.CloseAll()
		}
	}
	r.closedAt = r.clk.Now()
}

// CreatedAt returns the registry construction instant.
func (r *Registry) CreatedAt() time.Time { return r.createdAt }

// ClosedAt returns when Close first ran, or false before that.
func (r *Registry) ClosedAt() (time.Time, bool) {
	if r.closedAt.IsZero() {
		return time.Time{}, false
	}
	return r.closedAt, true
}

// Closed reports whether Close has run.
func (r *Registry) Closed() bool { return !r.closedAt.IsZero() }

// Categories returns the registered category labels, sorted. The
// default category is always present.
func (r *Registry) Categories() []string { return r.sortedCategories() }

// EventsIn returns the events under one category, sorted by name.
func (r *Registry) EventsIn(category string) []*event.Event {
	byName := r.events[naming.Category(category)]
	out := make([]*event.Event, 0, len(byName))
	for _, name := range sortedNames(byName) {
		out = append(out, byName[name])
	}
	return out
}

// Events returns every registered event, ordered by category then name
// so reports render deterministically.
func (r *Registry) Events() []*event.Event {
	var out []*event.Event
	for _, category := range r.sortedCategories() {
		byName := r.events[category]
		for _, name := range sortedNames(byName) {
			out = append(out, byName[name])
		}
	}
	return out
}

// Len returns the number of registered events.
func (r *Registry) Len() int {
	n := 0
	for _, byName := range r.events {
		n += len(byName)
	}
	return n
}

func (r *Registry) sortedCategories() []string {
	out := make([]string, 0, len(r.events))
	for category := range r.events {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

func sortedNames(byName map[string]*event.Event) []string {
	out := make([]string, 0, len(byName))
	for name := range byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
