// Package profiler provides lightweight in-process instrumentation:
// named events that accumulate timed records and point-in-time
// snapshots, with wall-clock and peak-memory aggregates queryable at
// runtime. Misuse degrades to warnings; instrumentation never fails the
// host application.
//
// The Profiler facade is safe for concurrent use. The packages under
// internal/ hold the unsynchronized core for embedders that bring their
// own serialization.
package profiler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/northrook/profiler/internal/clock"
	"github.com/northrook/profiler/internal/config"
	"github.com/northrook/profiler/internal/logger"
	"github.com/northrook/profiler/internal/memsample"
	"github.com/northrook/profiler/internal/metrics"
	"github.com/northrook/profiler/internal/registry"
	"github.com/northrook/profiler/internal/report"
	"github.com/northrook/profiler/internal/server"
	"github.com/northrook/profiler/internal/warn"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Switch = registry.Switch

type Clock = clock.Clock

type MemorySampler = memsample.Sampler

type WarnSink = warn.Sink

type Summary = report.Summary

type ReportSink = report.Sink

type Config = config.Config

type ConfigWatcher = config.Watcher

type LogConfig = logger.Config

// NewSwitch returns an enabled switch that can be shared by several
// profilers via WithSwitch, so one flip silences them all.
func NewSwitch() *Switch { return registry.NewSwitch() }

type options struct {
	category    string
	disabled    bool
	trackMemory bool
	sw          *Switch
	clk         Clock
	sampler     MemorySampler
	sink        WarnSink
}

// Option configures a Profiler at construction.
type Option func(*options)

// WithCategory sets the default category applied when call sites omit
// one. Same once-only rule as SetCategory.
func WithCategory(category string) Option {
	return func(o *options) { o.category = category }
}

// WithDisabled starts the profiler switched off.
func WithDisabled() Option {
	return func(o *options) { o.disabled = true }
}

// WithMemoryTracking makes records and snapshots carry memory samples.
func WithMemoryTracking() Option {
	return func(o *options) { o.trackMemory = true }
}

// WithSwitch shares an enable/disable cell with other profilers.
func WithSwitch(sw *Switch) Option {
	return func(o *options) { o.sw = sw }
}

// WithClock substitutes the time source. Tests use a manual clock.
func WithClock(clk Clock) Option {
	return func(o *options) { o.clk = clk }
}

// WithMemorySampler substitutes the memory source. The default reads
// the process RSS.
func WithMemorySampler(s MemorySampler) Option {
	return func(o *options) { o.sampler = s }
}

// WithWarnSink routes misuse warnings somewhere other than
// slog.Default(). Any *slog.Logger satisfies WarnSink.
func WithWarnSink(s WarnSink) Option {
	return func(o *options) { o.sink = s }
}

// Profiler is the synchronized facade over one event registry.
type Profiler struct {
	mu  sync.RWMutex
	reg *registry.Registry
	clk Clock
}

// New constructs a Profiler.
func New(opts ...Option) *Profiler {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.clk == nil {
		o.clk = clock.System{}
	}
	sink := o.sink
	if sink == nil {
		sink = slog.Default()
	}
	reg := registry.New(registry.Config{
		Category:    o.category,
		Disabled:    o.disabled,
		TrackMemory: o.trackMemory,
		Switch:      o.sw,
		Clock:       o.clk,
		Sampler:     o.sampler,
		// Warnings also feed the warnings_total metric when metrics
		// are registered.
		Sink: metrics.WarnCounter{Next: sink},
	})
	return &Profiler{reg: reg, clk: o.clk}
}

// NewFromConfig constructs a Profiler from a loaded config file.
func NewFromConfig(cfg *Config) *Profiler {
	opts := make([]Option, 0, 4)
	if cfg.Profiler.Category != "" {
		opts = append(opts, WithCategory(cfg.Profiler.Category))
	}
	if cfg.Profiler.Disabled {
		opts = append(opts, WithDisabled())
	}
	if cfg.Profiler.TrackMemory {
		opts = append(opts, WithMemoryTracking())
	}
	if strings.EqualFold(cfg.Sampling.Source, "heap") {
		opts = append(opts, WithMemorySampler(memsample.Runtime{}))
	}
	return New(opts...)
}

// Event returns a handle on the event registered under name and
// category, creating it on first reference. It returns nil while
// profiling is disabled; nil handles ignore commands, so chains stay
// safe.
func (p *Profiler) Event(name, category string) *Event {
	p.mu.Lock()
	ev := p.reg.Event(name, category)
	p.mu.Unlock()
	if ev == nil {
		return nil
	}
	return &Event{p: p, inner: ev}
}

// Start fetches-or-creates the event and opens a new record:
//
//	defer p.Start("import", "").Stop("")
func (p *Profiler) Start(name, category string) *Event {
	p.mu.Lock()
	ev := p.reg.Start(name, category)
	p.mu.Unlock()
	if ev == nil {
		return nil
	}
	metrics.IncStart(ev.Name(), ev.Category())
	return &Event{p: p, inner: ev}
}

// Stop closes the most recent record of the addressed events and
// returns how many were addressed. Both parts given stops one event; a
// bare name stops that name in every category; a bare category stops
// everything under it.
func (p *Profiler) Stop(name, category string) int {
	p.mu.Lock()
	stopped := p.reg.Stop(name, category)
	p.mu.Unlock()
	for _, ev := range stopped {
		metrics.IncStop(ev.Name(), ev.Category())
	}
	return len(stopped)
}

// Enabled reports the switch state.
func (p *Profiler) Enabled() bool { return p.reg.Enabled() }

// Enable turns profiling on.
func (p *Profiler) Enable() { p.reg.Enable() }

// Disable turns profiling off. Existing events keep their data; only
// new lookups are refused.
func (p *Profiler) Disable() { p.reg.Disable() }

// Switch exposes the enable/disable cell for sharing with another
// profiler.
func (p *Profiler) Switch() *Switch { return p.reg.Switch() }

// SetCategory sets the sticky default category. It can be set once; a
// later change is rejected with a warning.
func (p *Profiler) SetCategory(category string) *Profiler {
	p.mu.Lock()
	p.reg.SetCategory(category)
	p.mu.Unlock()
	return p
}

// Category returns the sticky default category, empty when unset.
func (p *Profiler) Category() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reg.Category()
}

// Close stops every remaining open record, quietly, and stamps the
// profiler's end of life. Call it once on shutdown, typically deferred
// right after New.
func (p *Profiler) Close() {
	p.mu.Lock()
	p.reg.Close()
	p.mu.Unlock()
}

// Closed reports whether Close has run.
func (p *Profiler) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reg.Closed()
}

// CreatedAt returns the construction instant.
func (p *Profiler) CreatedAt() time.Time { return p.reg.CreatedAt() }

// ClosedAt returns when Close first ran, or false before that.
func (p *Profiler) ClosedAt() (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reg.ClosedAt()
}

// Categories returns the registered category labels, sorted.
func (p *Profiler) Categories() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reg.Categories()
}

// Len returns the number of registered events.
func (p *Profiler) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reg.Len()
}

// Events returns handles on every registered event, ordered by
// category then name.
func (p *Profiler) Events() []*Event {
	p.mu.RLock()
	defer p.mu.RUnlock()
	inner := p.reg.Events()
	out := make([]*Event, len(inner))
	for i, ev := range inner {
		out[i] = &Event{p: p, inner: ev}
	}
	return out
}

// Summaries returns the aggregate view of every event, ordered by
// category then name. Events still running warn, same as querying
// their aggregates directly.
func (p *Profiler) Summaries() []Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return report.Summarize(p.reg.Events())
}

// Apply applies the runtime-adjustable settings from a config: the
// switch and the default category. WatchConfig calls it on reload.
func (p *Profiler) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.Profiler.Disabled {
		p.Disable()
	} else {
		p.Enable()
	}
	if cfg.Profiler.Category != "" {
		p.SetCategory(cfg.Profiler.Category)
	}
}

// WriteReport renders the current summaries to sink.
func (p *Profiler) WriteReport(sink ReportSink) error {
	return sink.Write(p.Summaries())
}

// Report renders the current summaries in the given format: "text"
// (stdout when output is empty), "csv" or "html".
func (p *Profiler) Report(format, output string) error {
	sink, err := report.New(format, output)
	if err != nil {
		return err
	}
	return p.WriteReport(sink)
}

// PublishMetrics pushes per-event duration, peak memory and running
// gauges to the Prometheus collectors. Counters for starts, stops,
// snapshots and warnings update continuously; call this at quiescent
// points for the gauges.
func (p *Profiler) PublishMetrics() {
	for _, s := range p.Summaries() {
		metrics.SetDuration(s.Name, s.Category, s.DurationMS/1000)
		metrics.SetPeakMemory(s.Name, s.Category, float64(s.PeakMemory))
		metrics.SetRunning(s.Name, s.Category, s.Running)
	}
}

// LoadConfig parses a TOML config file.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// WatchConfig re-applies the config file to p whenever it changes on
// disk. Close the returned watcher on shutdown.
func WatchConfig(path string, p *Profiler) (*ConfigWatcher, error) {
	return config.Watch(path, p.Apply)
}

// NewLogger builds a slog logger from a [log] config section. Install
// it with slog.SetDefault to route profiler warnings through it.
func NewLogger(c LogConfig) (*slog.Logger, io.Closer, error) {
	return logger.New(c)
}

// httpSource adapts the facade to the HTTP router.
type httpSource struct{ p *Profiler }

func (s httpSource) StartEvent(name, category, note string) bool {
	ev := s.p.Event(name, category)
	if ev == nil {
		return false
	}
	ev.Start(note)
	return true
}

func (s httpSource) StopEvents(name, category string) int {
	return s.p.Stop(name, category)
}

func (s httpSource) TakeSnapshot(name, category, note string) bool {
	ev := s.p.Event(name, category)
	if ev == nil {
		return false
	}
	ev.Snapshot(note)
	return true
}

func (s httpSource) Enable() { s.p.Enable() }

func (s httpSource) Disable() { s.p.Disable() }

func (s httpSource) Enabled() bool { return s.p.Enabled() }

func (s httpSource) Summaries() []report.Summary { return s.p.Summaries() }

// HTTPHandler returns the profiler's HTTP API as a handler mountable in
// any mux, gin engine or echo server.
func (p *Profiler) HTTPHandler(basePath string) http.Handler {
	return server.NewRouter(httpSource{p: p}, basePath).Handler()
}

// NewHTTPServer starts an HTTP server exposing the profiler API.
func NewHTTPServer(addr, basePath string, p *Profiler) (*http.Server, error) {
	return server.NewServer(addr, basePath, httpSource{p: p})
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
