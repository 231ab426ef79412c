package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/northrook/profiler"
	"github.com/northrook/profiler/internal/config"
	"github.com/northrook/profiler/internal/memsample"
	"github.com/northrook/profiler/internal/naming"
)

// exitError carries the child's exit status through cobra to main.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("command exited with status %d", e.code) }

func runProfile(flags *RunFlags, args []string) error {
	var cfg *profiler.Config
	if flags.ConfigPath != "" {
		loaded, err := profiler.LoadConfig(flags.ConfigPath)
		if err != nil {
			return err
		}
		cfg = loaded
		logger, closer, err := profiler.NewLogger(cfg.Log)
		if err != nil {
			return err
		}
		if closer != nil {
			defer func() { _ = closer.Close() }()
		}
		slog.SetDefault(logger)
	}

	name := flags.Name
	if name == "" {
		name = filepath.Base(args[0])
	}
	// Names reaching the registry must be valid; the registry treats
	// violations as programming errors and panics.
	if !naming.ValidName(name) {
		return fmt.Errorf("invalid event name %q", name)
	}
	interval := flags.SampleInterval
	if interval <= 0 && cfg != nil {
		interval = cfg.Sampling.Interval
	}
	if interval <= 0 {
		interval = config.DefaultSampleInterval
	}
	format := flags.Format
	if format == "" && cfg != nil {
		format = cfg.Report.Format
	}
	if format == "" {
		format = "text"
	}
	output := flags.Output
	if output == "" && cfg != nil {
		output = cfg.Report.Output
	}
	listen := flags.Listen
	if listen == "" && cfg != nil {
		listen = cfg.Server.Listen
	}
	basePath := flags.BasePath
	if basePath == "" && cfg != nil {
		basePath = cfg.Server.BasePath
	}
	if basePath == "" {
		basePath = "/profiler"
	}
	metricsListen := flags.MetricsListen
	if metricsListen == "" && cfg != nil && cfg.Metrics.Enabled {
		metricsListen = cfg.Metrics.Listen
	}

	child := exec.Command(args[0], args[1:]...)
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr
	if err := child.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	var opts []profiler.Option
	tracking := false
	if flags.TrackMemory {
		sampler, err := memsample.ForPID(int32(child.Process.Pid))
		if err != nil {
			slog.Warn("child memory unavailable, continuing without tracking", "error", err)
		} else {
			opts = append(opts, profiler.WithMemoryTracking(), profiler.WithMemorySampler(sampler))
			tracking = true
		}
	}
	p := profiler.New(opts...)

	if metricsListen != "" {
		if err := profiler.RegisterMetricsDefault(); err != nil {
			slog.Warn("metrics registration failed", "error", err)
		} else {
			go func() {
				if err := profiler.ServeMetrics(metricsListen); err != nil {
					slog.Warn("metrics server stopped", "error", err)
				}
			}()
		}
	}
	if listen != "" {
		srv, err := profiler.NewHTTPServer(listen, basePath, p)
		if err != nil {
			return fmt.Errorf("failed to start state server: %w", err)
		}
		defer func() { _ = srv.Close() }()
	}

	run := p.Start(name, flags.Category)
	sampleName := name + ":samples"

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- child.Wait() }()

	// A nil channel never fires, so the sampling case stays dormant when
	// memory tracking is off.
	var tickCh <-chan time.Time
	if tracking {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tickCh = ticker.C
	}

	var waitErr error
wait:
	for {
		select {
		case sig := <-sigCh:
			_ = child.Process.Signal(sig)
		case <-tickCh:
			p.Start(sampleName, flags.Category).Stop("")
		case waitErr = <-done:
			break wait
		}
	}

	run.Stop("")
	p.Close()

	if err := p.Report(format, output); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	if waitErr != nil {
		var exit *exec.ExitError
		if errors.As(waitErr, &exit) {
			return &exitError{code: exit.ExitCode()}
		}
		return waitErr
	}
	return nil
}
