// Package config loads profiler settings from a TOML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/northrook/profiler/internal/logger"
)

// Default sampling cadence for the CLI's child RSS polling.
const DefaultSampleInterval = 200 * time.Millisecond

// Config represents the top-level TOML structure:
//
//	[profiler]
//	disabled = false
//	category = "import"
//	track_memory = true
//
//	[sampling]
//	source = "rss"       # or "heap"
//	interval = "250ms"
//
//	[log]
//	level = "info"
//	file = "/var/log/profiler.log"
//
//	[metrics]
//	enabled = true
//	listen = ":9090"
//
//	[server]
//	listen = ":8080"
//	base_path = "/profiler"
//
//	[report]
//	format = "text"      # text, csv or html
//	output = ""
type Config struct {
	Profiler ProfilerConfig `toml:"profiler" mapstructure:"profiler"`
	Sampling SamplingConfig `toml:"sampling" mapstructure:"sampling"`
	Log      logger.Config  `toml:"log" mapstructure:"log"`
	Metrics  MetricsConfig  `toml:"metrics" mapstructure:"metrics"`
	Server   ServerConfig   `toml:"server" mapstructure:"server"`
	Report   ReportConfig   `toml:"report" mapstructure:"report"`
}

type ProfilerConfig struct {
	Disabled    bool   `toml:"disabled" mapstructure:"disabled"`
	Category    string `toml:"category" mapstructure:"category"`
	TrackMemory bool   `toml:"track_memory" mapstructure:"track_memory"`
}

type SamplingConfig struct {
	// Source selects the memory reading: "rss" (process resident set,
	// the default) or "heap" (Go heap in use).
	Source   string        `toml:"source" mapstructure:"source"`
	Interval time.Duration `toml:"interval" mapstructure:"interval"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
}

type ReportConfig struct {
	Format string `toml:"format" mapstructure:"format"`
	Output string `toml:"output" mapstructure:"output"`
}

// Load parses the TOML file at path and applies defaults and
// validation.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Sampling.Interval <= 0 {
		c.Sampling.Interval = DefaultSampleInterval
	}
	if c.Sampling.Source == "" {
		c.Sampling.Source = "rss"
	}
	if c.Report.Format == "" {
		c.Report.Format = "text"
	}
	if c.Metrics.Enabled && c.Metrics.Listen == "" {
		c.Metrics.Listen = ":9090"
	}
	if c.Server.Listen != "" && c.Server.BasePath == "" {
		c.Server.BasePath = "/profiler"
	}
}

// Validate rejects values that cannot be applied.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Sampling.Source) {
	case "", "rss", "heap":
	default:
		return fmt.Errorf("unknown sampling source %q", c.Sampling.Source)
	}
	switch strings.ToLower(c.Report.Format) {
	case "", "text", "csv", "html":
	default:
		return fmt.Errorf("unknown report format %q", c.Report.Format)
	}
	if c.Report.Format != "" && c.Report.Format != "text" && c.Report.Output == "" {
		return fmt.Errorf("report format %q requires report.output", c.Report.Format)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
