package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// RunFlags holds flags for the run command
type RunFlags struct {
	ConfigPath     string
	Name           string
	Category       string
	TrackMemory    bool
	SampleInterval time.Duration
	Format         string
	Output         string
	Listen         string
	BasePath       string
	MetricsListen  string
}

// buildRoot creates the root command
func buildRoot() *cobra.Command {
	runFlags := &RunFlags{}
	root := createRootCommand()
	root.AddCommand(createRunCommand(runFlags))
	return root
}

func createRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profiler",
		Short: "Profile commands: wall time and peak memory",
		Long: `Profiler wraps a command, times the run and samples the child's
memory, then renders a report.

Examples:
  profiler run -- make build
  profiler run --name=build --format=html --output=build.html -- make build
  profiler run --listen=:8080 -- ./long-job`,
	}
}

// createRunCommand creates the run subcommand
func createRunCommand(flags *RunFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Profile a command",
		Long: `Run a command under the profiler. One event records the whole run
while a sampling event captures the child's RSS every interval, so the
report's peak memory is the true peak across the run.

The child's stdio is passed through and its exit status is propagated.

Examples:
  profiler run -- make build
  profiler run --name=build --sample-interval=50ms -- make build
  profiler run --format=csv --output=build.csv -- ./bench
  profiler run --listen=:8080 --base-path=/profiler -- ./long-job`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfile(flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	cmd.Flags().StringVar(&flags.Name, "name", "", "event name (defaults to the command's base name)")
	cmd.Flags().StringVar(&flags.Category, "category", "", "event category (defaults to the built-in category)")
	cmd.Flags().BoolVar(&flags.TrackMemory, "track-memory", true, "sample the child's RSS")
	cmd.Flags().DurationVar(&flags.SampleInterval, "sample-interval", 0, "memory sampling interval (default 200ms)")
	cmd.Flags().StringVar(&flags.Format, "format", "", "report format: text, csv or html (default text)")
	cmd.Flags().StringVar(&flags.Output, "output", "", "report file (stdout for text when empty)")
	cmd.Flags().StringVar(&flags.Listen, "listen", "", "serve live state over HTTP while the command runs (e.g. :8080)")
	cmd.Flags().StringVar(&flags.BasePath, "base-path", "", "base path for the live state API (default /profiler)")
	cmd.Flags().StringVar(&flags.MetricsListen, "metrics-listen", "", "serve Prometheus metrics while the command runs (e.g. :9090)")

	return cmd
}
