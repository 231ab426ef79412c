package report

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Chart renders an HTML page with a bar chart of per-event duration and
// peak memory.
type Chart struct {
	Path  string
	Title string
}

func (c Chart) Write(rows []Summary) error {
	title := c.Title
	if title == "" {
		title = "Profiler report"
	}

	labels := make([]string, 0, len(rows))
	durations := make([]opts.BarData, 0, len(rows))
	memory := make([]opts.BarData, 0, len(rows))
	for _, r := range rows {
		labels = append(labels, r.Category+"/"+r.Name)
		durations = append(durations, opts.BarData{Value: r.DurationMS})
		memory = append(memory, opts.BarData{Value: r.MemoryMiB})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "duration in ms, peak memory in MiB",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "event"}),
		charts.WithDataZoomOpts(
			opts.DataZoom{Type: "inside"},
			opts.DataZoom{Type: "slider"},
		),
	)
	bar.SetXAxis(labels).
		AddSeries("duration (ms)", durations).
		AddSeries("peak memory (MiB)", memory)

	page := components.NewPage().SetPageTitle(title)
	page.AddCharts(bar)

	f, err := os.Create(c.Path)
	if err != nil {
		return fmt.Errorf("failed to create html report: %w", err)
	}
	if err := page.Render(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render html report: %w", err)
	}
	return f.Close()
}
