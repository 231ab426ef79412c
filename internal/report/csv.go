package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

var csvHeader = []string{
	"category", "name", "records", "snapshots", "running",
	"duration_ms", "elapsed_ms", "peak_memory_bytes",
}

// CSV writes one row per event to a file at Path, overwriting any
// previous report.
type CSV struct {
	Path string
}

func (c CSV) Write(rows []Summary) error {
	f, err := os.Create(c.Path)
	if err != nil {
		return fmt.Errorf("failed to create csv report: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Category,
			r.Name,
			strconv.Itoa(r.Records),
			strconv.Itoa(r.Snapshots),
			strconv.FormatBool(r.Running),
			strconv.FormatFloat(r.DurationMS, 'f', 3, 64),
			strconv.FormatFloat(r.ElapsedMS, 'f', 3, 64),
			strconv.FormatUint(r.PeakMemory, 10),
		}
		if err := w.Write(record); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
