package report

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
)

// Text renders an aligned table to W.
type Text struct {
	W io.Writer
}

func (t Text) Write(rows []Summary) error {
	tw := tabwriter.NewWriter(t.W, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "CATEGORY\tNAME\tRECORDS\tSNAPSHOTS\tRUNNING\tDURATION\tPEAK"); err != nil {
		return err
	}
	for _, r := range rows {
		running := "no"
		if r.Running {
			running = "yes"
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%.1f ms\t%.2f MiB\n",
			r.Category, r.Name, r.Records, r.Snapshots, running, r.DurationMS, r.MemoryMiB); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// TextFile renders the same table into a file at Path.
type TextFile struct {
	Path string
}

func (t TextFile) Write(rows []Summary) error {
	f, err := os.Create(t.Path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := (Text{W: f}).Write(rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
