package report

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// New builds a sink from a format name and an output path. Formats are
// "text" (stdout when path is empty), "csv" and "html"; the file
// formats require a path.
func New(format, path string) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		if path == "" {
			return Text{W: os.Stdout}, nil
		}
		return TextFile{Path: path}, nil
	case "csv":
		if path == "" {
			return nil, errors.New("csv report requires an output path")
		}
		return CSV{Path: path}, nil
	case "html":
		if path == "" {
			return nil, errors.New("html report requires an output path")
		}
		return Chart{Path: path}, nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}
