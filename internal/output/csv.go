package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/incawqmodels/persist/internal/timeseries"
)

// CSVWriter writes one CSV file per run into Dir.
type CSVWriter struct {
	Dir string
}

func (w *CSVWriter) Name() string { return "csv" }

// Path returns the file written for runID.
func (w *CSVWriter) Path(runID string) string {
	return filepath.Join(w.Dir, runID+".csv")
}

func (w *CSVWriter) Write(_ context.Context, runID string, ts *timeseries.TimeSeries) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f, err := os.Create(w.Path(runID))
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := ts.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", f.Name(), err)
	}
	return f.Close()
}
