// Package output hands a finished run's output series to its destinations.
package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/incawqmodels/persist/internal/timeseries"
)

// Writer persists the outputs of one run.
type Writer interface {
	Name() string
	Write(ctx context.Context, runID string, ts *timeseries.TimeSeries) error
}

// WriteAll calls every writer and joins their failures. A failing writer
// does not stop the others.
func WriteAll(ctx context.Context, logger *slog.Logger, writers []Writer, runID string, ts *timeseries.TimeSeries) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var errs []error
	for _, w := range writers {
		if err := w.Write(ctx, runID, ts); err != nil {
			logger.Error("output writer failed", slog.String("writer", w.Name()), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s writer: %w", w.Name(), err))
			continue
		}
		logger.Debug("outputs written", slog.String("writer", w.Name()), slog.Int("rows", ts.Len()))
	}
	return errors.Join(errs...)
}
