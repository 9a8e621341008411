package output

import (
	"context"

	"github.com/incawqmodels/persist/internal/state"
	"github.com/incawqmodels/persist/internal/timeseries"
)

// StoreWriter saves outputs alongside the run record in the state store.
type StoreWriter struct {
	Store state.Store
}

func (w *StoreWriter) Name() string { return "sqlite" }

func (w *StoreWriter) Write(ctx context.Context, runID string, ts *timeseries.TimeSeries) error {
	return w.Store.SaveOutputs(ctx, runID, ts)
}
