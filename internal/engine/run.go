package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/incawqmodels/persist/internal/hydrology"
	"github.com/incawqmodels/persist/internal/output"
	"github.com/incawqmodels/persist/internal/state"
	"github.com/incawqmodels/persist/internal/timeseries"
)

// RunOptions limits a run.
type RunOptions struct {
	// MaxSteps stops the run after this many external steps. Zero runs until
	// the driving data is exhausted.
	MaxSteps int
}

// Result summarises a run.
type Result struct {
	RunID  string
	Status state.RunStatus
	// Steps is the number of external steps solved by this run.
	Steps int
	// Exhausted is set when the run stopped because the driving data ran out.
	Exhausted bool
	// Outputs holds one row per HRU and one outlet row per external step.
	Outputs  *timeseries.TimeSeries
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Run advances the model one external step per driving-data timestamp.
// Each external step is solved as internalTimeStepMultiplier internal
// steps. Cancellation is honoured between external steps. Exhausting the
// driving data ends the run normally. Writers are called once, after the
// loop, unless a step failed.
func (m *Model) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	started := time.Now()
	res := &Result{
		RunID:   uuid.New().String(),
		Status:  state.RunStatusRunning,
		Outputs: m.newOutputs(),
	}

	// Store calls ignore cancellation so that a cancelled run is still
	// recorded.
	storeCtx := context.WithoutCancel(ctx)
	if m.store != nil {
		run, err := m.store.CreateRun(storeCtx, m.params.General.Name, m.parameterFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		res.RunID = run.ID
	}
	res.Outputs.Metadata["run_id"] = res.RunID

	m.logger.Info("starting run",
		slog.String("run_id", res.RunID),
		slog.Int("max_steps", opts.MaxSteps))

	runErr := m.loop(ctx, opts, res)

	switch {
	case runErr == nil:
		res.Status = state.RunStatusCompleted
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		res.Status = state.RunStatusCancelled
	default:
		res.Status = state.RunStatusFailed
	}
	res.Duration = time.Since(started)

	if res.Status != state.RunStatusFailed && len(m.writers) > 0 {
		// Outputs of a cancelled run are still written up to the last
		// completed step.
		if err := output.WriteAll(storeCtx, m.logger, m.writers, res.RunID, res.Outputs); err != nil {
			runErr = errors.Join(runErr, err)
			res.Status = state.RunStatusFailed
		}
	}

	if m.store != nil {
		errMsg := ""
		if runErr != nil {
			errMsg = runErr.Error()
		}
		if err := m.store.CompleteRun(storeCtx, res.RunID, res.Status, res.Steps, errMsg); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("failed to complete run: %w", err))
		}
	}
	m.recorder.ObserveRun(string(res.Status), res.Steps)

	if runErr != nil {
		m.logger.Info("run failed",
			slog.String("run_id", res.RunID),
			slog.String("status", string(res.Status)),
			slog.Int("steps", res.Steps),
			slog.String("error", runErr.Error()))
		return res, runErr
	}

	m.logger.Info("run completed",
		slog.String("run_id", res.RunID),
		slog.Int("steps", res.Steps),
		slog.Bool("exhausted", res.Exhausted),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (m *Model) newOutputs() *timeseries.TimeSeries {
	ts := timeseries.New(OutputColumns...)
	ts.Metadata["parameter_set"] = m.params.General.Name
	ts.Metadata["time_step"] = timeseries.FormatValue(m.clock.ExternalTimeStep)
	ts.Metadata["internal_steps"] = fmt.Sprint(m.clock.InternalMultiplier)
	return ts
}

func (m *Model) loop(ctx context.Context, opts RunOptions, res *Result) error {
	start := m.params.General.StartDate
	forcings := make([]hydrology.Forcing, m.catchment.Size())
	names := m.params.Subcatchment.Identifier.Name
	var previous time.Time

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if opts.MaxSteps > 0 && res.Steps >= opts.MaxSteps {
			return nil
		}

		group, ok := m.cursor.Next()
		if !ok {
			res.Exhausted = true
			return nil
		}
		if !start.IsZero() && group.Time.Before(start) {
			continue
		}
		if !previous.IsZero() {
			if gap := group.Time.Sub(previous).Seconds(); gap != m.clock.ExternalTimeStep {
				m.logger.Warn("driving data interval differs from time step",
					slog.Time("time", group.Time),
					slog.Float64("interval", gap),
					slog.Float64("time_step", m.clock.ExternalTimeStep))
			}
		}
		previous = group.Time

		stepStarted := time.Now()
		values, err := m.forcing.resolve(group)
		if err != nil {
			return err
		}

		acc := newAccumulator(m.catchment.Size())
		for k := 0; k < m.clock.InternalMultiplier; k++ {
			m.forcing.subStep(group.Time, k, values, forcings)
			stepRes, err := m.catchment.Step(ctx, forcings)
			if err != nil {
				return err
			}
			acc.add(stepRes)
		}
		acc.appendTo(res.Outputs, group.Time, names)

		if res.Steps == 0 {
			res.Start = group.Time
		}
		res.End = group.Time
		res.Steps++
		m.steps++
		m.recorder.ObserveStep(time.Since(stepStarted), acc.outlet)
	}
}
