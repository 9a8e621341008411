package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/incawqmodels/persist/internal/cli/config"
	"github.com/incawqmodels/persist/internal/cli/output"
	"github.com/incawqmodels/persist/internal/engine"
	"github.com/incawqmodels/persist/internal/hydrology"
	writers "github.com/incawqmodels/persist/internal/output"
	"github.com/incawqmodels/persist/internal/timeseries"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Watch      bool
	JSONOutput bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the catchment model over the driving data",
		Long: `Run the catchment model one driving-data timestamp at a time.

Each external time step is solved as internalTimeStepMultiplier internal
steps. The run stops when the driving data is exhausted or after --steps
external steps. Outputs go to the configured writers once the run ends.`,
		Example: `  # Run until the driving data is exhausted
  persist run

  # Run the first 30 steps with 4 workers
  persist run --steps 30 --workers 4

  # Re-run whenever the parameter file or driving data changes
  persist run --watch

  # Emit JSON lines for CI/CD integration
  persist run --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().Int("steps", 0, "Stop after this many external steps (0 runs to the end of the driving data)")
	cmd.Flags().Int("workers", 0, "HRUs solved concurrently (0 uses every CPU)")
	cmd.Flags().String("output-dir", "", "Directory for CSV outputs")
	cmd.Flags().StringSlice("writers", nil, "Output writers (csv, sqlite, postgres)")
	cmd.Flags().String("pet-method", "", "PET estimator (temperature|constant|script)")
	cmd.Flags().Float64("pet-constant", 0, "PET in mm per day for the constant estimator")
	cmd.Flags().String("pet-script", "", "Starlark script defining pet(...)")
	cmd.Flags().String("postgres-url", "", "Postgres connection URL for the postgres writer")
	cmd.Flags().String("postgres-table", "", "Postgres table for the postgres writer")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics to this file after each run")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Re-run when the parameter file or driving data changes")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "Output as JSON lines for progress tracking")

	_ = cmd.RegisterFlagCompletionFunc("pet-method", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"temperature", "constant", "script"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("writers", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.WriterCSV, config.WriterSQLite, config.WriterPostgres}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cc := NewCommandContext(cmd)
	if opts.Watch {
		return runWatch(cmd.Context(), cc, opts)
	}
	_, err := runOnce(cmd.Context(), cc, opts)
	return err
}

// runOnce builds a fresh model and runs it.
func runOnce(ctx context.Context, cc *CommandContext, opts *RunOptions) (*engine.Result, error) {
	cfg := cc.Cfg
	r := cc.Renderer

	res, err := buildModel(ctx, cfg, cc.Logger)
	if err != nil {
		return nil, err
	}
	defer res.close()

	if opts.JSONOutput {
		_ = r.JSONLine(output.RunEvent{
			Event:        "run_start",
			Timestamp:    now(),
			ParameterSet: filepath.Base(cfg.Parameters),
			HRUs:         res.model.Catchment().Size(),
		})
	}

	result, runErr := res.model.Run(ctx, engine.RunOptions{MaxSteps: cfg.MaxSteps})
	if res.registry != nil {
		if err := res.registry.WriteTextfile(cfg.MetricsFile); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	if result == nil {
		return nil, runErr
	}

	if opts.JSONOutput {
		emitRunEvents(r, result, runErr)
	} else {
		renderRunSummary(r, cfg, res.model, result, runErr)
	}
	return result, runErr
}

// emitRunEvents writes one step event per external step and a run_complete
// event.
func emitRunEvents(r *output.Renderer, result *engine.Result, runErr error) {
	for _, row := range result.Outputs.Rows {
		if row.Location != timeseries.Outlet {
			continue
		}
		flow := outletFlow(row)
		_ = r.JSONLine(output.RunEvent{
			Event:      "step",
			Timestamp:  now(),
			RunID:      result.RunID,
			Time:       row.Time.UTC().Format(time.RFC3339),
			OutletFlow: &flow,
		})
	}

	event := output.RunEvent{
		Event:     "run_complete",
		Timestamp: now(),
		RunID:     result.RunID,
		Status:    string(result.Status),
		Steps:     result.Steps,
		Exhausted: result.Exhausted,
		TotalMS:   result.Duration.Milliseconds(),
	}
	if runErr != nil {
		event.Error = runErr.Error()
	}
	_ = r.JSONLine(event)
}

func outletFlow(row timeseries.Row) float64 {
	return row.Value(outputIndex("flow"))
}

func outputIndex(name string) int {
	return slices.Index(engine.OutputColumns, name)
}

// renderRunSummary prints the run status, the final state of every HRU and
// where the outputs went.
func renderRunSummary(r *output.Renderer, cfg *config.Config, model *engine.Model, result *engine.Result, runErr error) {
	r.Header(1, "Run "+result.RunID)
	r.KeyValue("Status", string(result.Status))
	r.KeyValue("Steps", fmt.Sprintf("%d", result.Steps))
	if result.Steps > 0 {
		r.KeyValue("Period", result.Start.UTC().Format(time.DateTime)+" to "+result.End.UTC().Format(time.DateTime))
	}
	switch {
	case result.Exhausted:
		r.KeyValue("Stopped", "driving data exhausted")
	case cfg.MaxSteps > 0 && result.Steps >= cfg.MaxSteps:
		r.KeyValue("Stopped", fmt.Sprintf("after %d steps", cfg.MaxSteps))
	}
	r.KeyValue("Duration", result.Duration.Round(time.Millisecond).String())
	r.Println("")

	if result.Steps > 0 {
		r.Header(2, "Final state")
		r.Table(
			[]string{"HRU", "Flow (m³/s)", "Volume (m³)", "Snow (mm)", "Water (mm)", "Runoff (mm)"},
			finalState(result, model.Catchment()),
		)
		r.Println("")
	}

	if runErr == nil {
		r.Header(2, "Outputs")
		for _, name := range cfg.Writers {
			r.StatusLine(name, "success", writerTarget(cfg, name, result.RunID))
		}
		r.Println("")
		r.Success(fmt.Sprintf("Completed %d steps in %s", result.Steps, result.Duration.Round(time.Millisecond)))
		return
	}
	r.Error(runErr.Error())
}

// finalState returns the last output row of every HRU, in HRU order.
func finalState(result *engine.Result, catchment *hydrology.Catchment) [][]string {
	last := map[string]timeseries.Row{}
	for _, row := range result.Outputs.Rows {
		if row.Time.Equal(result.End) && row.Location != timeseries.Outlet {
			last[row.Location] = row
		}
	}

	var rows [][]string
	for _, sc := range catchment.Subcatchments {
		n := sc.Name
		row, ok := last[n]
		if !ok {
			continue
		}
		rows = append(rows, []string{
			n,
			formatNumber(row.Value(outputIndex("flow"))),
			formatNumber(row.Value(outputIndex("volume"))),
			formatNumber(row.Value(outputIndex("snow_depth"))),
			formatNumber(row.Value(outputIndex("water_depth"))),
			formatNumber(row.Value(outputIndex("runoff"))),
		})
	}
	return rows
}

func writerTarget(cfg *config.Config, name, runID string) string {
	switch name {
	case config.WriterCSV:
		return (&writers.CSVWriter{Dir: cfg.OutputDir}).Path(runID)
	case config.WriterSQLite:
		return cfg.StatePath
	case config.WriterPostgres:
		if cfg.Postgres.Table != "" {
			return cfg.Postgres.Table
		}
		return writers.DefaultTable
	}
	return ""
}

func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4g", v)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
