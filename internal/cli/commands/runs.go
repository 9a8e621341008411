package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/incawqmodels/persist/internal/cli/output"
	"github.com/incawqmodels/persist/internal/state"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the runs recorded in the state database, newest first.

Use "persist runs export <run-id>" to write the outputs of a run as CSV.`,
		Example: `  # Show the last 20 runs
  persist runs

  # Show the last 5 runs as JSON
  persist runs --limit 5 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.AddCommand(newRunsExportCommand())

	return cmd
}

func runRuns(cmd *cobra.Command, limit int) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	store, err := openStore(cc.Cfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	infos := make([]output.RunInfo, 0, len(runs))
	for _, run := range runs {
		infos = append(infos, runInfo(run))
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(output.RunsOutput{Runs: infos})
	}

	if len(infos) == 0 {
		r.Muted("No runs recorded in " + cc.Cfg.StatePath)
		return nil
	}

	r.Header(1, "Runs")
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		duration := "-"
		if info.DurationMS != nil {
			duration = (time.Duration(*info.DurationMS) * time.Millisecond).String()
		}
		rows = append(rows, []string{
			shortID(info.ID),
			info.Name,
			info.Status,
			fmt.Sprintf("%d", info.Steps),
			info.StartedAt,
			duration,
		})
	}
	r.Table([]string{"ID", "Name", "Status", "Steps", "Started", "Duration"}, rows)
	return nil
}

func runInfo(run *state.Run) output.RunInfo {
	info := output.RunInfo{
		ID:            run.ID,
		Name:          run.Name,
		ParameterFile: run.ParameterFile,
		Status:        string(run.Status),
		Steps:         run.Steps,
		StartedAt:     run.StartedAt.UTC().Format(time.DateTime),
		Error:         run.Error,
	}
	if run.CompletedAt != nil {
		info.CompletedAt = run.CompletedAt.UTC().Format(time.DateTime)
		ms := run.CompletedAt.Sub(run.StartedAt).Milliseconds()
		info.DurationMS = &ms
	}
	return info
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newRunsExportCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write the outputs of a recorded run as CSV",
		Example: `  # Print a run's outputs
  persist runs export 0b7c1f2e-...

  # Write them to a file
  persist runs export 0b7c1f2e-... --file outputs.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			store, err := openStore(cc.Cfg, cc.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ts, err := store.LoadOutputs(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if file == "" {
				return ts.WriteCSV(cmd.OutOrStdout())
			}
			f, err := os.Create(file) //nolint:gosec // path comes from the user
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", file, err)
			}
			if err := ts.WriteCSV(f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			cc.Renderer.Success(fmt.Sprintf("Wrote %d rows to %s", ts.Len(), file))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Write to this file instead of stdout")
	return cmd
}
