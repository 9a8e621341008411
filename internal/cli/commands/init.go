package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/incawqmodels/persist/internal/cli/output"
	"github.com/incawqmodels/persist/internal/cli/project"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	opts := project.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new persist project",
		Long: `Initialize a new persist project with a configuration file, a generated
parameter set and synthetic driving data.

This creates:
  - persist.yaml configuration file
  - parameters.yaml with --hrus subcatchments draining in a chain
  - driving.csv with --days of daily precipitation and temperature`,
		Example: `  # Initialize in current directory
  persist init

  # Initialize a five-HRU project in a new directory
  persist init my-catchment --hrus 5 --days 365

  # Force overwrite existing files
  persist init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

			opts.Force = force
			return runInit(r, dir, opts)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing project files")
	cmd.Flags().IntVar(&opts.HRUs, "hrus", opts.HRUs, "Number of subcatchments")
	cmd.Flags().IntVar(&opts.Days, "days", opts.Days, "Days of driving data")

	return cmd
}

func runInit(r *output.Renderer, dir string, opts project.Options) error {
	files, err := project.Scaffold(dir, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("persist project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  persist validate   Check the parameter set and driving data")
	r.Println("  persist network    Show the reach network")
	r.Println("  persist run        Run the model")
	r.Println("  persist runs       List recorded runs")

	return nil
}
