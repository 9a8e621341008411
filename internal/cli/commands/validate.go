package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/incawqmodels/persist/internal/cli/config"
	"github.com/incawqmodels/persist/internal/cli/output"
	"github.com/incawqmodels/persist/internal/engine"
	"github.com/incawqmodels/persist/internal/params"
	"github.com/incawqmodels/persist/internal/timeseries"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the parameter set and driving data",
		Long: `Check the parameter set and driving data without running the model.

Every problem is reported: array lengths, value ranges, the reach network
topology, and driving-data columns and locations.`,
		Example: `  # Validate the project in the current directory
  persist validate

  # Validate another parameter file
  persist validate --parameters other.yaml --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd)
		},
	}
}

func runValidate(cmd *cobra.Command) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer

	result := validateProject(cc.Cfg, cc)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(result); err != nil {
			return err
		}
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Validation"))
		r.Println("")
		r.Println(output.FormatKeyValue("Parameter file", result.ParameterFile))
		r.Println(output.FormatKeyValue("Driving data", result.DrivingData))
		r.Println(output.FormatKeyValue("Valid", fmt.Sprintf("%t", result.Valid)))
		if len(result.Errors) > 0 {
			r.Println("")
			r.Println(output.FormatHeader(2, "Errors"))
			for _, e := range result.Errors {
				r.Printf("- %s\n", e)
			}
		}
	default:
		if result.Valid {
			r.Success(fmt.Sprintf("%s is valid: %d HRUs, %d driving rows", result.ParameterSet, result.HRUs, result.DrivingRows))
		} else {
			for _, e := range result.Errors {
				r.Error(e)
			}
		}
	}

	if !result.Valid {
		return fmt.Errorf("validation failed with %d error(s)", len(result.Errors))
	}
	return nil
}

// validateProject loads the inputs and builds a model without running it.
func validateProject(cfg *config.Config, cc *CommandContext) output.ValidateOutput {
	result := output.ValidateOutput{
		ParameterFile: cfg.Parameters,
		DrivingData:   cfg.DrivingData,
	}
	fail := func(err error) output.ValidateOutput {
		result.Errors = append(result.Errors, splitErrors(err)...)
		return result
	}

	ps, err := params.Load(cfg.Parameters)
	if err != nil {
		return fail(err)
	}
	result.ParameterSet = ps.General.Name

	if _, err := os.Stat(cfg.DrivingData); err != nil {
		return fail(fmt.Errorf("driving data: %w", err))
	}
	driving, err := timeseries.LoadCSV(cfg.DrivingData, timeseries.DefaultReadOptions())
	if err != nil {
		return fail(err)
	}
	result.DrivingRows = driving.Len()

	estimator, err := newEstimator(cfg)
	if err != nil {
		return fail(err)
	}
	model, err := engine.New(engine.Config{
		Parameters:    ps,
		ParameterFile: cfg.Parameters,
		Driving:       driving,
		Estimator:     estimator,
		Logger:        cc.Logger,
	})
	if err != nil {
		return fail(err)
	}
	result.HRUs = model.Catchment().Size()
	result.Valid = true
	return result
}

// splitErrors flattens joined errors into one message each.
func splitErrors(err error) []string {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, splitErrors(e)...)
		}
		return msgs
	}
	return []string{err.Error()}
}
