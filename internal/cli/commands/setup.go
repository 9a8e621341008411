// Package commands implements the persist subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/incawqmodels/persist/internal/cli/config"
	"github.com/incawqmodels/persist/internal/cli/output"
	"github.com/incawqmodels/persist/internal/engine"
	"github.com/incawqmodels/persist/internal/metrics"
	writers "github.com/incawqmodels/persist/internal/output"
	"github.com/incawqmodels/persist/internal/params"
	"github.com/incawqmodels/persist/internal/pet"
	"github.com/incawqmodels/persist/internal/state"
	"github.com/incawqmodels/persist/internal/timeseries"
)

// CommandContext holds the shared dependencies of a command.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates the context for a command from the loaded
// configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the current configuration, or defaults when none was
// loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// openStore opens the state database, creating its directory.
func openStore(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return store, nil
}

// loadInputs reads the parameter set and the driving data.
func loadInputs(cfg *config.Config) (*params.ParameterSet, *timeseries.TimeSeries, error) {
	ps, err := params.Load(cfg.Parameters)
	if err != nil {
		return nil, nil, err
	}
	driving, err := timeseries.LoadCSV(cfg.DrivingData, timeseries.DefaultReadOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load driving data %s: %w", cfg.DrivingData, err)
	}
	return ps, driving, nil
}

// newEstimator builds the configured PET estimator.
func newEstimator(cfg *config.Config) (pet.Estimator, error) {
	return pet.New(pet.Options{
		Method:     cfg.PET.Method,
		Constant:   cfg.PET.Constant,
		ScriptPath: cfg.PET.Script,
		Workers:    cfg.Workers,
	})
}

// modelResources are the collaborators of one model, released by close.
type modelResources struct {
	model    *engine.Model
	store    *state.SQLiteStore
	registry *metrics.Registry
	closers  []func()
}

func (r *modelResources) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// buildModel wires a model from the configuration: inputs, estimator, state
// store, writers and metrics.
func buildModel(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*modelResources, error) {
	if err := cfg.ValidateInputs(); err != nil {
		return nil, err
	}
	ps, driving, err := loadInputs(cfg)
	if err != nil {
		return nil, err
	}
	estimator, err := newEstimator(cfg)
	if err != nil {
		return nil, err
	}

	res := &modelResources{}
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	res.store = store
	res.closers = append(res.closers, func() { _ = store.Close() })

	ws, err := newWriters(ctx, cfg, store, res)
	if err != nil {
		res.close()
		return nil, err
	}

	var recorder metrics.Recorder
	if cfg.MetricsFile != "" {
		res.registry = metrics.NewRegistry()
		recorder = res.registry
	}

	model, err := engine.New(engine.Config{
		Parameters:    ps,
		ParameterFile: cfg.Parameters,
		Driving:       driving,
		Estimator:     estimator,
		Workers:       cfg.Workers,
		Store:         store,
		Writers:       ws,
		Metrics:       recorder,
		Logger:        logger,
	})
	if err != nil {
		res.close()
		return nil, err
	}
	res.model = model
	return res, nil
}

// newWriters builds the configured output writers.
func newWriters(ctx context.Context, cfg *config.Config, store state.Store, res *modelResources) ([]writers.Writer, error) {
	var ws []writers.Writer
	for _, name := range cfg.Writers {
		switch name {
		case config.WriterCSV:
			ws = append(ws, &writers.CSVWriter{Dir: cfg.OutputDir})
		case config.WriterSQLite:
			ws = append(ws, &writers.StoreWriter{Store: store})
		case config.WriterPostgres:
			pool, err := writers.ConnectPostgres(ctx, cfg.Postgres.URL)
			if err != nil {
				return nil, err
			}
			res.closers = append(res.closers, pool.Close)
			ws = append(ws, writers.NewPostgresWriter(pool, cfg.Postgres.Table))
		default:
			return nil, fmt.Errorf("unknown writer %q", name)
		}
	}
	return ws, nil
}
