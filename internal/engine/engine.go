// Package engine drives a catchment through its driving data. It owns the
// time-step loop, the run record and the output series.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/incawqmodels/persist/internal/hydrology"
	"github.com/incawqmodels/persist/internal/metrics"
	"github.com/incawqmodels/persist/internal/output"
	"github.com/incawqmodels/persist/internal/params"
	"github.com/incawqmodels/persist/internal/pet"
	"github.com/incawqmodels/persist/internal/state"
	"github.com/incawqmodels/persist/internal/timeseries"
)

// Model owns one catchment and one driving time series.
type Model struct {
	logger *slog.Logger

	params        *params.ParameterSet
	parameterFile string
	catchment     *hydrology.Catchment
	clock         hydrology.Clock

	driving *timeseries.TimeSeries
	cursor  *timeseries.Cursor
	forcing *forcingMapper

	store    state.Store
	writers  []output.Writer
	recorder metrics.Recorder

	steps int
}

// Config holds model configuration.
type Config struct {
	// Parameters is the validated or unvalidated parameter set.
	Parameters *params.ParameterSet
	// ParameterFile is recorded with each run.
	ParameterFile string
	// Driving is the driving data, one timestamp group per external step.
	Driving *timeseries.TimeSeries

	// Estimator computes PET when the driving data has no pet value.
	Estimator pet.Estimator
	// Workers bounds the HRUs solved concurrently. Zero uses every CPU.
	Workers int

	// Store records run lifecycle (optional).
	Store state.Store
	// Writers receive the outputs after a successful run.
	Writers []output.Writer
	// Metrics receives step and run observations (optional).
	Metrics metrics.Recorder
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New builds the catchment and checks the driving data against it. All
// configuration errors are reported together, before any step runs.
func New(cfg Config) (*Model, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Parameters == nil {
		return nil, fmt.Errorf("engine: parameter set is required")
	}
	if cfg.Driving == nil {
		return nil, fmt.Errorf("engine: driving data is required")
	}

	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.Nop{}
	}

	catchment, err := hydrology.Build(cfg.Parameters,
		hydrology.WithLogger(logger),
		hydrology.WithEstimator(cfg.Estimator),
		hydrology.WithWorkers(cfg.Workers))
	if err != nil {
		return nil, err
	}

	forcing, err := newForcingMapper(cfg.Driving, cfg.Parameters, catchment.Clock())
	if err != nil {
		return nil, err
	}

	cfg.Driving.Sort()

	m := &Model{
		logger:        logger,
		params:        cfg.Parameters,
		parameterFile: cfg.ParameterFile,
		catchment:     catchment,
		clock:         catchment.Clock(),
		driving:       cfg.Driving,
		cursor:        cfg.Driving.Cursor(),
		forcing:       forcing,
		store:         cfg.Store,
		writers:       cfg.Writers,
		recorder:      recorder,
	}

	logger.Debug("model initialized",
		slog.String("parameter_set", cfg.Parameters.General.Name),
		slog.Int("hrus", catchment.Size()),
		slog.Float64("time_step", m.clock.ExternalTimeStep),
		slog.Int("internal_steps", m.clock.InternalMultiplier),
		slog.Int("driving_rows", cfg.Driving.Len()))
	return m, nil
}

// Catchment returns the simulated catchment.
func (m *Model) Catchment() *hydrology.Catchment { return m.catchment }

// Clock returns the time-step configuration.
func (m *Model) Clock() hydrology.Clock { return m.clock }

// Steps returns the number of external steps solved so far across runs.
func (m *Model) Steps() int { return m.steps }
