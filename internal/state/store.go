// Package state records simulation runs and their outputs in SQLite.
package state

import (
	"context"
	"time"

	"github.com/incawqmodels/persist/internal/timeseries"
)

// RunStatus represents the status of a simulation run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is one execution of a model over its driving data.
type Run struct {
	ID            string
	Name          string
	ParameterFile string
	Status        RunStatus
	Steps         int
	StartedAt     time.Time
	CompletedAt   *time.Time
	Error         string
}

// Store persists run lifecycle and outputs.
type Store interface {
	CreateRun(ctx context.Context, name, parameterFile string) (*Run, error)
	CompleteRun(ctx context.Context, id string, status RunStatus, steps int, errMsg string) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	SaveOutputs(ctx context.Context, runID string, ts *timeseries.TimeSeries) error
	LoadOutputs(ctx context.Context, runID string) (*timeseries.TimeSeries, error)

	Close() error
}
