// Package project writes the files of a new persist project.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/incawqmodels/persist/internal/cli/config"
	"github.com/incawqmodels/persist/internal/engine"
	"github.com/incawqmodels/persist/internal/params"
	"github.com/incawqmodels/persist/internal/timeseries"
)

// ErrExists is returned when a project file is already present and Force is
// not set.
var ErrExists = errors.New("file already exists")

// Options controls Scaffold.
type Options struct {
	// HRUs is the number of subcatchments, chained upstream to downstream.
	HRUs int
	// Days of synthetic driving data, one row per day for every HRU.
	Days  int
	Force bool
}

// DefaultOptions is three HRUs with thirty days of driving data.
func DefaultOptions() Options {
	return Options{HRUs: 3, Days: 30}
}

// Scaffold writes persist.yaml, a generated parameter set and synthetic
// driving data into dir. It returns the written file names relative to dir.
func Scaffold(dir string, opts Options) ([]string, error) {
	if opts.HRUs < 1 {
		return nil, fmt.Errorf("hrus must be at least 1, got %d", opts.HRUs)
	}
	if opts.Days < 1 {
		return nil, fmt.Errorf("days must be at least 1, got %d", opts.Days)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	names := []string{config.DefaultConfigFile, config.DefaultParameters, config.DefaultDrivingData}
	if !opts.Force {
		for _, name := range names {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return nil, fmt.Errorf("%s: %w (use --force to overwrite)", name, ErrExists)
			}
		}
	}

	ps := Parameters(opts.HRUs)
	paramData, err := yaml.Marshal(ps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode parameters: %w", err)
	}

	cfgData, err := yaml.Marshal(projectConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	var driving bytes.Buffer
	if err := Driving(ps.General.StartDate, opts.Days).WriteCSV(&driving); err != nil {
		return nil, err
	}

	contents := [][]byte{cfgData, paramData, driving.Bytes()}
	for i, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), contents[i], 0600); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return names, nil
}

// projectConfig is the persisted part of the default configuration, with
// paths relative to the project root.
func projectConfig() *config.Config {
	cfg := config.Default()
	cfg.Parameters = config.DefaultParameters
	cfg.DrivingData = config.DefaultDrivingData
	cfg.OutputDir = config.DefaultOutputDir
	cfg.StatePath = config.DefaultStateFile
	return cfg
}

// Parameters returns a generated parameter set with n HRUs draining in a
// chain, three buckets and two land covers.
func Parameters(n int) *params.ParameterSet {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("HRU %d", i+1)
	}
	ps := params.Generate(params.Layout{
		Buckets: params.Identifier{
			Name:         []string{"Direct runoff", "Soil water", "Groundwater"},
			Abbreviation: []string{"DR", "SW", "GW"},
		},
		LandCovers: params.Identifier{
			Name:         []string{"Forest", "Grassland"},
			Abbreviation: []string{"F", "G"},
		},
		Subcatchments: params.Identifier{Name: names},
	})
	ps.General.Name = "example catchment"
	ps.General.Creator = "persist init"
	return ps
}

// Driving returns days of catchment-wide daily driving data from start:
// a seasonal temperature cycle and rain on two days in every five.
func Driving(start time.Time, days int) *timeseries.TimeSeries {
	ts := timeseries.New(engine.ColumnPrecipitation, engine.ColumnTemperature)
	for d := range days {
		t := start.AddDate(0, 0, d)
		temperature := 8 - 10*math.Cos(2*math.Pi*float64(t.YearDay())/365)
		precipitation := 0.0
		switch d % 5 {
		case 1:
			precipitation = 12
		case 2:
			precipitation = 4
		}
		_ = ts.Append(timeseries.Row{
			Time:     t,
			Location: timeseries.AllLocations,
			Values:   []float64{precipitation, math.Round(temperature*10) / 10},
		})
	}
	return ts
}
