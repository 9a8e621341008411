// Package pet estimates potential evapotranspiration for a land cover.
//
// Estimates are returned in mm per internal time step. A negative, NaN or
// infinite estimate is never passed on to a bucket; callers clamp it to zero.
package pet

import (
	"fmt"
	"time"
)

// DefaultConstant is the PET used when no other method is configured, in mm/day.
const DefaultConstant = 1.1

// Inputs are the drivers available to an estimator for one land cover in
// one subcatchment for one internal time step.
type Inputs struct {
	Time        time.Time
	Temperature float64 // air temperature, °C
	Latitude    float64 // degrees at the subcatchment outflow
	Longitude   float64
	DaysPerStep float64 // length of the internal time step in days

	// Land-cover evapotranspiration model terms.
	TemperatureOffset float64
	ScalingFactor     float64

	Subcatchment string
	LandCover    string
}

// Estimator computes PET from step inputs. Implementations must be
// deterministic and safe for concurrent use.
type Estimator interface {
	Estimate(in Inputs) (float64, error)
}

// Constant returns the same daily rate every step.
type Constant struct {
	PerDay float64
}

func (c Constant) Estimate(in Inputs) (float64, error) {
	return c.PerDay * in.DaysPerStep, nil
}

// Method names accepted by New.
const (
	MethodConstant    = "constant"
	MethodTemperature = "temperature"
	MethodScript      = "script"
)

// Options configures New.
type Options struct {
	Method     string
	Constant   float64
	ScriptPath string
	Workers    int
}

// New builds the estimator selected by opts.Method. An empty method selects
// the temperature-index estimator.
func New(opts Options) (Estimator, error) {
	switch opts.Method {
	case "", MethodTemperature:
		return TemperatureIndex{}, nil
	case MethodConstant:
		perDay := opts.Constant
		if perDay == 0 {
			perDay = DefaultConstant
		}
		if perDay < 0 {
			return nil, fmt.Errorf("constant PET must not be negative, got %g", perDay)
		}
		return Constant{PerDay: perDay}, nil
	case MethodScript:
		if opts.ScriptPath == "" {
			return nil, fmt.Errorf("pet method %q requires a script path", MethodScript)
		}
		return LoadScript(opts.ScriptPath, opts.Workers)
	default:
		return nil, fmt.Errorf("unknown pet method %q (expected %s, %s or %s)",
			opts.Method, MethodTemperature, MethodConstant, MethodScript)
	}
}
