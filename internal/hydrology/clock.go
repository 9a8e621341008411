package hydrology

import (
	"math"
	"time"

	"github.com/incawqmodels/persist/internal/params"
)

const secondsPerDay = 86400.0

// Clock holds the time-step configuration shared by every component of a
// catchment. It is fixed when the catchment is built.
type Clock struct {
	// ExternalTimeStep is the reporting step in seconds.
	ExternalTimeStep float64
	// InternalMultiplier is the number of internal sub-steps per external step.
	InternalMultiplier int
}

// NewClock derives the clock from the general section of a parameter set.
func NewClock(g params.General) Clock {
	m := g.InternalTimeStepMultiplier
	if m < 1 {
		m = 1
	}
	return Clock{ExternalTimeStep: g.TimeStep, InternalMultiplier: m}
}

// InternalTimeStep returns the length of one internal step in seconds.
func (c Clock) InternalTimeStep() float64 {
	return c.ExternalTimeStep / float64(c.InternalMultiplier)
}

// DaysPerStep returns the length of one internal step in days.
func (c Clock) DaysPerStep() float64 {
	return c.InternalTimeStep() / secondsPerDay
}

// SubStepDuration returns the internal step as a time.Duration.
func (c Clock) SubStepDuration() time.Duration {
	return time.Duration(c.InternalTimeStep() * float64(time.Second))
}

// Forcing is the driving data applied to one HRU for one internal step.
type Forcing struct {
	Time          time.Time
	Precipitation float64 // mm per internal step
	Temperature   float64 // °C
	// PET overrides the estimator when it is not NaN, in mm per internal step.
	PET         float64
	Abstraction float64 // m³/s taken from the reach
	Effluent    float64 // m³/s added to the reach
}

// NewForcing returns a forcing with no PET override.
func NewForcing(t time.Time, precipitation, temperature float64) Forcing {
	return Forcing{Time: t, Precipitation: precipitation, Temperature: temperature, PET: math.NaN()}
}

// HasPET reports whether the forcing carries its own PET value.
func (f Forcing) HasPET() bool {
	return !math.IsNaN(f.PET)
}
