package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/incawqmodels/persist/internal/hydrology"
	"github.com/incawqmodels/persist/internal/params"
	"github.com/incawqmodels/persist/internal/timeseries"
)

// Driving data column names.
const (
	ColumnPrecipitation = "precipitation"
	ColumnTemperature   = "temperature"
	ColumnPET           = "pet"
	ColumnAbstraction   = "abstraction"
	ColumnEffluent      = "effluent"
)

// forcingColumns maps driving data columns to their index, -1 when absent.
type forcingColumns struct {
	precipitation int
	temperature   int
	pet           int
	abstraction   int
	effluent      int
}

// forcingMapper turns one timestamp group of driving data into per-HRU
// forcing for each internal step.
type forcingMapper struct {
	cols      forcingColumns
	locations map[string]int
	names     []string
	clock     hydrology.Clock
}

func newForcingMapper(driving *timeseries.TimeSeries, ps *params.ParameterSet, clock hydrology.Clock) (*forcingMapper, error) {
	m := &forcingMapper{
		cols: forcingColumns{
			precipitation: driving.Column(ColumnPrecipitation),
			temperature:   driving.Column(ColumnTemperature),
			pet:           driving.Column(ColumnPET),
			abstraction:   driving.Column(ColumnAbstraction),
			effluent:      driving.Column(ColumnEffluent),
		},
		locations: map[string]int{},
		names:     ps.Subcatchment.Identifier.Name,
		clock:     clock,
	}

	var errs []error
	for _, required := range []string{ColumnPrecipitation, ColumnTemperature} {
		if !driving.HasColumn(required) {
			errs = append(errs, params.Errorf("driving_data.columns", "missing required column %q", required))
		}
	}

	for i, name := range ps.Subcatchment.Identifier.Name {
		m.locations[name] = i
		if abbr := ps.Subcatchment.Identifier.AbbreviationAt(i); abbr != "" {
			if _, taken := m.locations[abbr]; !taken {
				m.locations[abbr] = i
			}
		}
	}

	for _, loc := range driving.Locations() {
		if isCatchmentWide(loc) {
			continue
		}
		if _, ok := m.locations[loc]; !ok {
			errs = append(errs, params.Errorf("driving_data.location", "unknown location %q", loc))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

func isCatchmentWide(location string) bool {
	return location == "" || location == timeseries.AllLocations
}

// hruValues are the external-step drivers of one HRU.
type hruValues struct {
	precipitation float64 // mm per external step
	temperature   float64
	pet           float64 // mm per external step, NaN when not supplied
	abstraction   float64
	effluent      float64
	seen          bool
}

func (m *forcingMapper) value(row timeseries.Row, col int) float64 {
	if col < 0 {
		return math.NaN()
	}
	return row.Value(col)
}

// merge overlays the non-missing values of row onto v.
func (m *forcingMapper) merge(v *hruValues, row timeseries.Row) {
	set := func(dst *float64, col int) {
		if x := m.value(row, col); !math.IsNaN(x) {
			*dst = x
		}
	}
	set(&v.precipitation, m.cols.precipitation)
	set(&v.temperature, m.cols.temperature)
	set(&v.pet, m.cols.pet)
	set(&v.abstraction, m.cols.abstraction)
	set(&v.effluent, m.cols.effluent)
	v.seen = true
}

func newHRUValues() hruValues {
	nan := math.NaN()
	return hruValues{precipitation: nan, temperature: nan, pet: nan, abstraction: 0, effluent: 0}
}

// resolve builds the external-step drivers of every HRU. Catchment-wide
// rows apply first and per-HRU rows override them.
func (m *forcingMapper) resolve(group timeseries.Group) ([]hruValues, error) {
	values := make([]hruValues, len(m.names))
	for i := range values {
		values[i] = newHRUValues()
	}

	for _, row := range group.Rows {
		if isCatchmentWide(row.Location) {
			for i := range values {
				m.merge(&values[i], row)
			}
		}
	}
	for _, row := range group.Rows {
		if !isCatchmentWide(row.Location) {
			m.merge(&values[m.locations[row.Location]], row)
		}
	}

	for i, v := range values {
		switch {
		case !v.seen:
			return nil, fmt.Errorf("%s: no driving data for %q", group.Time.Format(time.RFC3339), m.names[i])
		case math.IsNaN(v.precipitation):
			return nil, fmt.Errorf("%s: missing %s for %q", group.Time.Format(time.RFC3339), ColumnPrecipitation, m.names[i])
		case v.precipitation < 0:
			return nil, fmt.Errorf("%s: negative %s %g for %q", group.Time.Format(time.RFC3339), ColumnPrecipitation, v.precipitation, m.names[i])
		case math.IsNaN(v.temperature):
			return nil, fmt.Errorf("%s: missing %s for %q", group.Time.Format(time.RFC3339), ColumnTemperature, m.names[i])
		}
	}
	return values, nil
}

// subStep returns the forcing of every HRU for internal step k. Depths are
// split evenly across internal steps; temperature and the abstraction and
// effluent rates are held.
func (m *forcingMapper) subStep(t time.Time, k int, values []hruValues, out []hydrology.Forcing) {
	n := float64(m.clock.InternalMultiplier)
	at := t.Add(time.Duration(k) * m.clock.SubStepDuration())
	for i, v := range values {
		f := hydrology.NewForcing(at, v.precipitation/n, v.temperature)
		if !math.IsNaN(v.pet) {
			f.PET = v.pet / n
		}
		f.Abstraction = v.abstraction
		f.Effluent = v.effluent
		out[i] = f
	}
}
