package engine

import (
	"math"
	"time"

	"github.com/incawqmodels/persist/internal/hydrology"
	"github.com/incawqmodels/persist/internal/timeseries"
)

// OutputColumns are the value columns of the output series. Fluxes are
// totals over the external step, discharge and inflow are means, and the
// remaining states are taken at the end of the step.
var OutputColumns = []string{
	"runoff",           // mm
	"discharge",        // m³/s terrestrial export
	"actual_et",        // mm
	"potential_et",     // mm
	"snow_depth",       // mm
	"water_depth",      // mm
	"soil_temperature", // °C
	"reach_inflow",     // m³/s
	"flow",             // m³/s
	"velocity",         // m/s
	"depth",            // m
	"volume",           // m³
}

const (
	colRunoff = iota
	colDischarge
	colActualET
	colPotentialET
	colSnowDepth
	colWaterDepth
	colSoilTemperature
	colReachInflow
	colFlow
	colVelocity
	colDepth
	colVolume
)

// accumulator folds the internal steps of one external step into one
// output row per HRU plus an outlet row.
type accumulator struct {
	n      int
	rows   [][]float64
	outlet float64
}

func newAccumulator(hrus int) *accumulator {
	rows := make([][]float64, hrus)
	for i := range rows {
		rows[i] = make([]float64, len(OutputColumns))
	}
	return &accumulator{rows: rows}
}

func (a *accumulator) add(res hydrology.StepResult) {
	a.n++
	for i, row := range a.rows {
		s := res.Subcatchments[i]
		r := res.Reaches[i]

		row[colRunoff] += s.Runoff
		row[colDischarge] += s.Discharge
		row[colActualET] += s.ActualET
		row[colPotentialET] += s.PotentialET
		row[colReachInflow] += r.Inflow

		row[colSnowDepth] = s.SnowDepth
		row[colWaterDepth] = s.WaterDepth
		row[colSoilTemperature] = s.SoilTemperature
		row[colFlow] = r.Flow
		row[colVelocity] = r.Velocity
		row[colDepth] = r.Depth
		row[colVolume] = r.Volume
	}
	a.outlet = res.OutletDischarge
}

// appendTo adds the folded rows to ts.
func (a *accumulator) appendTo(ts *timeseries.TimeSeries, t time.Time, names []string) {
	n := float64(a.n)
	for i, row := range a.rows {
		row[colDischarge] /= n
		row[colReachInflow] /= n
		ts.Rows = append(ts.Rows, timeseries.Row{Time: t, Location: names[i], Values: row})
	}

	outlet := make([]float64, len(OutputColumns))
	for i := range outlet {
		outlet[i] = math.NaN()
	}
	outlet[colFlow] = a.outlet
	ts.Rows = append(ts.Rows, timeseries.Row{Time: t, Location: timeseries.Outlet, Values: outlet})
}
