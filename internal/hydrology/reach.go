package hydrology

import "math"

// NoOutflow marks a reach without a downstream reach (an outlet).
const NoOutflow = -1

// Manning holds the rating-curve coefficients of a reach.
type Manning struct {
	A, B float64 // velocity = A·Q^B
	C, F float64 // depth = C·Q^F
	N    float64 // roughness
}

// Reach is the channel part of an HRU. Topology is held as indices into the
// catchment's reach arena.
type Reach struct {
	Name         string
	Abbreviation string

	Length        float64 // m
	WidthAtBottom float64 // m
	Slope         float64
	Manning       Manning

	Flow     float64 // m³/s, never negative
	Velocity float64 // m/s
	Depth    float64 // m
	Volume   float64 // m³

	HasAbstraction bool
	HasEffluent    bool

	OutflowTo   int
	InflowsFrom []int

	Chemistry *ChemistryState
}

// ReachResult reports the state of a reach after one internal step.
type ReachResult struct {
	Inflow          float64
	Flow            float64
	Velocity        float64
	Depth           float64
	Volume          float64
	ManningVelocity float64
	// Clamped is set when abstraction exceeded the available inflow.
	Clamped bool
}

// IsOutlet reports whether the reach drains out of the catchment.
func (r *Reach) IsOutlet() bool {
	return r.OutflowTo == NoOutflow
}

// Solve routes the inflow for one internal step of dt seconds. terrestrial
// is the subcatchment export and upstream the summed flow of the inflowing
// reaches, both in m³/s.
func (r *Reach) Solve(terrestrial, upstream float64, f Forcing, dt float64) ReachResult {
	var res ReachResult

	inflow := terrestrial + upstream
	if r.HasEffluent {
		inflow += f.Effluent
	}
	if r.HasAbstraction {
		inflow -= f.Abstraction
	}
	if inflow < 0 {
		inflow = 0
		res.Clamped = true
	}
	res.Inflow = inflow

	// Residence time follows the velocity at the larger of the stored and
	// incoming flow so an empty reach can start to fill.
	ref := math.Max(r.Flow, inflow)
	switch {
	case ref <= 0:
		r.Flow = 0
	default:
		v := r.Manning.A * math.Pow(ref, r.Manning.B)
		if v <= 0 {
			r.Flow = inflow
			break
		}
		residence := r.Length / v
		r.Flow = inflow + (r.Flow-inflow)*math.Exp(-dt/residence)
	}
	if r.Flow < 0 {
		r.Flow = 0
	}

	r.Velocity, r.Depth, r.Volume = 0, 0, 0
	if r.Flow > 0 {
		r.Velocity = r.Manning.A * math.Pow(r.Flow, r.Manning.B)
		r.Depth = r.Manning.C * math.Pow(r.Flow, r.Manning.F)
		if r.Velocity > 0 {
			r.Volume = r.Flow * r.Length / r.Velocity
		}
	}

	res.Flow = r.Flow
	res.Velocity = r.Velocity
	res.Depth = r.Depth
	res.Volume = r.Volume
	res.ManningVelocity = r.ManningVelocity()
	return res
}

// ManningVelocity returns R^(2/3)·√S/n for the current depth on a
// rectangular section of the reach's bottom width.
func (r *Reach) ManningVelocity() float64 {
	if r.Depth <= 0 || r.Manning.N <= 0 || r.Slope <= 0 {
		return 0
	}
	area := r.WidthAtBottom * r.Depth
	perimeter := r.WidthAtBottom + 2*r.Depth
	radius := area / perimeter
	return math.Pow(radius, 2.0/3.0) * math.Sqrt(r.Slope) / r.Manning.N
}
