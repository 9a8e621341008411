package hydrology

import (
	"fmt"

	"github.com/incawqmodels/persist/internal/pet"
)

// Snowpack is the degree-day snow store of a land cover.
type Snowpack struct {
	Depth           float64 // mm water equivalent
	FallTemperature float64 // °C, snow accumulates at or below
	MeltTemperature float64 // °C, snow melts above
	FallMultiplier  float64
	// MeltRate is in mm per degree per internal step.
	MeltRate float64
}

// LandCoverType is one land cover within a subcatchment: an ordered set of
// buckets, the routing matrix between them and a snowpack.
type LandCoverType struct {
	Name         string
	Abbreviation string
	// PercentCover is the share of the subcatchment area, 0-100.
	PercentCover float64

	Buckets []*Bucket
	// FlowMatrix[from][to] is the fraction of the release of bucket "from"
	// routed into bucket "to". Diagonal entries are ignored.
	FlowMatrix [][]float64

	Snow               Snowpack
	RainfallMultiplier float64

	TemperatureOffset float64
	ScalingFactor     float64
	SoilTemperature   SoilTemperatureModel

	Chemistry *ChemistryState
}

// LandCoverResult summarises one land-cover solve in mm per internal step.
type LandCoverResult struct {
	Rain            float64
	Melt            float64
	SnowDepth       float64
	PotentialET     float64
	ActualET        float64
	WaterDepth      float64
	Runoff          float64
	SoilTemperature float64
}

// UpdateSnowpack accumulates snow when the temperature is at or below the
// snowfall threshold, then melts it when the temperature is above the
// snowmelt threshold. The two checks are independent, so both can apply
// within a mixed-phase band. Negative precipitation adds no snow. Returns
// the melt released this step.
func (lc *LandCoverType) UpdateSnowpack(precipitation, temperature float64) float64 {
	s := &lc.Snow
	if temperature <= s.FallTemperature && precipitation > 0 {
		s.Depth += s.FallMultiplier * precipitation
	}
	s.Depth = max(0, s.Depth)
	var melt float64
	if temperature > s.MeltTemperature {
		melt = min(s.MeltRate*(temperature-s.MeltTemperature), s.Depth)
		s.Depth -= melt
	}
	return melt
}

// Route distributes bucket releases through the flow matrix. All transfers
// are computed from the releases before any bucket is updated. The unrouted
// part of each release, plus anything a receiving bucket cannot hold,
// leaves the land cover and is returned as export.
func (lc *LandCoverType) Route(releases []float64) (export float64) {
	n := len(lc.Buckets)
	inflow := make([]float64, n)

	for from, release := range releases {
		if release <= 0 {
			continue
		}
		routed := 0.0
		for to := 0; to < n; to++ {
			if to == from {
				continue
			}
			amount := release * lc.FlowMatrix[from][to]
			inflow[to] += amount
			routed += amount
		}
		export += release - routed
	}

	for i, b := range lc.Buckets {
		export += b.AddWater(inflow[i])
	}
	return export
}

// TotalWater returns the water held in the buckets, excluding snow.
func (lc *LandCoverType) TotalWater() float64 {
	total := 0.0
	for _, b := range lc.Buckets {
		total += b.WaterDepth
	}
	return total
}

// Solve advances the land cover by one internal step.
func (lc *LandCoverType) Solve(f Forcing, est pet.Estimator, site pet.Inputs, clock Clock) (LandCoverResult, error) {
	var res LandCoverResult

	melt := lc.UpdateSnowpack(f.Precipitation, f.Temperature)
	if f.Temperature > lc.Snow.FallTemperature {
		res.Rain = f.Precipitation * lc.RainfallMultiplier
	}
	res.Melt = melt
	res.SnowDepth = lc.Snow.Depth

	// Rain and melt fill the surficial buckets in order; what none of them
	// can hold runs off.
	input := res.Rain + melt
	for _, b := range lc.Buckets {
		if b.Surficial && input > 0 {
			input = b.AddWater(input)
		}
	}
	res.Runoff += input

	potential := f.PET
	if !f.HasPET() {
		in := site
		in.Time = f.Time
		in.Temperature = f.Temperature
		in.DaysPerStep = clock.DaysPerStep()
		in.LandCover = lc.Name
		in.TemperatureOffset = lc.TemperatureOffset
		in.ScalingFactor = lc.ScalingFactor

		var err error
		potential, err = est.Estimate(in)
		if err != nil {
			return res, fmt.Errorf("land cover %s: %w", lc.Name, err)
		}
	}

	releases := make([]float64, len(lc.Buckets))
	for i, b := range lc.Buckets {
		b.CalculatePotentialEvapotranspiration(potential)
		res.ActualET += b.CalculateActualEvapotranspiration()
		releases[i] = b.Drain()
	}
	res.PotentialET = lc.Buckets[0].PotentialET
	res.Runoff += lc.Route(releases)

	for _, b := range lc.Buckets {
		b.SoilTemperature = lc.SoilTemperature.Update(b.SoilTemperature, f.Temperature,
			b.SoilTemperatureEffectiveDepth, lc.Snow.Depth, clock.InternalTimeStep())
		res.WaterDepth += b.WaterDepth
	}
	res.SoilTemperature = lc.Buckets[0].SoilTemperature

	return res, nil
}
