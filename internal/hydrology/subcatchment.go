package hydrology

import (
	"fmt"
	"math"

	"github.com/incawqmodels/persist/internal/pet"
)

// Subcatchment is the terrestrial part of an HRU: a percent-weighted mixture
// of land covers.
type Subcatchment struct {
	Name         string
	Abbreviation string
	Area         float64 // km²
	Latitude     float64 // degrees at the outflow
	Longitude    float64

	LandCovers []*LandCoverType
	Chemistry  *ChemistryState
}

// SubcatchmentResult aggregates the land covers of one subcatchment for one
// internal step. Depths are area-weighted mm; Discharge is the terrestrial
// export in m³/s.
type SubcatchmentResult struct {
	Runoff          float64
	Discharge       float64
	SnowDepth       float64
	PotentialET     float64
	ActualET        float64
	WaterDepth      float64
	SoilTemperature float64
}

// Solve advances every land cover and weights their results by percent cover.
func (s *Subcatchment) Solve(f Forcing, est pet.Estimator, clock Clock) (SubcatchmentResult, error) {
	var res SubcatchmentResult
	site := pet.Inputs{
		Latitude:     s.Latitude,
		Longitude:    s.Longitude,
		Subcatchment: s.Name,
	}

	for _, lc := range s.LandCovers {
		lcr, err := lc.Solve(f, est, site, clock)
		if err != nil {
			return res, err
		}
		w := lc.PercentCover / 100
		res.Runoff += w * lcr.Runoff
		res.SnowDepth += w * lcr.SnowDepth
		res.PotentialET += w * lcr.PotentialET
		res.ActualET += w * lcr.ActualET
		res.WaterDepth += w * lcr.WaterDepth
		res.SoilTemperature += w * lcr.SoilTemperature
	}

	res.Discharge = DepthToDischarge(res.Runoff, s.Area, clock.InternalTimeStep())
	if math.IsNaN(res.Discharge) || math.IsInf(res.Discharge, 0) {
		return res, fmt.Errorf("non-finite terrestrial discharge %g", res.Discharge)
	}
	return res, nil
}

// DepthToDischarge converts a depth in mm over an area in km² released
// during dt seconds to m³/s.
func DepthToDischarge(mm, areaKm2, dt float64) float64 {
	return mm * areaKm2 * 1000 / dt
}
