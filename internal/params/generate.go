package params

import "time"

// Layout names the entities of a new parameter set.
type Layout struct {
	Buckets       Identifier
	LandCovers    Identifier
	Subcatchments Identifier
}

// Generate builds a parameter set for layout filled with default values.
// Land cover is split evenly in every subcatchment, the first bucket is the
// only surficial one, and the reaches form a single chain in index order
// with the last reach as the outlet.
func Generate(layout Layout) *ParameterSet {
	nB := len(layout.Buckets.Name)
	nLC := len(layout.LandCovers.Name)
	nSC := len(layout.Subcatchments.Name)

	ps := &ParameterSet{
		General: General{
			Name:                       "new parameter set",
			SchemaVersion:              SchemaVersion,
			TimeStep:                   86400,
			InternalTimeStepMultiplier: 1,
			StartDate:                  time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Bucket: Buckets{Identifier: layout.Buckets},
		LandCover: LandCover{
			Identifier: layout.LandCovers,
			General: LandCoverGeneral{
				SoilTemperatureModel: SoilTemperatureModel{
					HeatCapacity:         fill(nLC, 1.0e6),
					ThermalConductivity:  fill(nLC, 0.7),
					IceHeatCapacity:      fill(nLC, 9.0e6),
					SnowDampingParameter: fill(nLC, -3.3),
				},
				EvapotranspirationModel: EvapotranspirationModel{
					TemperatureOffset: fill(nLC, 0.0),
					ScalingFactor:     fill(nLC, 80.0),
				},
			},
			Precipitation: LandCoverPrecipitation{
				RainfallMultiplier:  fill(nLC, 1.0),
				SnowfallMultiplier:  fill(nLC, 1.0),
				SnowfallTemperature: fill(nLC, 0.0),
				SnowmeltTemperature: fill(nLC, 0.0),
				SnowmeltRate:        fill(nLC, 3.0),
				SnowDepth:           fill(nLC, 0.0),
			},
			Routing: Routing{FlowMatrix: chainMatrix(nLC, nB)},
		},
		Subcatchment: Subcatchment{
			Identifier: layout.Subcatchments,
			General: SubcatchmentGeneral{
				Area:               fill(nSC, 10.0),
				LatitudeAtOutflow:  fill(nSC, 60.0),
				LongitudeAtOutflow: fill(nSC, 10.0),
				LandCoverPercent:   make([][]float64, nSC),
			},
			Hydrology: SubcatchmentHydrology{
				RainfallMultiplier:  fill(nSC, 1.0),
				SnowfallMultiplier:  fill(nSC, 1.0),
				SnowfallTemperature: fill(nSC, 0.0),
				SnowmeltTemperature: fill(nSC, 0.0),
			},
		},
		Reach: Reach{
			Identifier: layout.Subcatchments,
			General: ReachGeneral{
				Length:        fill(nSC, 1000.0),
				WidthAtBottom: fill(nSC, 5.0),
				Slope:         fill(nSC, 0.001),
				Outflow:       make([]*int, nSC),
				Inflows:       make([][]*int, nSC),
			},
			Hydrology: ReachHydrology{
				HasAbstraction: make([]bool, nSC),
				HasEffluent:    make([]bool, nSC),
				Manning: Manning{
					A: fill(nSC, 0.28),
					B: fill(nSC, 0.34),
					C: fill(nSC, 0.4),
					F: fill(nSC, 0.34),
					N: fill(nSC, 0.1),
				},
				InitialFlow: fill(nSC, 1.0),
			},
		},
	}

	if nLC > 0 {
		for i := range ps.Subcatchment.General.LandCoverPercent {
			ps.Subcatchment.General.LandCoverPercent[i] = fill(nLC, 100.0/float64(nLC))
		}
	}

	for i := 0; i < nSC; i++ {
		ps.Reach.General.Inflows[i] = []*int{}
		if i+1 < nSC {
			next := i + 1
			ps.Reach.General.Outflow[i] = &next
		}
		if i > 0 {
			prev := i - 1
			ps.Reach.General.Inflows[i] = []*int{&prev}
		}
	}

	ps.LandCover.Bucket = make([]LandCoverBucket, nB)
	for b := range ps.LandCover.Bucket {
		ps.LandCover.Bucket[b] = LandCoverBucket{
			General: BucketGeneral{
				Surficial:                     b == 0,
				InitialSoilTemperature:        0,
				RelativeAreaIndex:             fill(nLC, 1.0),
				SoilTemperatureEffectiveDepth: fill(nLC, 20.0),
			},
			Hydrology: BucketHydrology{
				CharacteristicTimeConstant: fill(nLC, float64(b+1)*5),
				TightlyBoundWaterDepth:     fill(nLC, 10.0),
				LooselyBoundWaterDepth:     fill(nLC, 20.0),
				FreelyDrainingWaterDepth:   fill(nLC, 50.0),
				InitialWaterDepth:          fill(nLC, 30.0),
				RelativeETIndex:            fill(nLC, 1.0),
				ETScalingExponent:          fill(nLC, 1.0),
			},
		}
	}

	return ps
}

// chainMatrix routes half of each bucket's release into the next bucket down.
func chainMatrix(nLC, nB int) [][][]float64 {
	m := make([][][]float64, nLC)
	for l := range m {
		m[l] = make([][]float64, nB)
		for from := range m[l] {
			m[l][from] = make([]float64, nB)
			if from+1 < nB {
				m[l][from][from+1] = 0.5
			}
		}
	}
	return m
}

func fill(n int, v float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = v
	}
	return s
}
