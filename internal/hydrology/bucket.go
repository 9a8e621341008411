package hydrology

import "math"

// Bucket is a conceptual water store with three ordered zones. Water in the
// tightly-bound zone is never available; the loosely-bound zone supplies
// evapotranspiration at a reduced rate; the freely-draining zone supplies
// both evapotranspiration and runoff.
type Bucket struct {
	Name         string
	Abbreviation string
	// Surficial buckets receive rainfall and snowmelt.
	Surficial bool

	TightlyBound   float64 // mm
	LooselyBound   float64 // mm
	FreelyDraining float64 // mm

	// CharacteristicTimeConstant is the drainage time scale in internal steps.
	CharacteristicTimeConstant float64

	WaterDepth  float64 // mm, in [0, MaximumWaterDepth]
	PotentialET float64 // mm per step
	ActualET    float64 // mm per step, never above PotentialET

	RelativeAreaIndex  float64
	RelativeETIndex    float64
	ETAdjustmentFactor float64

	SoilTemperature               float64 // °C
	SoilTemperatureEffectiveDepth float64 // cm

	Chemistry *ChemistryState
}

// MaximumWaterDepth returns the total capacity of the three zones.
func (b *Bucket) MaximumWaterDepth() float64 {
	return b.TightlyBound + b.LooselyBound + b.FreelyDraining
}

// CalculatePotentialEvapotranspiration records the PET for this step.
// Negative or non-finite estimates are treated as zero.
func (b *Bucket) CalculatePotentialEvapotranspiration(pet float64) {
	if math.IsNaN(pet) || math.IsInf(pet, 0) || pet < 0 {
		pet = 0
	}
	b.PotentialET = pet
}

// CalculateActualEvapotranspiration computes AET from the current water
// depth and removes it from the bucket.
//
// Above tightlyBound+freelyDraining, AET is limited by the water above that
// level. Between the tightly-bound level and that bound, AET is PET scaled by
// the filled fraction of the loosely-bound zone raised to the adjustment
// factor. At or below the tightly-bound level there is no AET. A bucket
// without a loosely-bound zone has no AET in the middle branch.
func (b *Bucket) CalculateActualEvapotranspiration() float64 {
	bound := b.TightlyBound + b.FreelyDraining

	var aet float64
	switch {
	case b.WaterDepth > bound:
		aet = math.Min(b.PotentialET, b.WaterDepth-bound)
	case b.WaterDepth > b.TightlyBound:
		if b.LooselyBound > 0 {
			modifier := math.Pow((b.WaterDepth-b.TightlyBound)/b.LooselyBound, b.ETAdjustmentFactor)
			aet = modifier * b.PotentialET
		}
	}

	aet = math.Max(0, math.Min(aet, math.Min(b.PotentialET, b.WaterDepth)))
	b.ActualET = aet
	b.WaterDepth -= aet
	return aet
}

// AddWater fills the bucket and returns the part that did not fit.
func (b *Bucket) AddWater(mm float64) (excess float64) {
	if mm <= 0 {
		return 0
	}
	space := b.MaximumWaterDepth() - b.WaterDepth
	if space < 0 {
		space = 0
	}
	if mm <= space {
		b.WaterDepth += mm
		return 0
	}
	b.WaterDepth += space
	return mm - space
}

// Drain releases water above the tightly- and loosely-bound zones as a
// linear reservoir and returns the released depth.
func (b *Bucket) Drain() float64 {
	drainable := b.WaterDepth - b.TightlyBound - b.LooselyBound
	if drainable <= 0 {
		return 0
	}
	release := drainable
	if b.CharacteristicTimeConstant > 0 {
		release = drainable * (1 - math.Exp(-1/b.CharacteristicTimeConstant))
	}
	b.WaterDepth -= release
	return release
}
