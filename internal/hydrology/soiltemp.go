package hydrology

import "math"

// SoilTemperatureModel holds the Rankinen soil temperature coefficients of a
// land cover.
type SoilTemperatureModel struct {
	HeatCapacity         float64 // C_s, J/m³/°C
	ThermalConductivity  float64 // K_t, W/m/°C
	IceHeatCapacity      float64 // C_ice, J/m³/°C, applied below freezing
	SnowDampingParameter float64 // f_s, per m of snow
}

// Update moves the bucket soil temperature towards the air temperature and
// damps the result under snow. dt is in seconds, depth in cm, snow in mm.
func (m SoilTemperatureModel) Update(soil, air, depthCm, snowMM, dt float64) float64 {
	if depthCm <= 0 || m.HeatCapacity <= 0 {
		return soil
	}
	capacity := m.HeatCapacity
	if soil < 0 {
		capacity += m.IceHeatCapacity
	}
	depth := depthCm / 100
	rate := dt * m.ThermalConductivity / (capacity * 4 * depth * depth)
	if rate > 1 {
		rate = 1
	}

	next := soil + rate*(air-soil)
	if snowMM > 0 {
		next *= math.Exp(m.SnowDampingParameter * snowMM / 1000)
	}
	return next
}
