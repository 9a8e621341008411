package pet

import "fmt"

// TemperatureIndex scales the air temperature above an offset by day length:
//
//	PET/day = max(0, T - offset) · dayLength / scalingFactor
type TemperatureIndex struct{}

func (TemperatureIndex) Estimate(in Inputs) (float64, error) {
	if in.ScalingFactor <= 0 {
		return 0, fmt.Errorf("evapotranspiration scaling factor must be positive, got %g", in.ScalingFactor)
	}
	excess := in.Temperature - in.TemperatureOffset
	if excess <= 0 {
		return 0, nil
	}
	hours := DayLength(in.Time, in.Latitude, in.Longitude)
	return excess * hours / in.ScalingFactor * in.DaysPerStep, nil
}
