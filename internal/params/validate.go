package params

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/incawqmodels/persist/internal/timeseries"
)

const (
	// percentTolerance is the allowed deviation of land-cover percentages from 100.
	percentTolerance = 0.01
	// fractionTolerance absorbs rounding in flow-matrix row sums.
	fractionTolerance = 1e-9
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("koanf"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the structure of the parameter set and the consistency of
// its per-entity arrays. All problems are returned joined; each one is a
// *ConfigError.
func (ps *ParameterSet) Validate() error {
	var errs []error

	if err := structValidator().Struct(ps); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("failed to validate parameter set: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, &ConfigError{
				Path:    trimRoot(fe.Namespace()),
				Message: fmt.Sprintf("failed %q constraint (value %v)", constraint(fe), fe.Value()),
			})
		}
	}

	c := &checker{}
	if v := ps.General.SchemaVersion; v > SchemaVersion {
		c.add("general.schemaVersion", "version %d is newer than the supported version %d", v, SchemaVersion)
	}
	ps.checkLandCovers(c)
	ps.checkSubcatchments(c)
	ps.checkReaches(c)
	errs = append(errs, c.errs...)

	return errors.Join(errs...)
}

func trimRoot(ns string) string {
	_, rest, found := strings.Cut(ns, ".")
	if !found {
		return ns
	}
	return rest
}

func constraint(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}

type checker struct {
	errs []error
}

func (c *checker) add(path, format string, args ...any) {
	c.errs = append(c.errs, Errorf(path, format, args...))
}

func (c *checker) length(path string, got, want int) bool {
	if got != want {
		c.add(path, "expected %d values, got %d", want, got)
		return false
	}
	return true
}

func (ps *ParameterSet) checkLandCovers(c *checker) {
	nLC := ps.LandCoverCount()
	nB := ps.BucketCount()
	lc := &ps.LandCover

	c.length("landCover.identifier.abbreviation", optionalLen(lc.Identifier.Abbreviation, nLC), nLC)

	perLandCover := map[string][]float64{
		"landCover.general.soilTemperatureModel.C_s":                  lc.General.SoilTemperatureModel.HeatCapacity,
		"landCover.general.soilTemperatureModel.K_t":                  lc.General.SoilTemperatureModel.ThermalConductivity,
		"landCover.general.soilTemperatureModel.C_ice":                lc.General.SoilTemperatureModel.IceHeatCapacity,
		"landCover.general.soilTemperatureModel.f_s":                  lc.General.SoilTemperatureModel.SnowDampingParameter,
		"landCover.general.evapotranspirationModel.temperatureOffset": lc.General.EvapotranspirationModel.TemperatureOffset,
		"landCover.general.evapotranspirationModel.scalingFactor":     lc.General.EvapotranspirationModel.ScalingFactor,
		"landCover.precipitation.rainfallMultiplier":                  lc.Precipitation.RainfallMultiplier,
		"landCover.precipitation.snowfallMultiplier":                  lc.Precipitation.SnowfallMultiplier,
		"landCover.precipitation.snowfallTemperature":                 lc.Precipitation.SnowfallTemperature,
		"landCover.precipitation.snowmeltTemperature":                 lc.Precipitation.SnowmeltTemperature,
		"landCover.precipitation.snowmeltRate":                        lc.Precipitation.SnowmeltRate,
		"landCover.precipitation.snowDepth":                           lc.Precipitation.SnowDepth,
	}
	for _, path := range slices.Sorted(maps.Keys(perLandCover)) {
		c.length(path, len(perLandCover[path]), nLC)
	}

	if c.length("landCover.bucket", len(lc.Bucket), nB) {
		for i, b := range lc.Bucket {
			prefix := fmt.Sprintf("landCover.bucket[%d]", i)
			perBucket := map[string][]float64{
				".general.relativeAreaIndex":             b.General.RelativeAreaIndex,
				".general.soilTemperatureEffectiveDepth": b.General.SoilTemperatureEffectiveDepth,
				".hydrology.characteristicTimeConstant":  b.Hydrology.CharacteristicTimeConstant,
				".hydrology.tightlyBoundWaterDepth":      b.Hydrology.TightlyBoundWaterDepth,
				".hydrology.looselyBoundWaterDepth":      b.Hydrology.LooselyBoundWaterDepth,
				".hydrology.freelyDrainingWaterDepth":    b.Hydrology.FreelyDrainingWaterDepth,
				".hydrology.initialWaterDepth":           b.Hydrology.InitialWaterDepth,
				".hydrology.relativeETIndex":             b.Hydrology.RelativeETIndex,
				".hydrology.ETScalingExponent":           b.Hydrology.ETScalingExponent,
			}
			ok := true
			for _, key := range slices.Sorted(maps.Keys(perBucket)) {
				ok = c.length(prefix+key, len(perBucket[key]), nLC) && ok
			}
			if !ok {
				continue
			}
			h := b.Hydrology
			for j := 0; j < nLC; j++ {
				capacity := h.TightlyBoundWaterDepth[j] + h.LooselyBoundWaterDepth[j] + h.FreelyDrainingWaterDepth[j]
				if h.InitialWaterDepth[j] > capacity {
					c.add(fmt.Sprintf("%s.hydrology.initialWaterDepth[%d]", prefix, j),
						"initial water depth %g exceeds bucket capacity %g", h.InitialWaterDepth[j], capacity)
				}
			}
		}
	}

	matrix := lc.Routing.FlowMatrix
	if !c.length("landCover.routing.flowMatrix", len(matrix), nLC) {
		return
	}
	for l, rows := range matrix {
		path := fmt.Sprintf("landCover.routing.flowMatrix[%d]", l)
		if !c.length(path, len(rows), nB) {
			continue
		}
		for from, row := range rows {
			rowPath := fmt.Sprintf("%s[%d]", path, from)
			if !c.length(rowPath, len(row), nB) {
				continue
			}
			sum := 0.0
			for to, frac := range row {
				if to != from {
					sum += frac
				}
			}
			if sum > 1+fractionTolerance {
				c.add(rowPath, "routed fractions sum to %g, must not exceed 1", sum)
			}
		}
	}
}

func (ps *ParameterSet) checkSubcatchments(c *checker) {
	nSC := ps.SubcatchmentCount()
	nLC := ps.LandCoverCount()
	sc := &ps.Subcatchment

	perSubcatchment := map[string][]float64{
		"subcatchment.general.area":                  sc.General.Area,
		"subcatchment.general.latitudeAtOutflow":     sc.General.LatitudeAtOutflow,
		"subcatchment.general.longitudeAtOutflow":    sc.General.LongitudeAtOutflow,
		"subcatchment.hydrology.rainfallMultiplier":  sc.Hydrology.RainfallMultiplier,
		"subcatchment.hydrology.snowfallMultiplier":  sc.Hydrology.SnowfallMultiplier,
		"subcatchment.hydrology.snowfallTemperature": sc.Hydrology.SnowfallTemperature,
		"subcatchment.hydrology.snowmeltTemperature": sc.Hydrology.SnowmeltTemperature,
	}
	for _, path := range slices.Sorted(maps.Keys(perSubcatchment)) {
		c.length(path, len(perSubcatchment[path]), nSC)
	}
	checkLocationNames(c, sc.Identifier)

	if !c.length("subcatchment.general.landCoverPercent", len(sc.General.LandCoverPercent), nSC) {
		return
	}
	for i, row := range sc.General.LandCoverPercent {
		path := fmt.Sprintf("subcatchment.general.landCoverPercent[%d]", i)
		if !c.length(path, len(row), nLC) {
			continue
		}
		sum := 0.0
		for _, p := range row {
			sum += p
		}
		if math.Abs(sum-100) > percentTolerance {
			c.add(path, "land cover percentages sum to %g, expected 100", sum)
		}
	}
}

// checkLocationNames rejects subcatchment names and abbreviations that
// driving data or outputs could not tell apart: the reserved locations and
// any value used by two subcatchments.
func checkLocationNames(c *checker, id Identifier) {
	owner := map[string]int{}
	claim := func(path, value string, i int) {
		switch value {
		case timeseries.AllLocations, timeseries.Outlet:
			c.add(path, "%q is a reserved location", value)
			return
		}
		if j, ok := owner[value]; ok && j != i {
			c.add(path, "%q is already used by subcatchment %d", value, j)
			return
		}
		owner[value] = i
	}

	for i, name := range id.Name {
		if name == "" {
			continue
		}
		claim(fmt.Sprintf("subcatchment.identifier.name[%d]", i), name, i)
	}
	for i, abbr := range id.Abbreviation {
		if abbr == "" {
			continue
		}
		claim(fmt.Sprintf("subcatchment.identifier.abbreviation[%d]", i), abbr, i)
	}
}

func (ps *ParameterSet) checkReaches(c *checker) {
	nR := ps.ReachCount()
	r := &ps.Reach

	if nR != ps.SubcatchmentCount() {
		c.add("reach.identifier.name", "expected one reach per subcatchment (%d), got %d", ps.SubcatchmentCount(), nR)
	}

	perReach := map[string]int{
		"reach.general.length":           len(r.General.Length),
		"reach.general.widthAtBottom":    len(r.General.WidthAtBottom),
		"reach.general.slope":            len(r.General.Slope),
		"reach.general.outflow":          len(r.General.Outflow),
		"reach.general.inflows":          len(r.General.Inflows),
		"reach.hydrology.hasAbstraction": len(r.Hydrology.HasAbstraction),
		"reach.hydrology.hasEffluent":    len(r.Hydrology.HasEffluent),
		"reach.hydrology.initialFlow":    len(r.Hydrology.InitialFlow),
		"reach.hydrology.Manning.a":      len(r.Hydrology.Manning.A),
		"reach.hydrology.Manning.b":      len(r.Hydrology.Manning.B),
		"reach.hydrology.Manning.c":      len(r.Hydrology.Manning.C),
		"reach.hydrology.Manning.f":      len(r.Hydrology.Manning.F),
		"reach.hydrology.Manning.n":      len(r.Hydrology.Manning.N),
	}
	for _, path := range slices.Sorted(maps.Keys(perReach)) {
		c.length(path, perReach[path], nR)
	}
}

// optionalLen treats an absent array as correctly sized.
func optionalLen[T any](s []T, want int) int {
	if len(s) == 0 {
		return want
	}
	return len(s)
}
