// Package params holds the typed parameter set for a catchment model.
//
// Every per-entity scalar is stored as an array indexed by entity position
// (bucket, land cover, subcatchment, reach). Components read their values by
// index once, when the catchment is built.
package params

import "time"

// SchemaVersion is the newest parameter file layout this build reads.
// Files without general.schemaVersion are read as version 1.
const SchemaVersion = 1

// ParameterSet is the read-only configuration of one catchment model.
type ParameterSet struct {
	General      General      `koanf:"general" yaml:"general"`
	Bucket       Buckets      `koanf:"bucket" yaml:"bucket"`
	LandCover    LandCover    `koanf:"landCover" yaml:"landCover"`
	Subcatchment Subcatchment `koanf:"subcatchment" yaml:"subcatchment"`
	Reach        Reach        `koanf:"reach" yaml:"reach"`
	Chemicals    *Chemicals   `koanf:"chemicals" yaml:"chemicals,omitempty" validate:"omitempty"`
}

// General holds model-wide settings.
type General struct {
	Name          string `koanf:"name" yaml:"name"`
	Creator       string `koanf:"creator" yaml:"creator"`
	SchemaVersion int    `koanf:"schemaVersion" yaml:"schemaVersion,omitempty" validate:"gte=0"`
	// TimeStep is the external (reporting) time step in seconds.
	TimeStep float64 `koanf:"timeStep" yaml:"timeStep" validate:"gt=0"`
	// InternalTimeStepMultiplier is the number of sub-steps per external step.
	InternalTimeStepMultiplier int       `koanf:"internalTimeStepMultiplier" yaml:"internalTimeStepMultiplier" validate:"gte=1"`
	StartDate                  time.Time `koanf:"startDate" yaml:"startDate"`
	Model                      ModelInfo `koanf:"model" yaml:"model"`
}

// ModelInfo records which model build a parameter set was produced for.
type ModelInfo struct {
	Repository string `koanf:"repository" yaml:"repository"`
	Branch     string `koanf:"branch" yaml:"branch"`
	Commit     string `koanf:"commit" yaml:"commit"`
}

// Identifier names the entities of one kind, in index order.
type Identifier struct {
	Name         []string `koanf:"name" yaml:"name" validate:"required,min=1,dive,required"`
	Abbreviation []string `koanf:"abbreviation" yaml:"abbreviation,omitempty"`
}

// Buckets declares the bucket identities shared by every land cover.
type Buckets struct {
	Identifier Identifier `koanf:"identifier" yaml:"identifier"`
}

// LandCover holds land-cover level parameters, each array indexed by land cover.
type LandCover struct {
	Identifier    Identifier             `koanf:"identifier" yaml:"identifier"`
	General       LandCoverGeneral       `koanf:"general" yaml:"general"`
	Precipitation LandCoverPrecipitation `koanf:"precipitation" yaml:"precipitation"`
	Routing       Routing                `koanf:"routing" yaml:"routing"`
	// Bucket is indexed by bucket; the arrays inside are indexed by land cover.
	Bucket []LandCoverBucket `koanf:"bucket" yaml:"bucket" validate:"required,dive"`
}

type LandCoverGeneral struct {
	SoilTemperatureModel    SoilTemperatureModel    `koanf:"soilTemperatureModel" yaml:"soilTemperatureModel"`
	EvapotranspirationModel EvapotranspirationModel `koanf:"evapotranspirationModel" yaml:"evapotranspirationModel"`
}

// SoilTemperatureModel holds the Rankinen soil temperature coefficients.
type SoilTemperatureModel struct {
	HeatCapacity         []float64 `koanf:"C_s" yaml:"C_s" validate:"dive,gt=0"`
	ThermalConductivity  []float64 `koanf:"K_t" yaml:"K_t" validate:"dive,gte=0"`
	IceHeatCapacity      []float64 `koanf:"C_ice" yaml:"C_ice" validate:"dive,gte=0"`
	SnowDampingParameter []float64 `koanf:"f_s" yaml:"f_s"`
}

// EvapotranspirationModel holds the temperature-index PET coefficients.
type EvapotranspirationModel struct {
	TemperatureOffset []float64 `koanf:"temperatureOffset" yaml:"temperatureOffset"`
	ScalingFactor     []float64 `koanf:"scalingFactor" yaml:"scalingFactor" validate:"dive,gt=0"`
}

type LandCoverPrecipitation struct {
	RainfallMultiplier  []float64 `koanf:"rainfallMultiplier" yaml:"rainfallMultiplier" validate:"dive,gte=0"`
	SnowfallMultiplier  []float64 `koanf:"snowfallMultiplier" yaml:"snowfallMultiplier" validate:"dive,gte=0"`
	SnowfallTemperature []float64 `koanf:"snowfallTemperature" yaml:"snowfallTemperature"`
	SnowmeltTemperature []float64 `koanf:"snowmeltTemperature" yaml:"snowmeltTemperature"`
	// SnowmeltRate is in mm per degree per day.
	SnowmeltRate []float64 `koanf:"snowmeltRate" yaml:"snowmeltRate" validate:"dive,gte=0"`
	// SnowDepth is the initial snowpack depth in mm.
	SnowDepth []float64 `koanf:"snowDepth" yaml:"snowDepth" validate:"dive,gte=0"`
}

// Routing holds flowMatrix[landCover][from][to], the fraction of the release
// of bucket "from" that is routed into bucket "to".
type Routing struct {
	FlowMatrix [][][]float64 `koanf:"flowMatrix" yaml:"flowMatrix" validate:"dive,dive,dive,gte=0,lte=1"`
}

type LandCoverBucket struct {
	General   BucketGeneral   `koanf:"general" yaml:"general"`
	Hydrology BucketHydrology `koanf:"hydrology" yaml:"hydrology"`
}

type BucketGeneral struct {
	// Surficial buckets receive rainfall and snowmelt directly.
	Surficial                     bool      `koanf:"surficial" yaml:"surficial"`
	InitialSoilTemperature        float64   `koanf:"initialSoilTemperature" yaml:"initialSoilTemperature"`
	RelativeAreaIndex             []float64 `koanf:"relativeAreaIndex" yaml:"relativeAreaIndex"`
	SoilTemperatureEffectiveDepth []float64 `koanf:"soilTemperatureEffectiveDepth" yaml:"soilTemperatureEffectiveDepth" validate:"dive,gte=0"`
}

type BucketHydrology struct {
	// CharacteristicTimeConstant is in days.
	CharacteristicTimeConstant []float64 `koanf:"characteristicTimeConstant" yaml:"characteristicTimeConstant" validate:"dive,gte=0"`
	TightlyBoundWaterDepth     []float64 `koanf:"tightlyBoundWaterDepth" yaml:"tightlyBoundWaterDepth" validate:"dive,gte=0"`
	LooselyBoundWaterDepth     []float64 `koanf:"looselyBoundWaterDepth" yaml:"looselyBoundWaterDepth" validate:"dive,gte=0"`
	FreelyDrainingWaterDepth   []float64 `koanf:"freelyDrainingWaterDepth" yaml:"freelyDrainingWaterDepth" validate:"dive,gte=0"`
	InitialWaterDepth          []float64 `koanf:"initialWaterDepth" yaml:"initialWaterDepth" validate:"dive,gte=0"`
	RelativeETIndex            []float64 `koanf:"relativeETIndex" yaml:"relativeETIndex"`
	ETScalingExponent          []float64 `koanf:"ETScalingExponent" yaml:"ETScalingExponent" validate:"dive,gte=0"`
}

// Subcatchment holds subcatchment parameters, each array indexed by subcatchment.
type Subcatchment struct {
	Identifier Identifier            `koanf:"identifier" yaml:"identifier"`
	General    SubcatchmentGeneral   `koanf:"general" yaml:"general"`
	Hydrology  SubcatchmentHydrology `koanf:"hydrology" yaml:"hydrology"`
}

type SubcatchmentGeneral struct {
	// Area is in km².
	Area               []float64 `koanf:"area" yaml:"area" validate:"dive,gt=0"`
	LatitudeAtOutflow  []float64 `koanf:"latitudeAtOutflow" yaml:"latitudeAtOutflow" validate:"dive,gte=-90,lte=90"`
	LongitudeAtOutflow []float64 `koanf:"longitudeAtOutflow" yaml:"longitudeAtOutflow" validate:"dive,gte=-180,lte=180"`
	// LandCoverPercent is indexed [subcatchment][landCover].
	LandCoverPercent [][]float64 `koanf:"landCoverPercent" yaml:"landCoverPercent" validate:"dive,dive,gte=0,lte=100"`
}

type SubcatchmentHydrology struct {
	RainfallMultiplier  []float64 `koanf:"rainfallMultiplier" yaml:"rainfallMultiplier" validate:"dive,gte=0"`
	SnowfallMultiplier  []float64 `koanf:"snowfallMultiplier" yaml:"snowfallMultiplier" validate:"dive,gte=0"`
	SnowfallTemperature []float64 `koanf:"snowfallTemperature" yaml:"snowfallTemperature"`
	SnowmeltTemperature []float64 `koanf:"snowmeltTemperature" yaml:"snowmeltTemperature"`
}

// Reach holds reach parameters, each array indexed by reach.
type Reach struct {
	Identifier Identifier     `koanf:"identifier" yaml:"identifier"`
	General    ReachGeneral   `koanf:"general" yaml:"general"`
	Hydrology  ReachHydrology `koanf:"hydrology" yaml:"hydrology"`
}

type ReachGeneral struct {
	// Length is in m.
	Length []float64 `koanf:"length" yaml:"length" validate:"dive,gt=0"`
	// WidthAtBottom is in m.
	WidthAtBottom []float64 `koanf:"widthAtBottom" yaml:"widthAtBottom" validate:"dive,gt=0"`
	Slope         []float64 `koanf:"slope" yaml:"slope" validate:"dive,gt=0"`
	// Outflow is the index of the downstream reach, nil for an outlet.
	Outflow []*int `koanf:"outflow" yaml:"outflow"`
	// Inflows lists the indices of upstream reaches. Null entries are ignored.
	Inflows [][]*int `koanf:"inflows" yaml:"inflows"`
}

type ReachHydrology struct {
	HasAbstraction []bool    `koanf:"hasAbstraction" yaml:"hasAbstraction"`
	HasEffluent    []bool    `koanf:"hasEffluent" yaml:"hasEffluent"`
	Manning        Manning   `koanf:"Manning" yaml:"Manning"`
	InitialFlow    []float64 `koanf:"initialFlow" yaml:"initialFlow" validate:"dive,gte=0"`
}

// Manning holds the rating-curve coefficients: velocity = a·Q^b,
// depth = c·Q^f, and the roughness n.
type Manning struct {
	A []float64 `koanf:"a" yaml:"a" validate:"dive,gt=0"`
	B []float64 `koanf:"b" yaml:"b" validate:"dive,gte=0"`
	C []float64 `koanf:"c" yaml:"c" validate:"dive,gt=0"`
	F []float64 `koanf:"f" yaml:"f" validate:"dive,gte=0"`
	N []float64 `koanf:"n" yaml:"n" validate:"dive,gt=0"`
}

// Chemicals declares the chemicals carried by every store. A nil section
// means the model is hydrology only.
type Chemicals struct {
	Chemical []Chemical `koanf:"chemical" yaml:"chemical" validate:"dive"`
}

type Chemical struct {
	Name         string  `koanf:"name" yaml:"name" validate:"required"`
	Abbreviation string  `koanf:"abbreviation" yaml:"abbreviation"`
	Mass         float64 `koanf:"mass" yaml:"mass" validate:"gte=0"`
}

// BucketCount returns the number of buckets in every land cover.
func (ps *ParameterSet) BucketCount() int { return len(ps.Bucket.Identifier.Name) }

// LandCoverCount returns the number of land-cover types.
func (ps *ParameterSet) LandCoverCount() int { return len(ps.LandCover.Identifier.Name) }

// SubcatchmentCount returns the number of subcatchments.
func (ps *ParameterSet) SubcatchmentCount() int { return len(ps.Subcatchment.Identifier.Name) }

// ReachCount returns the number of reaches.
func (ps *ParameterSet) ReachCount() int { return len(ps.Reach.Identifier.Name) }

// HasChemicals reports whether the parameter set declares any chemicals.
func (ps *ParameterSet) HasChemicals() bool {
	return ps.Chemicals != nil && len(ps.Chemicals.Chemical) > 0
}

// AbbreviationAt returns the abbreviation at index i, falling back to the name.
func (id Identifier) AbbreviationAt(i int) string {
	if i < len(id.Abbreviation) && id.Abbreviation[i] != "" {
		return id.Abbreviation[i]
	}
	if i < len(id.Name) {
		return id.Name[i]
	}
	return ""
}
