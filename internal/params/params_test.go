package params

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func testLayout() Layout {
	return Layout{
		Buckets:       Identifier{Name: []string{"Quick", "Soil", "Groundwater"}},
		LandCovers:    Identifier{Name: []string{"Forest", "Peat"}},
		Subcatchments: Identifier{Name: []string{"Top", "Middle", "Bottom"}},
	}
}

func TestLoad_TwoBranch(t *testing.T) {
	ps, err := Load("testdata/two_branch.yaml")
	require.NoError(t, err)

	assert.Equal(t, 2, ps.BucketCount())
	assert.Equal(t, 2, ps.LandCoverCount())
	assert.Equal(t, 3, ps.SubcatchmentCount())
	assert.Equal(t, 3, ps.ReachCount())
	assert.Equal(t, 2, ps.General.InternalTimeStepMultiplier)
	assert.Equal(t, time.Date(2001, 3, 1, 0, 0, 0, 0, time.UTC), ps.General.StartDate)

	// "true" string decoded as a boolean
	assert.True(t, ps.LandCover.Bucket[0].General.Surficial)
	assert.False(t, ps.LandCover.Bucket[1].General.Surficial)

	require.Len(t, ps.Reach.General.Outflow, 3)
	require.NotNil(t, ps.Reach.General.Outflow[0])
	assert.Equal(t, 2, *ps.Reach.General.Outflow[0])
	assert.Nil(t, ps.Reach.General.Outflow[2], "null outflow marks the outlet")

	require.Len(t, ps.Reach.General.Inflows[0], 1)
	assert.Nil(t, ps.Reach.General.Inflows[0][0])
	assert.Len(t, ps.Reach.General.Inflows[2], 2)

	assert.Equal(t, 1000000.0, ps.LandCover.General.SoilTemperatureModel.HeatCapacity[0])
	assert.Equal(t, 0.4, ps.LandCover.Routing.FlowMatrix[0][0][1])
	assert.Equal(t, []bool{false, true, false}, ps.Reach.Hydrology.HasEffluent)
	assert.False(t, ps.HasChemicals())

	// unversioned file; its stray degreeDayMeltFactor key is ignored
	assert.Zero(t, ps.General.SchemaVersion)
	assert.Equal(t, []float64{3, 3}, ps.LandCover.Precipitation.SnowmeltRate)
	require.NoError(t, ps.Validate())
}

func TestLoad_MeltRateFromSnowmeltRate(t *testing.T) {
	data, err := os.ReadFile("testdata/two_branch.yaml")
	require.NoError(t, err)
	edited := strings.Replace(string(data), "snowmeltRate: [3, 3]", "snowmeltRate: [1.5, 4]", 1)
	edited = strings.Replace(edited, "degreeDayMeltFactor: [3, 3]", "degreeDayMeltFactor: [9, 9]", 1)
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(edited), 0600))

	ps, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 4}, ps.LandCover.Precipitation.SnowmeltRate)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/does_not_exist.yaml")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidConfig))
}

func TestGenerate_IsValid(t *testing.T) {
	ps := Generate(testLayout())
	require.NoError(t, ps.Validate())

	assert.Nil(t, ps.Reach.General.Outflow[2])
	require.NotNil(t, ps.Reach.General.Outflow[0])
	assert.Equal(t, 1, *ps.Reach.General.Outflow[0])
	assert.InDelta(t, 100.0, ps.Subcatchment.General.LandCoverPercent[0][0]+ps.Subcatchment.General.LandCoverPercent[0][1], 1e-9)
	assert.True(t, ps.LandCover.Bucket[0].General.Surficial)
	assert.False(t, ps.LandCover.Bucket[1].General.Surficial)
}

func TestParse_GeneratedRoundTrip(t *testing.T) {
	ps := Generate(testLayout())
	ps.Chemicals = &Chemicals{Chemical: []Chemical{{Name: "Nitrate", Abbreviation: "NO3", Mass: 62}}}

	data, err := yaml.Marshal(ps)
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, ps.General.StartDate.UTC(), parsed.General.StartDate.UTC())
	assert.Equal(t, ps.LandCover.Routing.FlowMatrix, parsed.LandCover.Routing.FlowMatrix)
	assert.Equal(t, ps.Subcatchment.General.Area, parsed.Subcatchment.General.Area)
	assert.True(t, parsed.HasChemicals())
	assert.Equal(t, "NO3", parsed.Chemicals.Chemical[0].Abbreviation)
}

func TestValidate_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(ps *ParameterSet)
		wantErr string
	}{
		{
			name:    "zero time step",
			mutate:  func(ps *ParameterSet) { ps.General.TimeStep = 0 },
			wantErr: "general.timeStep",
		},
		{
			name:    "zero internal multiplier",
			mutate:  func(ps *ParameterSet) { ps.General.InternalTimeStepMultiplier = 0 },
			wantErr: "general.internalTimeStepMultiplier",
		},
		{
			name:    "newer schema version",
			mutate:  func(ps *ParameterSet) { ps.General.SchemaVersion = SchemaVersion + 1 },
			wantErr: "general.schemaVersion: version 2 is newer than the supported version 1",
		},
		{
			name:    "missing land cover array",
			mutate:  func(ps *ParameterSet) { ps.LandCover.Precipitation.SnowmeltRate = nil },
			wantErr: "landCover.precipitation.snowmeltRate: expected 2 values, got 0",
		},
		{
			name:    "short subcatchment array",
			mutate:  func(ps *ParameterSet) { ps.Subcatchment.General.Area = []float64{1, 2} },
			wantErr: "subcatchment.general.area: expected 3 values, got 2",
		},
		{
			name: "percent cover does not sum to 100",
			mutate: func(ps *ParameterSet) {
				ps.Subcatchment.General.LandCoverPercent[1] = []float64{30, 30}
			},
			wantErr: "subcatchment.general.landCoverPercent[1]: land cover percentages sum to 60",
		},
		{
			name: "flow matrix row exceeds one",
			mutate: func(ps *ParameterSet) {
				ps.LandCover.Routing.FlowMatrix[0][0] = []float64{0, 0.5, 0.75}
			},
			wantErr: "landCover.routing.flowMatrix[0][0]: routed fractions sum to 1.25",
		},
		{
			name: "flow matrix wrong shape",
			mutate: func(ps *ParameterSet) {
				ps.LandCover.Routing.FlowMatrix[1] = ps.LandCover.Routing.FlowMatrix[1][:2]
			},
			wantErr: "landCover.routing.flowMatrix[1]: expected 3 values, got 2",
		},
		{
			name: "bucket section missing",
			mutate: func(ps *ParameterSet) {
				ps.LandCover.Bucket = ps.LandCover.Bucket[:2]
			},
			wantErr: "landCover.bucket: expected 3 values, got 2",
		},
		{
			name: "initial water above capacity",
			mutate: func(ps *ParameterSet) {
				ps.LandCover.Bucket[1].Hydrology.InitialWaterDepth[0] = 500
			},
			wantErr: "landCover.bucket[1].hydrology.initialWaterDepth[0]",
		},
		{
			name: "reach count differs from subcatchment count",
			mutate: func(ps *ParameterSet) {
				ps.Reach.Identifier.Name = ps.Reach.Identifier.Name[:2]
			},
			wantErr: "expected one reach per subcatchment",
		},
		{
			name:    "negative manning coefficient",
			mutate:  func(ps *ParameterSet) { ps.Reach.Hydrology.Manning.A[0] = -1 },
			wantErr: "reach.hydrology.Manning.a[0]",
		},
		{
			name:    "empty bucket name",
			mutate:  func(ps *ParameterSet) { ps.Bucket.Identifier.Name[0] = "" },
			wantErr: "bucket.identifier.name[0]",
		},
		{
			name:    "subcatchment named outlet",
			mutate:  func(ps *ParameterSet) { ps.Subcatchment.Identifier.Name[2] = "outlet" },
			wantErr: `subcatchment.identifier.name[2]: "outlet" is a reserved location`,
		},
		{
			name:    "subcatchment named for every location",
			mutate:  func(ps *ParameterSet) { ps.Subcatchment.Identifier.Name[1] = "*" },
			wantErr: `subcatchment.identifier.name[1]: "*" is a reserved location`,
		},
		{
			name:    "duplicate subcatchment name",
			mutate:  func(ps *ParameterSet) { ps.Subcatchment.Identifier.Name[2] = "Top" },
			wantErr: `subcatchment.identifier.name[2]: "Top" is already used by subcatchment 0`,
		},
		{
			name: "abbreviation clashes with another name",
			mutate: func(ps *ParameterSet) {
				ps.Subcatchment.Identifier.Abbreviation = []string{"T", "Bottom", "B"}
			},
			wantErr: `subcatchment.identifier.abbreviation[1]: "Bottom" is already used by subcatchment 2`,
		},
		{
			name: "reserved abbreviation",
			mutate: func(ps *ParameterSet) {
				ps.Subcatchment.Identifier.Abbreviation = []string{"outlet", "M", "B"}
			},
			wantErr: `subcatchment.identifier.abbreviation[0]: "outlet" is a reserved location`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := Generate(testLayout())
			tt.mutate(ps)

			err := ps.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	ps := Generate(testLayout())
	ps.General.TimeStep = -1
	ps.Subcatchment.General.Area = nil
	ps.Reach.Hydrology.InitialFlow = nil

	err := ps.Validate()
	require.Error(t, err)

	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok, "expected joined errors")
	assert.GreaterOrEqual(t, len(joined.Unwrap()), 3)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.NotEmpty(t, cfgErr.Path)
}

func TestValidate_AbbreviationMayRepeatOwnName(t *testing.T) {
	ps := Generate(testLayout())
	ps.Subcatchment.Identifier.Abbreviation = []string{"Top", "", "B"}
	require.NoError(t, ps.Validate())
}

func TestConfigError_Error(t *testing.T) {
	assert.Equal(t, "reach.general.outflow[1]: self-loop", Errorf("reach.general.outflow[1]", "self-loop").Error())
	assert.Equal(t, "bad", (&ConfigError{Message: "bad"}).Error())
}

func TestIdentifier_AbbreviationAt(t *testing.T) {
	id := Identifier{Name: []string{"Forest", "Arable"}, Abbreviation: []string{"F"}}
	assert.Equal(t, "F", id.AbbreviationAt(0))
	assert.Equal(t, "Arable", id.AbbreviationAt(1))
	assert.Equal(t, "", id.AbbreviationAt(5))
}
