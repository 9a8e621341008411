package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incawqmodels/persist/internal/cli/config"
	"github.com/incawqmodels/persist/internal/params"
	"github.com/incawqmodels/persist/internal/timeseries"
)

func TestScaffold_WritesLoadableProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "catchment")

	files, err := Scaffold(dir, Options{HRUs: 4, Days: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"persist.yaml", "parameters.yaml", "driving.csv"}, files)

	ps, err := params.Load(filepath.Join(dir, config.DefaultParameters))
	require.NoError(t, err)
	assert.Equal(t, 4, ps.SubcatchmentCount())
	assert.Equal(t, 3, ps.BucketCount())
	assert.Equal(t, 2, ps.LandCoverCount())

	driving, err := timeseries.LoadCSV(filepath.Join(dir, config.DefaultDrivingData), timeseries.DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, 10, driving.Len())
	assert.Equal(t, ps.General.StartDate.UTC(), driving.Rows[0].Time.UTC())
	assert.Equal(t, []string{timeseries.AllLocations}, driving.Locations())

	t.Chdir(dir)
	config.ResetConfig()
	cfg, err := config.LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, config.DefaultParameters), cfg.Parameters)
	assert.Equal(t, filepath.Join(dir, config.DefaultStateFile), cfg.StatePath)
}

func TestScaffold_RefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DefaultConfigFile), []byte("workers: 2\n"), 0600))

	_, err := Scaffold(dir, DefaultOptions())
	require.ErrorIs(t, err, ErrExists)

	_, err = Scaffold(dir, Options{HRUs: 1, Days: 1, Force: true})
	require.NoError(t, err)
}

func TestScaffold_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"no hrus", Options{HRUs: 0, Days: 1}},
		{"no days", Options{HRUs: 1, Days: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Scaffold(t.TempDir(), tt.opts)
			require.Error(t, err)
		})
	}
}

func TestDriving_RainPattern(t *testing.T) {
	ps := Parameters(1)
	ts := Driving(ps.General.StartDate, 5)
	p := ts.Column("precipitation")

	var got []float64
	for _, row := range ts.Rows {
		got = append(got, row.Value(p))
	}
	assert.Equal(t, []float64{0, 12, 4, 0, 0}, got)
}
