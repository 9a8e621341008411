package hydrology

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/incawqmodels/persist/internal/params"
	"github.com/incawqmodels/persist/internal/pet"
	"github.com/incawqmodels/persist/internal/testutil"
)

func forcingsFor(n int, t time.Time, precip, temp float64) []Forcing {
	fs := make([]Forcing, n)
	for i := range fs {
		fs[i] = NewForcing(t, precip, temp)
	}
	return fs
}

func intp(i int) *int { return &i }

func TestBuild_Chain(t *testing.T) {
	c, err := Build(testutil.ChainParameters(3), WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)

	assert.Equal(t, 3, c.Size())
	assert.Equal(t, []int{0, 1, 2}, c.Network().Order())
	assert.Equal(t, []int{2}, c.Network().Outlets())
	assert.Equal(t, 1, c.Reaches[0].OutflowTo)
	assert.True(t, c.Reaches[2].IsOutlet())
	assert.Equal(t, []int{1}, c.Reaches[2].InflowsFrom)

	lc := c.Subcatchments[0].LandCovers[0]
	assert.Len(t, lc.Buckets, 2)
	assert.True(t, lc.Buckets[0].Surficial)
	assert.False(t, lc.Buckets[1].Surficial)
	assert.InDelta(t, 5, lc.Buckets[0].CharacteristicTimeConstant, 1e-12)
}

func TestBuild_InternalStepScaling(t *testing.T) {
	ps := testutil.ChainParameters(1)
	ps.General.InternalTimeStepMultiplier = 4

	c, err := Build(ps)
	require.NoError(t, err)

	assert.InDelta(t, 21600, c.Clock().InternalTimeStep(), 1e-9)
	lc := c.Subcatchments[0].LandCovers[0]
	assert.InDelta(t, 20, lc.Buckets[0].CharacteristicTimeConstant, 1e-9)
	assert.InDelta(t, 0.75, lc.Snow.MeltRate, 1e-12)
}

func TestBuild_Tree(t *testing.T) {
	c, err := Build(testutil.TreeParameters())
	require.NoError(t, err)

	assert.Equal(t, [][]int{{0, 1}, {2}, {3}}, c.Network().Levels())
	assert.ElementsMatch(t, []int{0, 1}, c.Network().Upstream(2))
	assert.ElementsMatch(t, []int{0, 1, 2}, c.Network().AllUpstream(3))
}

func TestBuild_TopologyErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(g *params.ReachGeneral)
		path    string
		message string
	}{
		{
			name: "cycle",
			mutate: func(g *params.ReachGeneral) {
				g.Outflow = []*int{intp(1), intp(2), intp(0)}
				g.Inflows = [][]*int{{intp(2)}, {intp(0)}, {intp(1)}}
			},
			path:    "reach.general.outflow",
			message: "cycle detected",
		},
		{
			name: "self loop",
			mutate: func(g *params.ReachGeneral) {
				g.Outflow[2] = intp(2)
			},
			path:    "reach.general.outflow[2]",
			message: "drains into itself",
		},
		{
			name: "out of range",
			mutate: func(g *params.ReachGeneral) {
				g.Outflow[2] = intp(7)
			},
			path:    "reach.general.outflow[2]",
			message: "out of range",
		},
		{
			name: "inflow disagrees with outflow",
			mutate: func(g *params.ReachGeneral) {
				g.Inflows[2] = []*int{intp(1), intp(0)}
			},
			path:    "reach.general.inflows[2]",
			message: `lists "HRU 0" as an inflow`,
		},
		{
			name: "missing inflow",
			mutate: func(g *params.ReachGeneral) {
				g.Inflows[1] = []*int{}
			},
			path:    "reach.general.inflows[1]",
			message: `missing inflow from "HRU 0"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps := testutil.ChainParameters(3)
			tt.mutate(&ps.Reach.General)

			_, err := Build(ps)
			require.Error(t, err)
			assert.ErrorIs(t, err, params.ErrInvalidConfig)

			var cfgErr *params.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.path)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestBuild_InvalidParameters(t *testing.T) {
	ps := testutil.ChainParameters(2)
	ps.Reach.General.Length = ps.Reach.General.Length[:1]

	_, err := Build(ps)
	require.Error(t, err)
	assert.ErrorIs(t, err, params.ErrInvalidConfig)
}

func TestStep_UpstreamBeforeDownstream(t *testing.T) {
	c, err := Build(testutil.ChainParameters(2))
	require.NoError(t, err)
	start := time.Date(2001, 6, 1, 0, 0, 0, 0, time.UTC)

	res, err := c.Step(context.Background(), forcingsFor(2, start, 20, 10))
	require.NoError(t, err)

	// Identical subcatchments, so the downstream reach sees the upstream
	// reach's flow on top of its own terrestrial input.
	assert.InDelta(t, res.Subcatchments[0].Discharge, res.Subcatchments[1].Discharge, 1e-12)
	assert.InDelta(t, res.Subcatchments[1].Discharge+res.Reaches[0].Flow, res.Reaches[1].Inflow, 1e-9)
	assert.Greater(t, res.Reaches[1].Flow, res.Reaches[0].Flow)
	assert.InDelta(t, res.Reaches[1].Flow, res.OutletDischarge, 1e-12)
}

func TestStep_DeterministicAcrossWorkers(t *testing.T) {
	start := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	run := func(workers int) []StepResult {
		c, err := Build(testutil.TreeParameters(), WithWorkers(workers))
		require.NoError(t, err)

		var out []StepResult
		for d := 0; d < 60; d++ {
			temp := float64(d%20) - 8
			res, err := c.Step(context.Background(), forcingsFor(c.Size(), start.AddDate(0, 0, d), float64(d%7)*3, temp))
			require.NoError(t, err)
			out = append(out, res)
		}
		return out
	}

	assert.Equal(t, run(1), run(8))
}

func TestStep_Invariants(t *testing.T) {
	c, err := Build(testutil.TreeParameters())
	require.NoError(t, err)
	start := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

	for d := 0; d < 120; d++ {
		temp := float64(d%30) - 10
		_, err := c.Step(context.Background(), forcingsFor(c.Size(), start.AddDate(0, 0, d), float64(d%5)*10, temp))
		require.NoError(t, err)

		for _, s := range c.Subcatchments {
			for _, lc := range s.LandCovers {
				require.GreaterOrEqual(t, lc.Snow.Depth, 0.0)
				for _, b := range lc.Buckets {
					require.GreaterOrEqual(t, b.WaterDepth, 0.0)
					require.LessOrEqual(t, b.WaterDepth, b.MaximumWaterDepth()+1e-9)
					require.LessOrEqual(t, b.ActualET, b.PotentialET)
				}
			}
		}
		for _, r := range c.Reaches {
			require.GreaterOrEqual(t, r.Flow, 0.0)
		}
	}
}

func TestStep_ForcingCountMismatch(t *testing.T) {
	c, err := Build(testutil.ChainParameters(2))
	require.NoError(t, err)

	_, err = c.Step(context.Background(), forcingsFor(1, time.Now(), 0, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected forcing for 2 HRUs, got 1")
}

type selectiveEstimator struct {
	fail  string
	panic bool
}

func (s selectiveEstimator) Estimate(in pet.Inputs) (float64, error) {
	if in.Subcatchment == s.fail {
		if s.panic {
			panic("estimator exploded")
		}
		return 0, errors.New("no data")
	}
	return 1, nil
}

func TestStep_WorkerErrorNamesHRU(t *testing.T) {
	tests := []struct {
		name    string
		est     selectiveEstimator
		message string
	}{
		{name: "error", est: selectiveEstimator{fail: "HRU 1"}, message: "no data"},
		{name: "panic", est: selectiveEstimator{fail: "HRU 1", panic: true}, message: "estimator exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Build(testutil.ChainParameters(3), WithEstimator(tt.est), WithWorkers(2))
			require.NoError(t, err)

			_, err = c.Step(context.Background(), forcingsFor(3, time.Now(), 1, 5))
			require.Error(t, err)

			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, 1, stepErr.Step)
			assert.Equal(t, "HRU 1", stepErr.HRU)
			assert.Equal(t, PhaseSubcatchment, stepErr.Phase)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestStep_ForcingPETSkipsEstimator(t *testing.T) {
	c, err := Build(testutil.ChainParameters(2), WithEstimator(selectiveEstimator{fail: "HRU 0"}))
	require.NoError(t, err)

	fs := forcingsFor(2, time.Now(), 0, 5)
	for i := range fs {
		fs[i].PET = 0.5
	}
	res, err := c.Step(context.Background(), fs)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Subcatchments[0].PotentialET, 1e-12)
}
