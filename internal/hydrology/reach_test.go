package hydrology

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newReach() *Reach {
	return &Reach{
		Name:          "R",
		Length:        1000,
		WidthAtBottom: 5,
		Slope:         0.001,
		Manning:       Manning{A: 0.28, B: 0.34, C: 0.4, F: 0.34, N: 0.1},
		OutflowTo:     NoOutflow,
	}
}

func TestReach_ConvergesToSteadyInflow(t *testing.T) {
	r := newReach()
	f := NewForcing(time.Time{}, 0, 0)

	var res ReachResult
	for i := 0; i < 50; i++ {
		res = r.Solve(4, 1, f, 86400)
	}
	assert.InDelta(t, 5, res.Flow, 1e-9)
	assert.InDelta(t, 0.28*math.Pow(5, 0.34), res.Velocity, 1e-9)
	assert.InDelta(t, 0.4*math.Pow(5, 0.34), res.Depth, 1e-9)
	assert.InDelta(t, 5*1000/res.Velocity, res.Volume, 1e-6)
	assert.Greater(t, res.ManningVelocity, 0.0)
}

func TestReach_RecessionWithoutInflow(t *testing.T) {
	r := newReach()
	r.Flow = 10
	f := NewForcing(time.Time{}, 0, 0)

	prev := r.Flow
	for i := 0; i < 5; i++ {
		res := r.Solve(0, 0, f, 600)
		assert.Less(t, res.Flow, prev)
		assert.GreaterOrEqual(t, res.Flow, 0.0)
		prev = res.Flow
	}
}

func TestReach_AbstractionAndEffluent(t *testing.T) {
	tests := []struct {
		name        string
		abstraction bool
		effluent    bool
		wantInflow  float64
		wantClamped bool
	}{
		{name: "neither", wantInflow: 3},
		{name: "effluent", effluent: true, wantInflow: 5},
		{name: "abstraction", abstraction: true, wantInflow: 0, wantClamped: true},
		{name: "both", abstraction: true, effluent: true, wantInflow: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newReach()
			r.HasAbstraction = tt.abstraction
			r.HasEffluent = tt.effluent

			f := NewForcing(time.Time{}, 0, 0)
			f.Abstraction = 4
			f.Effluent = 2

			res := r.Solve(1, 2, f, 86400)
			assert.InDelta(t, tt.wantInflow, res.Inflow, 1e-12)
			assert.Equal(t, tt.wantClamped, res.Clamped)
			assert.GreaterOrEqual(t, res.Flow, 0.0)
		})
	}
}

func TestReach_EmptyReachStaysEmpty(t *testing.T) {
	r := newReach()
	res := r.Solve(0, 0, NewForcing(time.Time{}, 0, 0), 86400)

	assert.Zero(t, res.Flow)
	assert.Zero(t, res.Velocity)
	assert.Zero(t, res.Depth)
	assert.Zero(t, res.Volume)
	assert.Zero(t, res.ManningVelocity)
}

func TestReach_IsOutlet(t *testing.T) {
	r := newReach()
	assert.True(t, r.IsOutlet())
	r.OutflowTo = 2
	assert.False(t, r.IsOutlet())
}

func TestDepthToDischarge(t *testing.T) {
	// 1 mm over 1 km² in one day is 1000 m³/day.
	assert.InDelta(t, 1000.0/86400, DepthToDischarge(1, 1, 86400), 1e-12)
	assert.Zero(t, DepthToDischarge(0, 10, 86400))
}
