package hydrology

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBucket(tight, loose, free, depth, factor float64) *Bucket {
	return &Bucket{
		Name:                       "test",
		TightlyBound:               tight,
		LooselyBound:               loose,
		FreelyDraining:             free,
		WaterDepth:                 depth,
		ETAdjustmentFactor:         factor,
		CharacteristicTimeConstant: 2,
	}
}

func TestBucket_ActualET(t *testing.T) {
	tests := []struct {
		name      string
		bucket    *Bucket
		pet       float64
		wantAET   float64
		wantDepth float64
	}{
		{
			name:      "only tightly bound water",
			bucket:    newBucket(10, 10, 10, 9, 0),
			pet:       1.1,
			wantAET:   0,
			wantDepth: 9,
		},
		{
			name:      "exactly at tightly bound level",
			bucket:    newBucket(10, 10, 10, 10, 1),
			pet:       1.1,
			wantAET:   0,
			wantDepth: 10,
		},
		{
			name:      "above bound, PET limited",
			bucket:    newBucket(10, 10, 10, 25, 1),
			pet:       1.1,
			wantAET:   1.1,
			wantDepth: 23.9,
		},
		{
			name:      "above bound, water limited",
			bucket:    newBucket(10, 10, 10, 20.5, 1),
			pet:       1.1,
			wantAET:   0.5,
			wantDepth: 20,
		},
		{
			name:      "soil moisture limited, linear",
			bucket:    newBucket(10, 10, 10, 15, 1),
			pet:       2,
			wantAET:   1,
			wantDepth: 14,
		},
		{
			name:      "soil moisture limited, squared",
			bucket:    newBucket(10, 10, 10, 15, 2),
			pet:       2,
			wantAET:   0.5,
			wantDepth: 14.5,
		},
		{
			name:      "zero exponent gives full PET",
			bucket:    newBucket(10, 10, 10, 12, 0),
			pet:       1.1,
			wantAET:   1.1,
			wantDepth: 10.9,
		},
		{
			name:      "no loosely bound zone",
			bucket:    newBucket(10, 0, 10, 15, 1),
			pet:       1.1,
			wantAET:   0,
			wantDepth: 15,
		},
		{
			name:      "modifier above one is capped at PET",
			bucket:    newBucket(0, 5, 20, 15, 1),
			pet:       1,
			wantAET:   1,
			wantDepth: 14,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.bucket.CalculatePotentialEvapotranspiration(tt.pet)
			aet := tt.bucket.CalculateActualEvapotranspiration()

			assert.InDelta(t, tt.wantAET, aet, 1e-12)
			assert.InDelta(t, tt.wantAET, tt.bucket.ActualET, 1e-12)
			assert.InDelta(t, tt.wantDepth, tt.bucket.WaterDepth, 1e-12)
		})
	}
}

func TestBucket_PotentialETClamp(t *testing.T) {
	b := newBucket(0, 10, 10, 5, 1)
	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		b.CalculatePotentialEvapotranspiration(v)
		assert.Zero(t, b.PotentialET)
	}
}

func TestBucket_AddWater(t *testing.T) {
	b := newBucket(5, 5, 10, 15, 1)

	assert.Zero(t, b.AddWater(3))
	assert.InDelta(t, 18, b.WaterDepth, 1e-12)

	excess := b.AddWater(4)
	assert.InDelta(t, 2, excess, 1e-12)
	assert.InDelta(t, b.MaximumWaterDepth(), b.WaterDepth, 1e-12)

	assert.Zero(t, b.AddWater(-3), "negative input is ignored")
	assert.InDelta(t, 20, b.WaterDepth, 1e-12)
}

func TestBucket_Drain(t *testing.T) {
	b := newBucket(5, 5, 10, 18, 1)
	b.CharacteristicTimeConstant = 1

	release := b.Drain()
	assert.InDelta(t, 8*(1-math.Exp(-1)), release, 1e-12)
	assert.InDelta(t, 18-release, b.WaterDepth, 1e-12)

	b.WaterDepth = 9
	assert.Zero(t, b.Drain(), "no drainage below the loosely-bound level")

	b.WaterDepth = 14
	b.CharacteristicTimeConstant = 0
	assert.InDelta(t, 4, b.Drain(), 1e-12, "zero time constant releases all drainable water")
	assert.InDelta(t, 10, b.WaterDepth, 1e-12)
}

func TestBucket_Invariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for trial := 0; trial < 50; trial++ {
		b := newBucket(rng.Float64()*20, rng.Float64()*20, rng.Float64()*50, 0, rng.Float64()*3)
		b.WaterDepth = rng.Float64() * b.MaximumWaterDepth()
		b.CharacteristicTimeConstant = rng.Float64() * 10

		for step := 0; step < 200; step++ {
			b.AddWater(rng.Float64() * 15)
			b.CalculatePotentialEvapotranspiration(rng.Float64() * 5)
			b.CalculateActualEvapotranspiration()
			b.Drain()

			require.GreaterOrEqual(t, b.WaterDepth, 0.0)
			require.LessOrEqual(t, b.WaterDepth, b.MaximumWaterDepth()+1e-9)
			require.LessOrEqual(t, b.ActualET, b.PotentialET)
		}
	}
}
