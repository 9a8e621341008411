// Package hydrology implements the catchment water balance: buckets within
// land covers within subcatchments, each paired with a reach, connected by
// a reach network that fixes the order in which reaches are solved.
package hydrology

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/incawqmodels/persist/internal/params"
	"github.com/incawqmodels/persist/internal/pet"
)

// Catchment owns the HRUs of a model. Subcatchments[i] and Reaches[i] form
// HRU i.
type Catchment struct {
	logger    *slog.Logger
	clock     Clock
	estimator pet.Estimator
	workers   int

	Subcatchments []*Subcatchment
	Reaches       []*Reach
	network       *Network

	step int
}

// Option configures Build.
type Option func(*Catchment)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catchment) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEstimator sets the PET estimator used when the forcing carries no PET.
func WithEstimator(est pet.Estimator) Option {
	return func(c *Catchment) {
		if est != nil {
			c.estimator = est
		}
	}
}

// WithWorkers bounds the number of HRUs solved concurrently. Values below 1
// select one worker per CPU.
func WithWorkers(n int) Option {
	return func(c *Catchment) { c.workers = n }
}

// StepResult holds the results of every HRU for one internal step, indexed
// by HRU.
type StepResult struct {
	Subcatchments []SubcatchmentResult
	Reaches       []ReachResult
	// OutletDischarge is the summed flow of all outlet reaches in m³/s.
	OutletDischarge float64
}

// Build constructs the catchment described by ps. It fails with joined
// *params.ConfigError values when the parameter set or the reach topology
// is invalid.
func Build(ps *params.ParameterSet, opts ...Option) (*Catchment, error) {
	c := &Catchment{
		logger:    slog.New(slog.DiscardHandler),
		clock:     NewClock(ps.General),
		estimator: pet.TemperatureIndex{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = runtime.GOMAXPROCS(0)
	}

	if err := ps.Validate(); err != nil {
		return nil, err
	}
	n := ps.SubcatchmentCount()

	network, err := buildNetwork(ps.Reach.Identifier.Name, ps.Reach.General)
	if err != nil {
		return nil, err
	}
	c.network = network

	c.Subcatchments = make([]*Subcatchment, n)
	c.Reaches = make([]*Reach, n)
	for i := 0; i < n; i++ {
		c.Subcatchments[i] = c.buildSubcatchment(ps, i)
		c.Reaches[i] = c.buildReach(ps, i)
	}

	c.logger.Debug("catchment built",
		slog.Int("hrus", n),
		slog.Int("levels", len(network.Levels())),
		slog.Int("outlets", len(network.Outlets())),
		slog.Int("workers", c.workers))
	return c, nil
}

func (c *Catchment) buildSubcatchment(ps *params.ParameterSet, i int) *Subcatchment {
	g := ps.Subcatchment.General
	s := &Subcatchment{
		Name:         ps.Subcatchment.Identifier.Name[i],
		Abbreviation: ps.Subcatchment.Identifier.AbbreviationAt(i),
		Area:         g.Area[i],
		Latitude:     g.LatitudeAtOutflow[i],
		Longitude:    g.LongitudeAtOutflow[i],
		Chemistry:    newChemistryState(ps),
	}
	for l := 0; l < ps.LandCoverCount(); l++ {
		s.LandCovers = append(s.LandCovers, c.buildLandCover(ps, i, l))
	}
	return s
}

func (c *Catchment) buildLandCover(ps *params.ParameterSet, sc, l int) *LandCoverType {
	lc := ps.LandCover
	sh := ps.Subcatchment.Hydrology
	days := c.clock.DaysPerStep()

	cover := &LandCoverType{
		Name:         lc.Identifier.Name[l],
		Abbreviation: lc.Identifier.AbbreviationAt(l),
		PercentCover: ps.Subcatchment.General.LandCoverPercent[sc][l],
		FlowMatrix:   lc.Routing.FlowMatrix[l],
		Snow: Snowpack{
			Depth:           lc.Precipitation.SnowDepth[l],
			FallTemperature: lc.Precipitation.SnowfallTemperature[l] + sh.SnowfallTemperature[sc],
			MeltTemperature: lc.Precipitation.SnowmeltTemperature[l] + sh.SnowmeltTemperature[sc],
			FallMultiplier:  lc.Precipitation.SnowfallMultiplier[l] * sh.SnowfallMultiplier[sc],
			MeltRate:        lc.Precipitation.SnowmeltRate[l] * days,
		},
		RainfallMultiplier: lc.Precipitation.RainfallMultiplier[l] * sh.RainfallMultiplier[sc],
		TemperatureOffset:  lc.General.EvapotranspirationModel.TemperatureOffset[l],
		ScalingFactor:      lc.General.EvapotranspirationModel.ScalingFactor[l],
		SoilTemperature: SoilTemperatureModel{
			HeatCapacity:         lc.General.SoilTemperatureModel.HeatCapacity[l],
			ThermalConductivity:  lc.General.SoilTemperatureModel.ThermalConductivity[l],
			IceHeatCapacity:      lc.General.SoilTemperatureModel.IceHeatCapacity[l],
			SnowDampingParameter: lc.General.SoilTemperatureModel.SnowDampingParameter[l],
		},
		Chemistry: newChemistryState(ps),
	}

	for b := 0; b < ps.BucketCount(); b++ {
		bp := lc.Bucket[b]
		h := bp.Hydrology
		bucket := &Bucket{
			Name:                          ps.Bucket.Identifier.Name[b],
			Abbreviation:                  ps.Bucket.Identifier.AbbreviationAt(b),
			Surficial:                     bp.General.Surficial,
			TightlyBound:                  h.TightlyBoundWaterDepth[l],
			LooselyBound:                  h.LooselyBoundWaterDepth[l],
			FreelyDraining:                h.FreelyDrainingWaterDepth[l],
			CharacteristicTimeConstant:    h.CharacteristicTimeConstant[l] / days,
			WaterDepth:                    h.InitialWaterDepth[l],
			RelativeAreaIndex:             bp.General.RelativeAreaIndex[l],
			RelativeETIndex:               h.RelativeETIndex[l],
			ETAdjustmentFactor:            h.ETScalingExponent[l],
			SoilTemperature:               bp.General.InitialSoilTemperature,
			SoilTemperatureEffectiveDepth: bp.General.SoilTemperatureEffectiveDepth[l],
			Chemistry:                     newChemistryState(ps),
		}
		if bucket.LooselyBound == 0 {
			c.logger.Debug("bucket has no loosely-bound zone, soil-moisture limited ET disabled",
				slog.String("subcatchment", ps.Subcatchment.Identifier.Name[sc]),
				slog.String("land_cover", cover.Name),
				slog.String("bucket", bucket.Name))
		}
		cover.Buckets = append(cover.Buckets, bucket)
	}
	return cover
}

func (c *Catchment) buildReach(ps *params.ParameterSet, i int) *Reach {
	g := ps.Reach.General
	h := ps.Reach.Hydrology
	r := &Reach{
		Name:          ps.Reach.Identifier.Name[i],
		Abbreviation:  ps.Reach.Identifier.AbbreviationAt(i),
		Length:        g.Length[i],
		WidthAtBottom: g.WidthAtBottom[i],
		Slope:         g.Slope[i],
		Manning: Manning{
			A: h.Manning.A[i],
			B: h.Manning.B[i],
			C: h.Manning.C[i],
			F: h.Manning.F[i],
			N: h.Manning.N[i],
		},
		Flow:           h.InitialFlow[i],
		HasAbstraction: h.HasAbstraction[i],
		HasEffluent:    h.HasEffluent[i],
		OutflowTo:      NoOutflow,
		InflowsFrom:    c.network.Upstream(i),
		Chemistry:      newChemistryState(ps),
	}
	if len(c.network.Downstream(i)) > 0 {
		r.OutflowTo = c.network.Downstream(i)[0]
	}
	return r
}

// Clock returns the time-step configuration.
func (c *Catchment) Clock() Clock { return c.clock }

// Network returns the reach topology.
func (c *Catchment) Network() *Network { return c.network }

// Size returns the number of HRUs.
func (c *Catchment) Size() int { return len(c.Subcatchments) }

// Step solves one internal step: every subcatchment concurrently, then the
// reaches level by level. forcings is indexed by HRU. Cancelling ctx does
// not interrupt a step that has started; it is checked between steps by
// the caller.
func (c *Catchment) Step(ctx context.Context, forcings []Forcing) (StepResult, error) {
	c.step++
	res := StepResult{}

	if len(forcings) != c.Size() {
		return res, fmt.Errorf("step %d: expected forcing for %d HRUs, got %d", c.step, c.Size(), len(forcings))
	}

	subs, err := c.SolveSubcatchments(ctx, forcings)
	if err != nil {
		return res, err
	}
	res.Subcatchments = subs

	reaches, err := c.SolveReaches(ctx, forcings, subs)
	if err != nil {
		return res, err
	}
	res.Reaches = reaches

	for _, o := range c.network.Outlets() {
		res.OutletDischarge += reaches[o].Flow
	}
	return res, nil
}

// SolveSubcatchments solves every subcatchment for one step. Subcatchments
// do not depend on each other, so all of them are scheduled at once.
func (c *Catchment) SolveSubcatchments(ctx context.Context, forcings []Forcing) ([]SubcatchmentResult, error) {
	results := make([]SubcatchmentResult, c.Size())
	ids := make([]int, c.Size())
	for i := range ids {
		ids[i] = i
	}

	err := runPool(context.WithoutCancel(ctx), c.workers, ids, func(id int) error {
		r, err := c.Subcatchments[id].Solve(forcings[id], c.estimator, c.clock)
		if err != nil {
			return err
		}
		results[id] = r
		return nil
	})
	if err != nil {
		return nil, c.stepError(PhaseSubcatchment, err)
	}
	return results, nil
}

// SolveReaches solves the reaches for one step given the terrestrial export
// of each subcatchment. A reach is only scheduled once every reach in the
// previous network level has finished.
func (c *Catchment) SolveReaches(ctx context.Context, forcings []Forcing, subs []SubcatchmentResult) ([]ReachResult, error) {
	results := make([]ReachResult, c.Size())
	dt := c.clock.InternalTimeStep()

	for _, level := range c.network.Levels() {
		err := runPool(context.WithoutCancel(ctx), c.workers, level, func(id int) error {
			upstream := 0.0
			for _, u := range c.network.Upstream(id) {
				upstream += results[u].Flow
			}
			results[id] = c.Reaches[id].Solve(subs[id].Discharge, upstream, forcings[id], dt)
			return nil
		})
		if err != nil {
			return nil, c.stepError(PhaseReach, err)
		}
	}

	for id, r := range results {
		if r.Clamped {
			c.logger.Debug("abstraction exceeds reach inflow, inflow clamped to zero",
				slog.Int("step", c.step), slog.String("reach", c.Reaches[id].Name))
		}
	}
	return results, nil
}

func (c *Catchment) stepError(phase Phase, err error) error {
	se := &StepError{Step: c.step, Phase: phase, Err: err}
	var te *taskError
	if errors.As(err, &te) {
		se.HRU = c.Subcatchments[te.id].Name
		se.Err = te.err
	}
	return se
}
