package planners

import (
	"context"
	"errors"
	"sync/atomic"

	erand "golang.org/x/exp/rand"
	"go.uber.org/zap"

	"github.com/latent-rl/cem-planning/core"
)

// HierarchicalCEMPlanner runs the CEM loop over a stack of temporal levels,
// coarsest first. Each level plans over a compressed horizon in its own
// action-embedding box; candidates are decoded to full-horizon action
// sequences before scoring so every level is evaluated by the same oracle
// contract. A level's refined elite mean seeds the initialization of the next
// finer level. The finest level plans at time scale 1 in the real action
// space and supplies the committed action.
type HierarchicalCEMPlanner struct {
	cfg    Config
	spec   core.ActionSpec
	oracle core.DynamicsOracle

	samplers []*sequenceSampler
	specs    []core.ActionSpec
	scorer   *trajectoryScorer
	logger   *zap.Logger

	// warm-started full-horizon plan from the previous call
	prevPlan core.ActionSequence
}

var _ core.Planner = &HierarchicalCEMPlanner{}

func NewHierarchicalCEMPlanner(spec core.ActionSpec, oracle core.DynamicsOracle, cfg Config) (*HierarchicalCEMPlanner, error) {
	cfg, err := cfg.normalizedHierarchical(spec)
	if err != nil {
		return nil, err
	}
	p := &HierarchicalCEMPlanner{
		cfg:      cfg,
		spec:     spec,
		oracle:   oracle,
		samplers: make([]*sequenceSampler, len(cfg.Levels)),
		specs:    make([]core.ActionSpec, len(cfg.Levels)),
		scorer:   newTrajectoryScorer(oracle, cfg.Horizon, cfg.Discount, cfg.Objective),
		logger:   cfg.Logger,
	}
	for i, lvl := range cfg.Levels {
		p.specs[i] = embeddingSpec(spec, lvl.EmbeddingSize)
		p.samplers[i] = newSequenceSampler(p.specs[i], erand.NewSource(cfg.Seed+uint64(i)))
	}
	return p, nil
}

func (p *HierarchicalCEMPlanner) Reset() {
	p.prevPlan = nil
}

func (p *HierarchicalCEMPlanner) Plan(ctx context.Context, state core.LatentState) (core.Action, error) {
	seed := p.initialSeed()

	refits := 0
	for li, lvl := range p.cfg.Levels {
		levelHorizon := (p.cfg.Horizon + lvl.TimeScale - 1) / lvl.TimeScale
		dist := NewPriorDistribution(p.specs[li], levelHorizon)
		if seed != nil {
			compressInto(dist.Mean, seed, lvl.TimeScale, p.specs[li])
		}
		refiner := &eliteRefiner{topK: lvl.TopK}

		for i := 0; i < lvl.Iterations; i++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			batch, err := p.samplers[li].Draw(dist, lvl.Amount)
			if err != nil {
				return nil, err
			}
			decoded := make([]core.ActionSequence, len(batch))
			for n, seq := range batch {
				decoded[n] = p.decode(seq, lvl.TimeScale)
			}
			scores, err := p.scorer.Score(state, decoded)
			if err != nil {
				p.logger.Warn("oracle evaluation failed, keeping previous proposal",
					zap.Int("level", li), zap.Int("iteration", i), zap.Error(err))
				continue
			}
			if err := refiner.Refit(dist, batch, scores); err != nil {
				if errors.Is(err, ErrNoViableCandidates) {
					p.logger.Warn("no viable candidates, keeping previous proposal",
						zap.Int("level", li), zap.Int("iteration", i))
					continue
				}
				return nil, err
			}
			refits++
		}

		// Decoded elite mean seeds the next finer level.
		seed = p.decode(meanSequence(dist), lvl.TimeScale)
	}
	if refits == 0 {
		return nil, ErrNoViableCandidates
	}

	if p.cfg.WarmStart {
		p.prevPlan = seed
	}
	action := seed[0].Copy()
	p.spec.Clip(action)
	return action, nil
}

func (p *HierarchicalCEMPlanner) initialSeed() core.ActionSequence {
	if !p.cfg.WarmStart || p.prevPlan == nil {
		return nil
	}
	seed := make(core.ActionSequence, len(p.prevPlan))
	mid := p.spec.Mid()
	for t := 0; t < len(p.prevPlan)-1; t++ {
		seed[t] = p.prevPlan[t+1].Copy()
	}
	seed[len(seed)-1] = core.Action(mid).Copy()
	return seed
}

// decode expands a level-space sequence to a full-horizon sequence in the
// real action space: each abstract step is held for TimeScale real steps,
// embedding dims beyond the action dim are dropped and missing dims filled
// with the box center.
func (p *HierarchicalCEMPlanner) decode(seq core.ActionSequence, timeScale int) core.ActionSequence {
	out := make(core.ActionSequence, p.cfg.Horizon)
	mid := p.spec.Mid()
	shared := p.spec.Dim
	if len(seq[0]) < shared {
		shared = len(seq[0])
	}
	for t := 0; t < p.cfg.Horizon; t++ {
		j := t / timeScale
		if j >= len(seq) {
			j = len(seq) - 1
		}
		a := make(core.Action, p.spec.Dim)
		copy(a, mid)
		copy(a[:shared], seq[j][:shared])
		p.spec.Clip(a)
		out[t] = a
	}
	return out
}

// compressInto projects a full-horizon seed into a level's abstract steps by
// averaging each time window and mapping shared dims into the embedding box.
func compressInto(mean [][]float64, seed core.ActionSequence, timeScale int, embSpec core.ActionSpec) {
	shared := embSpec.Dim
	if len(seed[0]) < shared {
		shared = len(seed[0])
	}
	for j := range mean {
		lo := j * timeScale
		hi := lo + timeScale
		if hi > len(seed) {
			hi = len(seed)
		}
		if lo >= len(seed) {
			continue
		}
		for d := 0; d < shared; d++ {
			sum := 0.0
			for t := lo; t < hi; t++ {
				sum += seed[t][d]
			}
			mean[j][d] = sum / float64(hi-lo)
		}
	}
}

func meanSequence(dist *SamplingDistribution) core.ActionSequence {
	out := make(core.ActionSequence, dist.Horizon())
	for t := range dist.Mean {
		a := make(core.Action, len(dist.Mean[t]))
		copy(a, dist.Mean[t])
		out[t] = a
	}
	return out
}

// embeddingSpec bounds a level's embedding box: shared dims inherit the real
// action bounds, extra embedding dims span [-1, 1].
func embeddingSpec(spec core.ActionSpec, embDim int) core.ActionSpec {
	low := make([]float64, embDim)
	high := make([]float64, embDim)
	for d := 0; d < embDim; d++ {
		if d < spec.Dim {
			low[d] = spec.Low[d]
			high[d] = spec.High[d]
		} else {
			low[d] = -1
			high[d] = 1
		}
	}
	return core.ActionSpec{Dim: embDim, Low: low, High: high}
}

type HierarchicalCEMConstructor struct {
	spec      core.ActionSpec
	oracle    core.DynamicsOracle
	cfg       Config
	instances atomic.Uint64
}

var _ core.PlannerConstructor = &HierarchicalCEMConstructor{}

func NewHierarchicalCEMConstructor(spec core.ActionSpec, oracle core.DynamicsOracle, cfg Config) (*HierarchicalCEMConstructor, error) {
	if _, err := cfg.normalizedHierarchical(spec); err != nil {
		return nil, err
	}
	return &HierarchicalCEMConstructor{spec: spec, oracle: oracle, cfg: cfg}, nil
}

func (c *HierarchicalCEMConstructor) NewPlanner() core.Planner {
	cfg := c.cfg
	if cfg.Seed != 0 {
		cfg.Seed += c.instances.Add(1)
	}
	p, err := NewHierarchicalCEMPlanner(c.spec, c.oracle, cfg)
	if err != nil {
		panic(err)
	}
	return p
}
