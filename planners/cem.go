package planners

import (
	"context"
	"errors"
	"sync/atomic"

	erand "golang.org/x/exp/rand"
	"go.uber.org/zap"

	"github.com/latent-rl/cem-planning/core"
)

// CEMPlanner implements cross-entropy-method planning: a fixed number of
// sample -> score -> refit rounds over a Gaussian proposal distribution per
// future timestep, committing to the first timestep of the final mean.
type CEMPlanner struct {
	cfg    Config
	spec   core.ActionSpec
	oracle core.DynamicsOracle

	sampler *sequenceSampler
	scorer  *trajectoryScorer
	refiner *eliteRefiner
	logger  *zap.Logger

	// warm-started proposal from the previous planning call, nil after Reset
	prev *SamplingDistribution
}

var _ core.Planner = &CEMPlanner{}

func NewCEMPlanner(spec core.ActionSpec, oracle core.DynamicsOracle, cfg Config) (*CEMPlanner, error) {
	cfg, err := cfg.normalizedCEM(spec)
	if err != nil {
		return nil, err
	}
	return &CEMPlanner{
		cfg:     cfg,
		spec:    spec,
		oracle:  oracle,
		sampler: newSequenceSampler(spec, erand.NewSource(cfg.Seed)),
		scorer:  newTrajectoryScorer(oracle, cfg.Horizon, cfg.Discount, cfg.Objective),
		refiner: &eliteRefiner{topK: cfg.TopK},
		logger:  cfg.Logger,
	}, nil
}

func (p *CEMPlanner) Reset() {
	p.prev = nil
}

func (p *CEMPlanner) Plan(ctx context.Context, state core.LatentState) (core.Action, error) {
	dist := p.initialDistribution()

	refits := 0
	for i := 0; i < p.cfg.Iterations; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		batch, err := p.sampler.Draw(dist, p.cfg.Amount)
		if err != nil {
			return nil, err
		}
		scores, err := p.scorer.Score(state, batch)
		if err != nil {
			p.logger.Warn("oracle evaluation failed, keeping previous proposal",
				zap.Int("iteration", i), zap.Error(err))
			continue
		}
		if err := p.refiner.Refit(dist, batch, scores); err != nil {
			if errors.Is(err, ErrNoViableCandidates) {
				p.logger.Warn("no viable candidates, keeping previous proposal",
					zap.Int("iteration", i))
				continue
			}
			return nil, err
		}
		refits++
		if best := bestViable(scores); best >= 0 {
			p.logger.Debug("refit proposal",
				zap.Int("iteration", i), zap.Float64("best_score", scores[best]))
		}
	}
	if refits == 0 {
		return nil, ErrNoViableCandidates
	}

	if p.cfg.WarmStart {
		p.prev = dist.Copy()
	}
	action := dist.FirstMean()
	p.spec.Clip(action)
	return action, nil
}

func (p *CEMPlanner) initialDistribution() *SamplingDistribution {
	if p.cfg.WarmStart && p.prev != nil {
		d := p.prev.Copy()
		d.Shift(p.spec)
		return d
	}
	return NewPriorDistribution(p.spec, p.cfg.Horizon)
}

// CEMConstructor builds identically configured planners for parallel
// experiment workers. The configuration is validated once here so NewPlanner
// cannot fail.
type CEMConstructor struct {
	spec      core.ActionSpec
	oracle    core.DynamicsOracle
	cfg       Config
	instances atomic.Uint64
}

var _ core.PlannerConstructor = &CEMConstructor{}

func NewCEMConstructor(spec core.ActionSpec, oracle core.DynamicsOracle, cfg Config) (*CEMConstructor, error) {
	if _, err := cfg.normalizedCEM(spec); err != nil {
		return nil, err
	}
	return &CEMConstructor{spec: spec, oracle: oracle, cfg: cfg}, nil
}

func (c *CEMConstructor) NewPlanner() core.Planner {
	cfg := c.cfg
	if cfg.Seed != 0 {
		// distinct stream per instance, still reproducible from the base seed
		cfg.Seed += c.instances.Add(1)
	}
	p, err := NewCEMPlanner(c.spec, c.oracle, cfg)
	if err != nil {
		panic(err)
	}
	return p
}
