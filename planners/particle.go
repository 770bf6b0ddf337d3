package planners

import (
	"context"
	"math"
	"sort"
	"sync/atomic"

	erand "golang.org/x/exp/rand"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/latent-rl/cem-planning/core"
)

// ParticlePlanner marginalizes over state-sampling noise: every refinement
// iteration draws StateSamples perturbations of the initial latent state and
// scores each candidate from StateSamples jittered copies of each
// perturbation, so oracle work per iteration is
// StateSamples^2 * ActionSamples * horizon. The hard elite refit of plain CEM
// is replaced by weighted re-sampling of the elite candidates before the
// moments are re-fit.
type ParticlePlanner struct {
	cfg    Config
	spec   core.ActionSpec
	oracle core.DynamicsOracle

	sampler *sequenceSampler
	scorer  *trajectoryScorer
	noise   distuv.Normal
	src     *erand.Rand
	logger  *zap.Logger

	prev *SamplingDistribution
}

var _ core.Planner = &ParticlePlanner{}

func NewParticlePlanner(spec core.ActionSpec, oracle core.DynamicsOracle, cfg Config) (*ParticlePlanner, error) {
	cfg, err := cfg.normalizedParticle(spec)
	if err != nil {
		return nil, err
	}
	src := erand.NewSource(cfg.Seed)
	return &ParticlePlanner{
		cfg:     cfg,
		spec:    spec,
		oracle:  oracle,
		sampler: newSequenceSampler(spec, src),
		scorer:  newTrajectoryScorer(oracle, cfg.Horizon, cfg.Discount, cfg.Objective),
		noise:   distuv.Normal{Mu: 0, Sigma: 1, Src: src},
		src:     erand.New(erand.NewSource(cfg.Seed + 1)),
		logger:  cfg.Logger,
	}, nil
}

func (p *ParticlePlanner) Reset() {
	p.prev = nil
}

func (p *ParticlePlanner) Plan(ctx context.Context, state core.LatentState) (core.Action, error) {
	dist := p.initialDistribution()

	refits := 0
	for i := 0; i < p.cfg.Iterations; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		candidates, err := p.sampler.Draw(dist, p.cfg.ActionSamples)
		if err != nil {
			return nil, err
		}
		scores, err := p.marginalScores(state, candidates)
		if err != nil {
			p.logger.Warn("oracle evaluation failed, keeping previous proposal",
				zap.Int("iteration", i), zap.Error(err))
			continue
		}
		if err := p.resampleRefit(dist, candidates, scores); err != nil {
			p.logger.Warn("no viable candidates, keeping previous proposal",
				zap.Int("iteration", i))
			continue
		}
		refits++
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

// marginalScores averages each candidate's score over all perturbed starting
// states. A candidate that fails from any start scores negative infinity.
func (p *ParticlePlanner) marginalScores(state core.LatentState, candidates []core.ActionSequence) ([]float64, error) {
	n := p.cfg.StateSamples
	total := make([]float64, len(candidates))
	failed := make([]bool, len(candidates))

	for s1 := 0; s1 < n; s1++ {
		particle := p.perturb(state)
		for s2 := 0; s2 < n; s2++ {
			start := p.perturb(particle)
			scores, err := p.scorer.Score(start, candidates)
			if err != nil {
				return nil, err
			}
			for c, s := range scores {
				if math.IsInf(s, -1) {
					failed[c] = true
					continue
				}
				total[c] += s
			}
		}
	}

	evals := float64(n * n)
	for c := range total {
		if failed[c] {
			total[c] = math.Inf(-1)
		} else {
			total[c] /= evals
		}
	}
	return total, nil
}

func (p *ParticlePlanner) perturb(state core.LatentState) core.LatentState {
	out := state.Copy()
	if p.cfg.StateNoise == 0 {
		return out
	}
	for i := range out {
		out[i] += p.noise.Rand() * p.cfg.StateNoise
	}
	return out
}

// resampleRefit keeps the TopK candidates, re-samples ActionSamples draws
// among them proportionally to exponentiated score and re-fits the proposal
// moments on the resampled multiset.
func (p *ParticlePlanner) resampleRefit(dist *SamplingDistribution, candidates []core.ActionSequence, scores []float64) error {
	viable := make([]int, 0, len(candidates))
	for i, s := range scores {
		if !math.IsInf(s, -1) && !math.IsNaN(s) {
			viable = append(viable, i)
		}
	}
	if len(viable) == 0 {
		return ErrNoViableCandidates
	}
	sort.SliceStable(viable, func(a, b int) bool {
		return scores[viable[a]] > scores[viable[b]]
	})
	if len(viable) > p.cfg.TopK {
		viable = viable[:p.cfg.TopK]
	}

	best := scores[viable[0]]
	weights := make([]float64, len(viable))
	for j, idx := range viable {
		weights[j] = math.Exp(scores[idx] - best)
	}
	w := sampleuv.NewWeighted(weights, p.src)

	resampled := make([]int, p.cfg.ActionSamples)
	for j := range resampled {
		k, ok := w.Take()
		if !ok {
			return ErrNoViableCandidates
		}
		resampled[j] = viable[k]
		w.ReweightAll(weights)
	}

	horizon := dist.Horizon()
	dim := p.spec.Dim
	vals := make([]float64, len(resampled))
	for t := 0; t < horizon; t++ {
		for d := 0; d < dim; d++ {
			for j, idx := range resampled {
				vals[j] = candidates[idx][t][d]
			}
			mean, variance := stat.MeanVariance(vals, nil)
			if len(vals) < 2 {
				variance = 0
			}
			dist.Mean[t][d] = mean
			dist.Std[t][d] = math.Sqrt(variance + varianceFloor)
		}
	}
	return nil
}

func (p *ParticlePlanner) initialDistribution() *SamplingDistribution {
	if p.cfg.WarmStart && p.prev != nil {
		d := p.prev.Copy()
		d.Shift(p.spec)
		return d
	}
	return NewPriorDistribution(p.spec, p.cfg.Horizon)
}

type ParticleConstructor struct {
	spec      core.ActionSpec
	oracle    core.DynamicsOracle
	cfg       Config
	instances atomic.Uint64
}

var _ core.PlannerConstructor = &ParticleConstructor{}

func NewParticleConstructor(spec core.ActionSpec, oracle core.DynamicsOracle, cfg Config) (*ParticleConstructor, error) {
	if _, err := cfg.normalizedParticle(spec); err != nil {
		return nil, err
	}
	return &ParticleConstructor{spec: spec, oracle: oracle, cfg: cfg}, nil
}

func (c *ParticleConstructor) NewPlanner() core.Planner {
	cfg := c.cfg
	if cfg.Seed != 0 {
		cfg.Seed += c.instances.Add(1)
	}
	p, err := NewParticlePlanner(c.spec, c.oracle, cfg)
	if err != nil {
		panic(err)
	}
	return p
}
