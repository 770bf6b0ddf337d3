package planners

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latent-rl/cem-planning/core"
)

func particleTestConfig() Config {
	return Config{
		Horizon:       6,
		Iterations:    8,
		TopK:          30,
		Seed:          31,
		StateSamples:  3,
		ActionSamples: 300,
		StateNoise:    0.05,
	}
}

func TestParticleConvergesToQuadraticOptimum(t *testing.T) {
	spec := core.UnitBox(2)
	oracle := &quadraticOracle{target: core.Action{0.5, -0.5}}
	planner, err := NewParticlePlanner(spec, oracle, particleTestConfig())
	require.NoError(t, err)

	action, err := planner.Plan(context.Background(), core.LatentState{0, 0})
	require.NoError(t, err)
	require.InDelta(t, 0.5, action[0], 0.05)
	require.InDelta(t, -0.5, action[1], 0.05)
}

func TestParticleOracleWorkScalesWithStateSamplesSquared(t *testing.T) {
	spec := core.UnitBox(1)
	oracle := &quadraticOracle{target: core.Action{0.2}}
	cfg := particleTestConfig()
	cfg.Iterations = 4
	cfg.StateSamples = 3
	planner, err := NewParticlePlanner(spec, oracle, cfg)
	require.NoError(t, err)

	_, err = planner.Plan(context.Background(), core.LatentState{0})
	require.NoError(t, err)
	// one batched call per jittered start: iterations * state_samples^2
	require.Equal(t, 4*3*3, oracle.calls)
}

func TestParticleFailsWhenEveryIterationFails(t *testing.T) {
	spec := core.UnitBox(1)
	cfg := particleTestConfig()
	failOn := map[int]bool{}
	for i := 1; i <= cfg.Iterations*cfg.StateSamples*cfg.StateSamples; i++ {
		failOn[i] = true
	}
	oracle := &quadraticOracle{target: core.Action{0}, failOn: failOn}
	planner, err := NewParticlePlanner(spec, oracle, cfg)
	require.NoError(t, err)

	_, err = planner.Plan(context.Background(), core.LatentState{0})
	require.ErrorIs(t, err, ErrNoViableCandidates)
}

func TestParticleConfigValidation(t *testing.T) {
	spec := core.UnitBox(1)
	oracle := &quadraticOracle{target: core.Action{0}}

	cfg := particleTestConfig()
	cfg.StateSamples = 0
	_, err := NewParticlePlanner(spec, oracle, cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg = particleTestConfig()
	cfg.ActionSamples = 0
	_, err = NewParticlePlanner(spec, oracle, cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	cfg = particleTestConfig()
	cfg.StateNoise = -1
	_, err = NewParticlePlanner(spec, oracle, cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParticleZeroNoiseStillPlans(t *testing.T) {
	spec := core.UnitBox(1)
	oracle := &quadraticOracle{target: core.Action{-0.3}}
	cfg := particleTestConfig()
	cfg.StateSamples = 1
	cfg.StateNoise = 0
	planner, err := NewParticlePlanner(spec, oracle, cfg)
	require.NoError(t, err)

	action, err := planner.Plan(context.Background(), core.LatentState{0})
	require.NoError(t, err)
	require.InDelta(t, -0.3, action[0], 0.05)
}
