package planners

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latent-rl/cem-planning/core"
)

func hierarchyTestConfig(dim int) Config {
	return Config{
		Horizon:    12,
		Iterations: 6,
		Amount:     400,
		TopK:       40,
		Seed:       23,
		Levels: []LevelConfig{
			{TimeScale: 4, EmbeddingSize: dim, Iterations: 4, Amount: 400, TopK: 40},
			{TimeScale: 1, EmbeddingSize: dim, Iterations: 6, Amount: 400, TopK: 40},
		},
	}
}

func TestHierarchicalCEMConvergesToQuadraticOptimum(t *testing.T) {
	spec := core.UnitBox(2)
	oracle := &quadraticOracle{target: core.Action{0.5, -0.5}}
	planner, err := NewHierarchicalCEMPlanner(spec, oracle, hierarchyTestConfig(2))
	require.NoError(t, err)

	action, err := planner.Plan(context.Background(), core.LatentState{0})
	require.NoError(t, err)
	require.InDelta(t, 0.5, action[0], 0.05)
	require.InDelta(t, -0.5, action[1], 0.05)
}

func TestHierarchicalCEMValidatesLevels(t *testing.T) {
	spec := core.UnitBox(2)
	oracle := &quadraticOracle{target: core.Action{0, 0}}

	cfg := hierarchyTestConfig(2)
	cfg.Levels = nil
	_, err := NewHierarchicalCEMPlanner(spec, oracle, cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	// finest level must run at time scale 1
	cfg = hierarchyTestConfig(2)
	cfg.Levels = cfg.Levels[:1]
	_, err = NewHierarchicalCEMPlanner(spec, oracle, cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	// finest level embedding must match the action dim
	cfg = hierarchyTestConfig(2)
	cfg.Levels[1].EmbeddingSize = 3
	_, err = NewHierarchicalCEMPlanner(spec, oracle, cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)

	// level time scale cannot exceed the horizon
	cfg = hierarchyTestConfig(2)
	cfg.Levels[0].TimeScale = 50
	_, err = NewHierarchicalCEMPlanner(spec, oracle, cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestHierarchyDecodeExpandsTimeScale(t *testing.T) {
	spec := core.UnitBox(1)
	oracle := &quadraticOracle{target: core.Action{0}}
	cfg := hierarchyTestConfig(1)
	cfg.Horizon = 7
	planner, err := NewHierarchicalCEMPlanner(spec, oracle, cfg)
	require.NoError(t, err)

	// abstract plan at time scale 4 over ceil(7/4) = 2 steps
	abstract := core.ActionSequence{{0.2}, {-0.6}}
	full := planner.decode(abstract, 4)
	require.Len(t, full, 7)
	for t2 := 0; t2 < 4; t2++ {
		require.InDelta(t, 0.2, full[t2][0], 1e-12)
	}
	for t2 := 4; t2 < 7; t2++ {
		require.InDelta(t, -0.6, full[t2][0], 1e-12)
	}
}

func TestHierarchyDecodeClipsAndFillsDims(t *testing.T) {
	spec := core.ActionSpec{Dim: 2, Low: []float64{-1, 0}, High: []float64{1, 4}}
	oracle := &quadraticOracle{target: core.Action{0, 2}}
	cfg := Config{
		Horizon:    4,
		Iterations: 1,
		Seed:       5,
		Levels: []LevelConfig{
			{TimeScale: 2, EmbeddingSize: 1, Iterations: 1, Amount: 10, TopK: 2},
			{TimeScale: 1, EmbeddingSize: 2, Iterations: 1, Amount: 10, TopK: 2},
		},
	}
	planner, err := NewHierarchicalCEMPlanner(spec, oracle, cfg)
	require.NoError(t, err)

	// one embedding dim: the second action dim is filled with the box center
	full := planner.decode(core.ActionSequence{{2.0}, {-2.0}}, 2)
	require.Len(t, full, 4)
	require.InDelta(t, 1.0, full[0][0], 1e-12) // clipped to high bound
	require.InDelta(t, 2.0, full[0][1], 1e-12) // mid of [0, 4]
	require.InDelta(t, -1.0, full[2][0], 1e-12)
}

func TestCompressAveragesTimeWindows(t *testing.T) {
	embSpec := core.UnitBox(1)
	mean := [][]float64{{0}, {0}}
	seed := core.ActionSequence{{0.1}, {0.3}, {0.5}, {0.7}}
	compressInto(mean, seed, 2, embSpec)
	require.InDelta(t, 0.2, mean[0][0], 1e-12)
	require.InDelta(t, 0.6, mean[1][0], 1e-12)
}

func TestHierarchicalCEMFailsWhenEveryIterationFails(t *testing.T) {
	spec := core.UnitBox(1)
	failOn := map[int]bool{}
	for i := 1; i <= 20; i++ {
		failOn[i] = true
	}
	oracle := &quadraticOracle{target: core.Action{0}, failOn: failOn}
	planner, err := NewHierarchicalCEMPlanner(spec, oracle, hierarchyTestConfig(1))
	require.NoError(t, err)

	_, err = planner.Plan(context.Background(), core.LatentState{0})
	require.ErrorIs(t, err, ErrNoViableCandidates)
}
