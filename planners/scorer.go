package planners

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/latent-rl/cem-planning/core"
)

// trajectoryScorer aggregates the oracle's predicted per-step rewards into
// one scalar per candidate. Scoring is deterministic given the state, the
// candidates and the oracle. The single batched PredictRewards call is the
// dominant cost of a planning iteration.
type trajectoryScorer struct {
	oracle    core.DynamicsOracle
	horizon   int
	objective Objective
	weights   []float64
}

func newTrajectoryScorer(oracle core.DynamicsOracle, horizon int, discount float64, objective Objective) *trajectoryScorer {
	weights := make([]float64, horizon)
	w := 1.0
	for t := 0; t < horizon; t++ {
		weights[t] = w
		w *= discount
	}
	return &trajectoryScorer{
		oracle:    oracle,
		horizon:   horizon,
		objective: objective,
		weights:   weights,
	}
}

// Score returns one score per candidate, in batch order. A candidate whose
// predicted rewards contain a non-finite value scores negative infinity so
// the refiner drops it instead of the whole planning call aborting. A hard
// oracle error or a malformed batch fails the entire iteration.
func (s *trajectoryScorer) Score(state core.LatentState, batch []core.ActionSequence) ([]float64, error) {
	rewards, err := s.oracle.PredictRewards(state, batch)
	if err != nil {
		return nil, fmt.Errorf("oracle evaluation: %w", err)
	}
	if len(rewards) != len(batch) {
		return nil, fmt.Errorf("oracle evaluation: got %d reward rows for %d candidates", len(rewards), len(batch))
	}

	scores := make([]float64, len(batch))
	for i, row := range rewards {
		if len(row) != s.horizon || !finiteRow(row) {
			scores[i] = math.Inf(-1)
			continue
		}
		v := floats.Dot(s.weights, row)
		if s.objective == ObjectiveNegCost {
			v = -v
		}
		scores[i] = v
	}
	return scores, nil
}

func finiteRow(row []float64) bool {
	for _, r := range row {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return false
		}
	}
	return true
}
