package planners

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/latent-rl/cem-planning/core"
)

// tableOracle replays canned reward rows, one call at a time.
type tableOracle struct {
	rows [][]float64
	err  error
}

func (o *tableOracle) PredictRewards(_ core.LatentState, batch []core.ActionSequence) ([][]float64, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.rows, nil
}

func TestScorerAggregatesDiscountedRewards(t *testing.T) {
	oracle := &tableOracle{rows: [][]float64{
		{1, 1, 1},
		{2, 0, 0},
	}}
	scorer := newTrajectoryScorer(oracle, 3, 0.5, ObjectiveReward)

	scores, err := scorer.Score(core.LatentState{0}, make([]core.ActionSequence, 2))
	require.NoError(t, err)
	require.InDelta(t, 1+0.5+0.25, scores[0], 1e-12)
	require.InDelta(t, 2.0, scores[1], 1e-12)
}

func TestScorerNegatesCostObjective(t *testing.T) {
	oracle := &tableOracle{rows: [][]float64{{1, 2}}}
	scorer := newTrajectoryScorer(oracle, 2, 1.0, ObjectiveNegCost)

	scores, err := scorer.Score(core.LatentState{0}, make([]core.ActionSequence, 1))
	require.NoError(t, err)
	require.InDelta(t, -3.0, scores[0], 1e-12)
}

func TestScorerSentinelsNonFiniteCandidates(t *testing.T) {
	oracle := &tableOracle{rows: [][]float64{
		{1, 1},
		{1, math.NaN()},
		{math.Inf(1), 1},
		{1, 1, 1}, // wrong horizon
	}}
	scorer := newTrajectoryScorer(oracle, 2, 1.0, ObjectiveReward)

	scores, err := scorer.Score(core.LatentState{0}, make([]core.ActionSequence, 4))
	require.NoError(t, err)
	require.InDelta(t, 2.0, scores[0], 1e-12)
	require.True(t, math.IsInf(scores[1], -1))
	require.True(t, math.IsInf(scores[2], -1))
	require.True(t, math.IsInf(scores[3], -1))
}

func TestScorerFailsIterationOnOracleError(t *testing.T) {
	wantErr := errors.New("accelerator unavailable")
	scorer := newTrajectoryScorer(&tableOracle{err: wantErr}, 2, 1.0, ObjectiveReward)

	_, err := scorer.Score(core.LatentState{0}, make([]core.ActionSequence, 1))
	require.ErrorIs(t, err, wantErr)
}

func TestScorerFailsIterationOnMalformedBatch(t *testing.T) {
	oracle := &tableOracle{rows: [][]float64{{1, 1}}}
	scorer := newTrajectoryScorer(oracle, 2, 1.0, ObjectiveReward)

	_, err := scorer.Score(core.LatentState{0}, make([]core.ActionSequence, 3))
	require.Error(t, err)
}
