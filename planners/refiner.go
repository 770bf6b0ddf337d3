package planners

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/latent-rl/cem-planning/core"
)

// varianceFloor keeps the refit standard deviation away from zero, as the
// PlaNet planner does before taking the square root of the elite variance.
const varianceFloor = 1e-6

// eliteRefiner re-fits the sampling distribution to the top scoring
// candidates of an iteration.
type eliteRefiner struct {
	topK int
}

// Refit selects the topK highest-scoring candidates, breaking score ties by
// original sampling order (first sampled wins), and rewrites dist with the
// per-timestep mean and floored standard deviation of the elite actions.
// Candidates scored negative infinity are never part of the elite set; when
// no candidate is viable the distribution is left untouched and
// ErrNoViableCandidates is returned so the caller can fall back to the
// previous iteration's proposal.
func (r *eliteRefiner) Refit(dist *SamplingDistribution, batch []core.ActionSequence, scores []float64) error {
	viable := make([]int, 0, len(batch))
	for i, s := range scores {
		if !math.IsInf(s, -1) && !math.IsNaN(s) {
			viable = append(viable, i)
		}
	}
	if len(viable) == 0 {
		return ErrNoViableCandidates
	}

	// Stable sort on descending score keeps ties in sampling order, which
	// makes planning reproducible under non-unique scores.
	sort.SliceStable(viable, func(a, b int) bool {
		return scores[viable[a]] > scores[viable[b]]
	})
	k := r.topK
	if k > len(viable) {
		k = len(viable)
	}
	elite := viable[:k]

	horizon := dist.Horizon()
	dim := len(dist.Mean[0])
	vals := make([]float64, k)
	for t := 0; t < horizon; t++ {
		for d := 0; d < dim; d++ {
			for j, idx := range elite {
				vals[j] = batch[idx][t][d]
			}
			mean, variance := stat.MeanVariance(vals, nil)
			if k < 2 {
				variance = 0
			}
			dist.Mean[t][d] = mean
			dist.Std[t][d] = math.Sqrt(variance + varianceFloor)
		}
	}
	return nil
}

// bestViable returns the index of the highest-scoring viable candidate, ties
// broken by sampling order, or -1 when every candidate failed.
func bestViable(scores []float64) int {
	best := -1
	bestScore := math.Inf(-1)
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, -1) {
			continue
		}
		if s > bestScore {
			best = i
			bestScore = s
		}
	}
	return best
}
