package core

// DynamicsOracle is the learned forward model the planners optimize against.
// Implementations roll a batch of candidate action sequences out of the given
// latent state and return the predicted per-step rewards, one row per
// candidate in the same order as the batch.
//
// Predictions must be deterministic given the model weights. Batching is the
// contract: planners issue one call per refinement iteration and the call may
// be long-running, so implementations should evaluate the whole batch as a
// single operation rather than per-candidate.
type DynamicsOracle interface {
	PredictRewards(state LatentState, batch []ActionSequence) ([][]float64, error)
}
