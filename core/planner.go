package core

import "context"

// Planner selects a single action for the current latent state by optimizing
// imagined rollouts through a DynamicsOracle. One Plan call corresponds to
// one real-environment timestep; the planning horizon is internal lookahead
// only.
//
// Planners are not safe for concurrent use: a planner instance may carry a
// warm-started proposal distribution between calls and must be owned by a
// single agent. Cancellation through ctx is honored between refinement
// iterations, never mid-oracle-call.
type Planner interface {
	Plan(ctx context.Context, state LatentState) (Action, error)
	// Reset discards any state carried between planning calls, such as a
	// warm-started proposal distribution.
	Reset()
}

type PlannerConstructor interface {
	NewPlanner() Planner
}
