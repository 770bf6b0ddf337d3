package bowl

import (
	"fmt"

	"github.com/latent-rl/cem-planning/core"
)

// The bowl benchmark is a quadratic objective with a known optimum: every
// step is rewarded by the negated squared distance between the action taken
// and a fixed target action. The oracle is exact and stateless, which makes
// the benchmark a direct probe of the planners' distribution refinement.

type Oracle struct {
	target core.Action
}

var _ core.DynamicsOracle = &Oracle{}

func NewOracle(target core.Action) *Oracle {
	return &Oracle{target: target}
}

// Target returns the optimum every planner should converge to.
func (o *Oracle) Target() core.Action {
	return o.target.Copy()
}

func (o *Oracle) PredictRewards(_ core.LatentState, batch []core.ActionSequence) ([][]float64, error) {
	out := make([][]float64, len(batch))
	for n, seq := range batch {
		rewards := make([]float64, len(seq))
		for t, a := range seq {
			if len(a) != len(o.target) {
				return nil, fmt.Errorf("bowl: action dim %d, target dim %d", len(a), len(o.target))
			}
			v := 0.0
			for d := range a {
				diff := a[d] - o.target[d]
				v -= diff * diff
			}
			rewards[t] = v
		}
		out[n] = rewards
	}
	return out, nil
}

// DefaultTarget places the optimum off-center but inside the unit box.
func DefaultTarget(dim int) core.Action {
	target := make(core.Action, dim)
	for d := range target {
		if d%2 == 0 {
			target[d] = 0.5
		} else {
			target[d] = -0.5
		}
	}
	return target
}

type Environment struct {
	oracle *Oracle
	state  core.LatentState
}

var _ core.Environment = &Environment{}

func NewEnvironment(oracle *Oracle) *Environment {
	return &Environment{oracle: oracle}
}

func (e *Environment) Reset() (core.LatentState, error) {
	e.state = core.LatentState{0}
	return e.state.Copy(), nil
}

func (e *Environment) Step(a core.Action, _ *core.StepContext) (core.LatentState, float64, bool, error) {
	rewards, err := e.oracle.PredictRewards(e.state, []core.ActionSequence{{a}})
	if err != nil {
		return nil, 0, false, err
	}
	return e.state.Copy(), rewards[0][0], false, nil
}

type EnvironmentConstructor struct {
	Oracle *Oracle
}

var _ core.EnvironmentConstructor = &EnvironmentConstructor{}

func NewEnvironmentConstructor(oracle *Oracle) *EnvironmentConstructor {
	return &EnvironmentConstructor{Oracle: oracle}
}

func (c *EnvironmentConstructor) NewEnvironment(_ int) core.Environment {
	return NewEnvironment(c.Oracle)
}
