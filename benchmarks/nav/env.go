package nav

import (
	"errors"
	"fmt"
	"math"

	"github.com/latent-rl/cem-planning/core"
)

// The navigation benchmark is a 2D point agent steered by heading changes.
// The latent state is the agent's pose (x, y, heading); the single action
// dimension in [-1, 1] turns the agent by up to a quarter circle and the
// agent advances a fixed step along the mid-angle of the turn. The oracle
// runs the same dynamics, standing in for a learned model.

const (
	StateDim  = 3
	ActionDim = 1
)

var ErrBadState = errors.New("state must be a pose (x, y, heading)")

type Config struct {
	GoalX, GoalY  float64
	GoalRadius    float64
	StepSize      float64
	SlackReward   float64
	SuccessReward float64
	DistanceScale float64
}

func DefaultConfig() Config {
	return Config{
		GoalX:         2.0,
		GoalY:         1.0,
		GoalRadius:    0.2,
		StepSize:      0.25,
		SlackReward:   -0.01,
		SuccessReward: 10.0,
		DistanceScale: 1.0,
	}
}

func Spec() core.ActionSpec {
	return core.UnitBox(ActionDim)
}

// advance applies one heading change to a pose: the heading turns by
// action * pi/2 and the agent moves stepSize along the mid-angle.
func advance(pose core.LatentState, action float64, stepSize float64) core.LatentState {
	turn := action * math.Pi / 2
	mid := pose[2] + turn/2
	return core.LatentState{
		pose[0] + math.Cos(mid)*stepSize,
		pose[1] + math.Sin(mid)*stepSize,
		pose[2] + turn,
	}
}

func (c Config) distanceToGoal(pose core.LatentState) float64 {
	return math.Hypot(c.GoalX-pose[0], c.GoalY-pose[1])
}

// reward is the dense shaping used both by the environment and the oracle:
// a slack penalty plus the scaled decrease in goal distance, with a bonus on
// reaching the goal radius.
func (c Config) reward(prevDist, dist float64) float64 {
	r := c.SlackReward + c.DistanceScale*(prevDist-dist)
	if dist <= c.GoalRadius {
		r += c.SuccessReward
	}
	return r
}

// Oracle predicts per-step rewards by rolling candidates through the true
// pose dynamics.
type Oracle struct {
	cfg Config
}

var _ core.DynamicsOracle = &Oracle{}

func NewOracle(cfg Config) *Oracle {
	return &Oracle{cfg: cfg}
}

func (o *Oracle) PredictRewards(state core.LatentState, batch []core.ActionSequence) ([][]float64, error) {
	if len(state) != StateDim {
		return nil, fmt.Errorf("%w: got %d dims", ErrBadState, len(state))
	}
	out := make([][]float64, len(batch))
	for n, seq := range batch {
		rewards := make([]float64, len(seq))
		pose := state.Copy()
		prevDist := o.cfg.distanceToGoal(pose)
		for t, a := range seq {
			pose = advance(pose, a[0], o.cfg.StepSize)
			dist := o.cfg.distanceToGoal(pose)
			rewards[t] = o.cfg.reward(prevDist, dist)
			prevDist = dist
		}
		out[n] = rewards
	}
	return out, nil
}

type Environment struct {
	cfg      Config
	pose     core.LatentState
	prevDist float64
}

var _ core.Environment = &Environment{}

func NewEnvironment(cfg Config) *Environment {
	return &Environment{cfg: cfg}
}

func (e *Environment) Reset() (core.LatentState, error) {
	e.pose = core.LatentState{0, 0, 0}
	e.prevDist = e.cfg.distanceToGoal(e.pose)
	return e.pose.Copy(), nil
}

func (e *Environment) Step(a core.Action, _ *core.StepContext) (core.LatentState, float64, bool, error) {
	if len(a) != ActionDim || !a.IsFinite() {
		return nil, 0, false, fmt.Errorf("nav: bad action %v", a)
	}
	e.pose = advance(e.pose, a[0], e.cfg.StepSize)
	dist := e.cfg.distanceToGoal(e.pose)
	reward := e.cfg.reward(e.prevDist, dist)
	e.prevDist = dist
	return e.pose.Copy(), reward, dist <= e.cfg.GoalRadius, nil
}

type EnvironmentConstructor struct {
	Config Config
}

var _ core.EnvironmentConstructor = &EnvironmentConstructor{}

func NewEnvironmentConstructor(cfg Config) *EnvironmentConstructor {
	return &EnvironmentConstructor{Config: cfg}
}

func (c *EnvironmentConstructor) NewEnvironment(_ int) core.Environment {
	return NewEnvironment(c.Config)
}
