package planners

import (
	"context"
	"time"

	erand "golang.org/x/exp/rand"

	"github.com/latent-rl/cem-planning/core"
)

// RandomPlanner picks actions uniformly within the action box. Baseline for
// benchmark comparisons.
type RandomPlanner struct {
	spec core.ActionSpec
	rand *erand.Rand
}

var _ core.Planner = &RandomPlanner{}

func NewRandomPlanner(spec core.ActionSpec, seed uint64) (*RandomPlanner, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomPlanner{
		spec: spec,
		rand: erand.New(erand.NewSource(seed)),
	}, nil
}

func (r *RandomPlanner) Plan(_ context.Context, _ core.LatentState) (core.Action, error) {
	a := make(core.Action, r.spec.Dim)
	for d := 0; d < r.spec.Dim; d++ {
		a[d] = r.spec.Low[d] + r.rand.Float64()*(r.spec.High[d]-r.spec.Low[d])
	}
	return a, nil
}

func (r *RandomPlanner) Reset() {}

type RandomConstructor struct {
	spec core.ActionSpec
	seed uint64
}

var _ core.PlannerConstructor = &RandomConstructor{}

func NewRandomConstructor(spec core.ActionSpec, seed uint64) (*RandomConstructor, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &RandomConstructor{spec: spec, seed: seed}, nil
}

func (r *RandomConstructor) NewPlanner() core.Planner {
	p, err := NewRandomPlanner(r.spec, r.seed)
	if err != nil {
		panic(err)
	}
	return p
}
