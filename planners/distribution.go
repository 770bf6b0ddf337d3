package planners

import (
	"fmt"
	"math"

	"github.com/latent-rl/cem-planning/core"
)

// SamplingDistribution is the per-timestep Gaussian proposal the planners
// refine. Both slices are horizon x action-dim. The refiner rewrites it in
// place each iteration; it is re-initialized (or warm-started) at the start
// of every planning call.
type SamplingDistribution struct {
	Mean [][]float64
	Std  [][]float64
}

// NewPriorDistribution centers the proposal on the action box with a standard
// deviation of half the box extent, as the PlaNet planner initializes it.
func NewPriorDistribution(spec core.ActionSpec, horizon int) *SamplingDistribution {
	mean := make([][]float64, horizon)
	std := make([][]float64, horizon)
	mid := spec.Mid()
	half := spec.HalfRange()
	for t := 0; t < horizon; t++ {
		mean[t] = make([]float64, spec.Dim)
		std[t] = make([]float64, spec.Dim)
		copy(mean[t], mid)
		copy(std[t], half)
	}
	return &SamplingDistribution{Mean: mean, Std: std}
}

func (d *SamplingDistribution) Horizon() int {
	return len(d.Mean)
}

func (d *SamplingDistribution) Copy() *SamplingDistribution {
	out := &SamplingDistribution{
		Mean: make([][]float64, len(d.Mean)),
		Std:  make([][]float64, len(d.Std)),
	}
	for t := range d.Mean {
		out.Mean[t] = make([]float64, len(d.Mean[t]))
		copy(out.Mean[t], d.Mean[t])
	}
	for t := range d.Std {
		out.Std[t] = make([]float64, len(d.Std[t]))
		copy(out.Std[t], d.Std[t])
	}
	return out
}

// Validate fails with ErrInvalidDistribution when any standard-deviation
// component is non-positive or non-finite, or the shapes disagree.
func (d *SamplingDistribution) Validate() error {
	if len(d.Mean) != len(d.Std) || len(d.Mean) == 0 {
		return fmt.Errorf("%w: mean horizon %d, std horizon %d", ErrInvalidDistribution, len(d.Mean), len(d.Std))
	}
	for t := range d.Std {
		if len(d.Mean[t]) != len(d.Std[t]) {
			return fmt.Errorf("%w: shape mismatch at step %d", ErrInvalidDistribution, t)
		}
		for i, s := range d.Std[t] {
			if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
				return fmt.Errorf("%w: std %f at step %d dim %d", ErrInvalidDistribution, s, t, i)
			}
		}
		for i, m := range d.Mean[t] {
			if math.IsNaN(m) || math.IsInf(m, 0) {
				return fmt.Errorf("%w: mean %f at step %d dim %d", ErrInvalidDistribution, m, t, i)
			}
		}
	}
	return nil
}

// Shift advances the proposal by one real timestep for warm starting: the
// mean drops its first step and repeats the prior mean at the tail, the
// standard deviation resets to the prior so the next call still explores.
func (d *SamplingDistribution) Shift(spec core.ActionSpec) {
	horizon := len(d.Mean)
	mid := spec.Mid()
	half := spec.HalfRange()
	for t := 0; t < horizon-1; t++ {
		copy(d.Mean[t], d.Mean[t+1])
	}
	copy(d.Mean[horizon-1], mid)
	for t := 0; t < horizon; t++ {
		copy(d.Std[t], half)
	}
}

// FirstMean returns a copy of the first timestep's mean action.
func (d *SamplingDistribution) FirstMean() core.Action {
	out := make(core.Action, len(d.Mean[0]))
	copy(out, d.Mean[0])
	return out
}
