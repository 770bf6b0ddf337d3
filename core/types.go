package core

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidActionSpec = errors.New("invalid action spec")

// LatentState is the caller-owned belief vector produced by the learned
// model. Planners read it for the duration of one planning call and never
// mutate it.
type LatentState []float64

func (s LatentState) Copy() LatentState {
	out := make(LatentState, len(s))
	copy(out, s)
	return out
}

// Action is a single continuous control vector.
type Action []float64

func (a Action) Copy() Action {
	out := make(Action, len(a))
	copy(out, a)
	return out
}

// IsFinite reports whether every component of the action is finite.
func (a Action) IsFinite() bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ActionSequence is a horizon-length sequence of actions, one per future
// timestep.
type ActionSequence []Action

// ActionSpec describes a bounded continuous action box.
type ActionSpec struct {
	Dim  int
	Low  []float64
	High []float64
}

// UnitBox returns a spec with all dimensions bounded by [-1, 1].
func UnitBox(dim int) ActionSpec {
	low := make([]float64, dim)
	high := make([]float64, dim)
	for i := 0; i < dim; i++ {
		low[i] = -1
		high[i] = 1
	}
	return ActionSpec{Dim: dim, Low: low, High: high}
}

func (s ActionSpec) Validate() error {
	if s.Dim <= 0 {
		return fmt.Errorf("%w: dim %d", ErrInvalidActionSpec, s.Dim)
	}
	if len(s.Low) != s.Dim || len(s.High) != s.Dim {
		return fmt.Errorf("%w: bounds do not match dim %d", ErrInvalidActionSpec, s.Dim)
	}
	for i := 0; i < s.Dim; i++ {
		if math.IsNaN(s.Low[i]) || math.IsInf(s.Low[i], 0) || math.IsNaN(s.High[i]) || math.IsInf(s.High[i], 0) {
			return fmt.Errorf("%w: non-finite bound at dim %d", ErrInvalidActionSpec, i)
		}
		if s.Low[i] >= s.High[i] {
			return fmt.Errorf("%w: low %f >= high %f at dim %d", ErrInvalidActionSpec, s.Low[i], s.High[i], i)
		}
	}
	return nil
}

// Mid returns the center of the box per dimension.
func (s ActionSpec) Mid() []float64 {
	out := make([]float64, s.Dim)
	for i := 0; i < s.Dim; i++ {
		out[i] = (s.High[i] + s.Low[i]) / 2
	}
	return out
}

// HalfRange returns half the extent of the box per dimension.
func (s ActionSpec) HalfRange() []float64 {
	out := make([]float64, s.Dim)
	for i := 0; i < s.Dim; i++ {
		out[i] = (s.High[i] - s.Low[i]) / 2
	}
	return out
}

// Clip clamps the action into the box, in place.
func (s ActionSpec) Clip(a Action) {
	for i := range a {
		if a[i] < s.Low[i] {
			a[i] = s.Low[i]
		} else if a[i] > s.High[i] {
			a[i] = s.High[i]
		}
	}
}
