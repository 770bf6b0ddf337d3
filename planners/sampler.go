package planners

import (
	erand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/latent-rl/cem-planning/core"
)

// sequenceSampler draws candidate action sequences from a sampling
// distribution by elementwise Gaussian sampling, clipped to the action box.
// It is a pure function of the distribution and the RNG state.
type sequenceSampler struct {
	spec   core.ActionSpec
	normal distuv.Normal
}

func newSequenceSampler(spec core.ActionSpec, src erand.Source) *sequenceSampler {
	return &sequenceSampler{
		spec:   spec,
		normal: distuv.Normal{Mu: 0, Sigma: 1, Src: src},
	}
}

// Draw produces amount independent sequences of length dist.Horizon(). All
// actions share one flat backing array filled in a single pass, so there is
// no per-sample control flow in the hot loop.
func (s *sequenceSampler) Draw(dist *SamplingDistribution, amount int) ([]core.ActionSequence, error) {
	if err := dist.Validate(); err != nil {
		return nil, err
	}
	horizon := dist.Horizon()
	dim := s.spec.Dim

	flat := make([]float64, amount*horizon*dim)
	for i := range flat {
		flat[i] = s.normal.Rand()
	}

	out := make([]core.ActionSequence, amount)
	for n := 0; n < amount; n++ {
		seq := make(core.ActionSequence, horizon)
		base := n * horizon * dim
		for t := 0; t < horizon; t++ {
			a := core.Action(flat[base+t*dim : base+(t+1)*dim : base+(t+1)*dim])
			for d := 0; d < dim; d++ {
				a[d] = a[d]*dist.Std[t][d] + dist.Mean[t][d]
			}
			s.spec.Clip(a)
			seq[t] = a
		}
		out[n] = seq
	}
	return out, nil
}
