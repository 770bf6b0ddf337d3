package planners

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	erand "golang.org/x/exp/rand"

	"github.com/latent-rl/cem-planning/core"
)

func testSpec() core.ActionSpec {
	return core.ActionSpec{
		Dim:  2,
		Low:  []float64{-1, -2},
		High: []float64{1, 0.5},
	}
}

func TestSamplerDrawCountAndBounds(t *testing.T) {
	spec := testSpec()
	sampler := newSequenceSampler(spec, erand.NewSource(42))
	dist := NewPriorDistribution(spec, 7)

	batch, err := sampler.Draw(dist, 100)
	require.NoError(t, err)
	require.Len(t, batch, 100)
	for _, seq := range batch {
		require.Len(t, seq, 7)
		for _, a := range seq {
			require.Len(t, []float64(a), spec.Dim)
			for d := 0; d < spec.Dim; d++ {
				require.GreaterOrEqual(t, a[d], spec.Low[d])
				require.LessOrEqual(t, a[d], spec.High[d])
			}
		}
	}
}

func TestSamplerRejectsDegenerateStd(t *testing.T) {
	spec := testSpec()
	sampler := newSequenceSampler(spec, erand.NewSource(1))

	for _, bad := range []float64{0, -0.5, math.NaN(), math.Inf(1)} {
		dist := NewPriorDistribution(spec, 3)
		dist.Std[1][0] = bad
		_, err := sampler.Draw(dist, 10)
		require.ErrorIs(t, err, ErrInvalidDistribution)
	}
}

func TestSamplerRejectsNonFiniteMean(t *testing.T) {
	spec := testSpec()
	sampler := newSequenceSampler(spec, erand.NewSource(1))

	dist := NewPriorDistribution(spec, 3)
	dist.Mean[0][1] = math.NaN()
	_, err := sampler.Draw(dist, 10)
	require.ErrorIs(t, err, ErrInvalidDistribution)
}

func TestSamplerIsDeterministicGivenSeed(t *testing.T) {
	spec := testSpec()
	dist := NewPriorDistribution(spec, 4)

	a, err := newSequenceSampler(spec, erand.NewSource(7)).Draw(dist, 5)
	require.NoError(t, err)
	b, err := newSequenceSampler(spec, erand.NewSource(7)).Draw(dist, 5)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
