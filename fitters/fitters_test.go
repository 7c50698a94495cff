package fitters

import (
	"math"
	"testing"

	"github.com/kuonanhong/gpitch/base"
	"github.com/kuonanhong/gpitch/kern"
	"github.com/kuonanhong/gpitch/lik"
	"github.com/kuonanhong/gpitch/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newModel fits one or two pitched sources drawn from the model's own prior
// family, with the model noise matching the data noise.
func newModel(t *testing.T, variant lik.Variant, minibatch int) *base.LooGP {
	t.Helper()
	const noise = 0.1
	fundamentals := []float64{5, 12}
	if variant == lik.VariantSingle {
		fundamentals = fundamentals[:1]
	}
	spec := synth.Spec{N: 100, SampleRate: 100, NoiseVariance: noise, Seed: 3}
	var kf, kg []kern.Kernel
	for _, f0 := range fundamentals {
		spec.Sources = append(spec.Sources, synth.Source{
			Fundamental:         f0,
			Energies:            []float64{1},
			EnvelopeVariance:    1,
			EnvelopeLengthscale: 0.3,
		})
		k, err := kern.NewSpectralMixture(1, 0.5, []float64{1}, []float64{f0})
		require.NoError(t, err)
		kf = append(kf, k)
		kg = append(kg, kern.NewMatern32(1, 0.3))
	}
	data, err := synth.Generate(spec)
	require.NoError(t, err)
	m, err := base.New(data.X, data.Y, kf, kg, synth.Decimate(data.X, 20), base.Options{
		Whiten:        true,
		MinibatchSize: minibatch,
		Variant:       variant,
		NoiseVariance: noise,
		Seed:          3,
	})
	require.NoError(t, err)
	return m
}

func fullBound(t *testing.T, m *base.LooGP) float64 {
	t.Helper()
	idx := make([]int, m.NumData())
	for i := range idx {
		idx[i] = i
	}
	b, err := m.BoundOn(idx)
	require.NoError(t, err)
	return b
}

func TestGradientAscentIsMonotone(t *testing.T) {
	m := newModel(t, lik.VariantJoint, 0)
	fitter := &GradientAscent{Step: 1e-2, MaxIter: 3, MaxHalvings: 30}
	trace, err := fitter.Fit(m)
	require.NoError(t, err)
	require.Greater(t, trace.Len(), 1)
	for i := 1; i < trace.Len(); i++ {
		assert.GreaterOrEqual(t, trace.Bounds[i], trace.Bounds[i-1])
	}
	assert.Greater(t, trace.Last(), trace.Bounds[0])
	assert.InDelta(t, trace.Last(), fullBound(t, m), 1e-9)
}

func TestAdamIsReproducible(t *testing.T) {
	run := func() *Trace {
		m := newModel(t, lik.VariantSingle, 20)
		trace, err := (&Adam{MaxIter: 5}).Fit(m)
		require.NoError(t, err)
		return trace
	}
	t1, t2 := run(), run()
	require.Equal(t, 5, t1.Len())
	assert.Equal(t, t1.Bounds, t2.Bounds)
	for _, b := range t1.Bounds {
		assert.False(t, math.IsNaN(b) || math.IsInf(b, 0))
	}
}

func TestLBFGSImproves(t *testing.T) {
	m := newModel(t, lik.VariantSingle, 0)
	initial := fullBound(t, m)
	trace, err := (&LBFGS{MaxIter: 5}).Fit(m)
	require.NoError(t, err)
	require.Greater(t, trace.Len(), 0)
	assert.InDelta(t, initial, trace.Bounds[0], 1e-9)
	for _, b := range trace.Bounds {
		assert.False(t, math.IsNaN(b) || math.IsInf(b, 0))
	}
	assert.GreaterOrEqual(t, fullBound(t, m), initial)
}

func TestDeterministicFittersNeedFullBatches(t *testing.T) {
	m := newModel(t, lik.VariantSingle, 20)
	before := m.Free(nil)
	_, err := (&GradientAscent{MaxIter: 1}).Fit(m)
	assert.ErrorIs(t, err, ErrNotFullBatch)
	_, err = (&LBFGS{MaxIter: 1}).Fit(m)
	assert.ErrorIs(t, err, ErrNotFullBatch)
	assert.Equal(t, before, m.Free(nil))
}

type frozen struct{ base.Model }

func (frozen) NumFree() int { return 0 }

func TestNothingToFit(t *testing.T) {
	_, err := (&GradientAscent{MaxIter: 1}).Fit(frozen{})
	assert.ErrorIs(t, err, ErrNoFree)
	_, err = (&Adam{MaxIter: 1}).Fit(frozen{})
	assert.ErrorIs(t, err, ErrNoFree)
	_, err = (&LBFGS{MaxIter: 1}).Fit(frozen{})
	assert.ErrorIs(t, err, ErrNoFree)
}

func TestEmptyTrace(t *testing.T) {
	var tr Trace
	assert.True(t, math.IsNaN(tr.Last()))
	assert.Equal(t, 0, tr.Len())
}
