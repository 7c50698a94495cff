package kern

import (
	"math"
	"testing"

	"github.com/kuonanhong/gpitch/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var inputs = []float64{0, 0.013, 0.021, 0.05, 0.11, 0.2}

func minEigen(t *testing.T, s *mat.SymDense) float64 {
	t.Helper()
	var eig mat.EigenSym
	require.True(t, eig.Factorize(s, false))
	vals := eig.Values(nil)
	min := math.Inf(1)
	for _, v := range vals {
		min = math.Min(min, v)
	}
	return min
}

func checkConsistent(t *testing.T, k Kernel) {
	t.Helper()
	full := k.K(inputs, inputs)
	sym := k.KSym(inputs)
	diag := k.Kdiag(inputs)
	for i := range inputs {
		assert.InDelta(t, full.At(i, i), diag[i], 1e-12)
		for j := range inputs {
			assert.InDelta(t, full.At(i, j), sym.At(i, j), 1e-12)
			assert.InDelta(t, full.At(i, j), full.At(j, i), 1e-12)
		}
	}
	r, c := k.K(inputs, inputs[:2]).Dims()
	assert.Equal(t, len(inputs), r)
	assert.Equal(t, 2, c)
	assert.Greater(t, minEigen(t, sym), -1e-10)
}

func spectralKernel(t *testing.T) *SpectralMixture {
	k, err := NewSpectralMixture(2, 0.1, []float64{0.7, 0.3}, []float64{20, 40})
	require.NoError(t, err)
	return k
}

func mercerKernel(t *testing.T) *Mercer {
	k, err := NewMercer(2, []float64{0.7, 0.3}, []float64{20, 40})
	require.NoError(t, err)
	return k
}

func TestKernelsConsistent(t *testing.T) {
	kernels := map[string]Kernel{
		"matern12": NewMatern12(1.5, 0.1),
		"matern32": NewMatern32(1.5, 0.1),
		"constant": NewConstant(0.4),
		"spectral": spectralKernel(t),
		"mercer":   mercerKernel(t),
		"add":      NewAdd(NewMatern32(1, 0.3), NewConstant(0.1)),
	}
	for name, k := range kernels {
		t.Run(name, func(t *testing.T) { checkConsistent(t, k) })
	}
}

func TestMatern(t *testing.T) {
	m12 := NewMatern12(2, 0.5)
	assert.InDelta(t, 2*math.Exp(-0.2), m12.K([]float64{0}, []float64{0.1}).At(0, 0), 1e-15)

	m32 := NewMatern32(2, 0.5)
	a := math.Sqrt(3) * 0.1 / 0.5
	assert.InDelta(t, 2*(1+a)*math.Exp(-a), m32.K([]float64{0.1}, []float64{0}).At(0, 0), 1e-15)
}

func TestSpectralMixtureFormula(t *testing.T) {
	k := spectralKernel(t)
	r := 0.013
	want := 2 * math.Exp(-r/0.1) * (0.7*math.Cos(2*math.Pi*20*r) + 0.3*math.Cos(2*math.Pi*40*r))
	assert.InDelta(t, want, k.K([]float64{0.5}, []float64{0.5 + r}).At(0, 0), 1e-14)
	assert.InDelta(t, 2.0, k.Kdiag([]float64{1})[0], 1e-15)
}

func TestMercerMatchesCosineSum(t *testing.T) {
	// Without the envelope the explicit-lag and feature forms coincide.
	k := mercerKernel(t)
	got := k.K(inputs, inputs)
	for i, a := range inputs {
		for j, b := range inputs {
			r := a - b
			want := 2 * (0.7*math.Cos(2*math.Pi*20*r) + 0.3*math.Cos(2*math.Pi*40*r))
			assert.InDelta(t, want, got.At(i, j), 1e-12)
		}
	}
	rows, cols := k.Features(inputs).Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, len(inputs), cols)
}

func TestMercerLowRank(t *testing.T) {
	k, err := NewMercer(1, []float64{1}, []float64{5})
	require.NoError(t, err)
	x := []float64{0, 0.01, 0.03, 0.07, 0.1}
	var svd mat.SVD
	require.True(t, svd.Factorize(k.KSym(x), mat.SVDNone))
	vals := svd.Values(nil)
	rank := 0
	for _, v := range vals {
		if v > 1e-10*vals[0] {
			rank++
		}
	}
	assert.Equal(t, 2, rank)
}

func TestPartialsFixedByDefault(t *testing.T) {
	k := spectralKernel(t)
	free := param.Trainable(k.Params())
	assert.Equal(t, []*param.Param{k.Variance, k.Lengthscale}, free)

	k.FixPartials(false, true)
	assert.Len(t, param.Trainable(k.Params()), 4)
	k.FixPartials(false, false)
	assert.Len(t, param.Trainable(k.Params()), 6)

	m := mercerKernel(t)
	assert.Equal(t, []*param.Param{m.Variance}, param.Trainable(m.Params()))
}

func TestPartialsValidation(t *testing.T) {
	_, err := NewSpectralMixture(1, 1, []float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrPartials)
	_, err = NewMercer(1, nil, nil)
	assert.ErrorIs(t, err, ErrPartials)
	_, err = NewSpectralMixture(1, 1, []float64{-1}, []float64{1})
	assert.ErrorIs(t, err, param.ErrNotPositive)
	_, err = NewSpectralMixture(1, 0, []float64{1}, []float64{1})
	assert.ErrorIs(t, err, param.ErrNotPositive)
}

func TestAddFlattensAndSharesParams(t *testing.T) {
	shared := NewConstant(1)
	inner := NewAdd(NewMatern12(1, 1), shared)
	outer := NewAdd(inner, shared)
	assert.Len(t, outer.Parts(), 3)
	assert.Len(t, outer.Params(), 3, "shared constant counted once")
	assert.InDelta(t, 3.0, outer.Kdiag([]float64{0})[0], 1e-15)
}
