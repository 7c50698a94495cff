package lik

import (
	"fmt"
	"math"

	"github.com/kuonanhong/gpitch/param"
	"github.com/kuonanhong/gpitch/quad"
	"github.com/kuonanhong/gpitch/utils"
	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"
)

const singleOrder = 20

var (
	looSingle *LooSingle
	_         Likelihood = looSingle
)

// LooSingle is the one-source likelihood over (f, g). Like Loo it rejects
// marginal variances that are not positive. Its expectation is
// exact in f; only the first two moments of σ(g) need quadrature:
//
//	E[log p] = -½ [ (y² - 2y μ_f E[σ] + (v_f + μ_f²) E[σ²]) / variance + log 2π + log variance ].
type LooSingle struct {
	Variance *param.Param
	Squash   Squash
}

func (l *LooSingle) NumLatent() int {
	return 2
}

func (l *LooSingle) LogDensity(f []float64, y float64) float64 {
	return utils.LogNormal(y, l.Squash.Apply(f[1])*f[0], l.Variance.Value())
}

func (l *LooSingle) VariationalExpectations(fmu, fvar *mat.Dense, y []float64) ([]float64, error) {
	n, err := checkShapes(fmu, fvar, y, 2)
	if err != nil {
		return nil, err
	}
	x, w := quad.HermGauss(singleOrder)
	for k := range w {
		w[k] /= math.SqrtPi
	}
	variance := l.Variance.Value()
	logNorm := math.Log(2*math.Pi) + math.Log(variance)
	s1 := make([]float64, len(x))
	s2 := make([]float64, len(x))
	out := make([]float64, n)
	for i := range out {
		mf, mg := fmu.At(i, 0), fmu.At(i, 1)
		vf, vg := fvar.At(i, 0), fvar.At(i, 1)
		if vf <= 0 || vg <= 0 {
			return nil, fmt.Errorf("lik: point %d variances (%v, %v): %w", i, vf, vg, quad.ErrNotPositiveDefinite)
		}
		scale := math.Sqrt(2 * vg)
		for k, node := range x {
			s := l.Squash.Apply(scale*node + mg)
			s1[k] = s
			s2[k] = s * s
		}
		e1 := vek.Dot(s1, w)
		e2 := vek.Dot(s2, w)
		out[i] = -0.5 * ((y[i]*y[i]-2*y[i]*mf*e1+(vf+mf*mf)*e2)/variance + logNorm)
	}
	return out, nil
}

func (l *LooSingle) Params() []*param.Param {
	return []*param.Param{l.Variance}
}
