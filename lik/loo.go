package lik

import (
	"fmt"

	"github.com/kuonanhong/gpitch/param"
	"github.com/kuonanhong/gpitch/quad"
	"github.com/kuonanhong/gpitch/utils"
	"github.com/viterin/vek"
	"gonum.org/v1/gonum/mat"
)

const (
	looDim   = 4
	looOrder = 5 // 625 evaluations per data point
)

var (
	loo *Loo
	_   Likelihood = loo
)

// Loo is the two-source likelihood over (f1, g1, f2, g2).
type Loo struct {
	Variance *param.Param
	Squash   Squash
}

func (l *Loo) NumLatent() int {
	return looDim
}

func (l *Loo) mean(f []float64) float64 {
	return l.Squash.Apply(f[1])*f[0] + l.Squash.Apply(f[3])*f[2]
}

func (l *Loo) LogDensity(f []float64, y float64) float64 {
	return utils.LogNormal(y, l.mean(f), l.Variance.Value())
}

// VariationalExpectations integrates the log density against the product of
// the four marginals with a 4-D tensor Gauss–Hermite rule. Correlations
// between the latents are ignored: each point's covariance is diagonal.
func (l *Loo) VariationalExpectations(fmu, fvar *mat.Dense, y []float64) ([]float64, error) {
	n, err := checkShapes(fmu, fvar, y, looDim)
	if err != nil {
		return nil, err
	}
	covs := make([]*mat.SymDense, n)
	for i := range covs {
		covs[i] = utils.Diag(fvar.RawRowView(i))
	}
	locs, w, err := quad.MVHermGauss(fmu, covs, looOrder)
	if err != nil {
		return nil, fmt.Errorf("lik: %w", err)
	}
	// evals[n, k] = log p(y_n | node k of point n)
	evals := mat.NewDense(n, len(w), nil)
	for k := range w {
		for i := 0; i < n; i++ {
			evals.Set(i, k, l.LogDensity(locs.RawRowView(k*n+i), y[i]))
		}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = vek.Dot(evals.RawRowView(i), w)
	}
	return out, nil
}

func (l *Loo) Params() []*param.Param {
	return []*param.Param{l.Variance}
}
