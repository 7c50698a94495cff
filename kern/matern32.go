package kern

import (
	"math"

	"github.com/kuonanhong/gpitch/param"
	"gonum.org/v1/gonum/mat"
)

var (
	matern32 *Matern32
	_        Kernel = matern32 // Check that Matern32 respects the Kernel interface.
)

// Matern32 is the once-differentiable Matérn kernel, the usual choice for
// envelopes.
type Matern32 struct {
	Variance    *param.Param
	Lengthscale *param.Param
}

func NewMatern32(variance, lscale float64) *Matern32 {
	return &Matern32{
		Variance:    param.MustNew("variance", variance, param.Positive),
		Lengthscale: param.MustNew("lengthscale", lscale, param.Positive),
	}
}

func (k *Matern32) cov(r float64) float64 {
	a := math.Sqrt(3) * r / k.Lengthscale.Value()
	return k.Variance.Value() * (1 + a) * math.Exp(-a)
}

func (k *Matern32) K(x, x2 []float64) *mat.Dense {
	return stationary(x, x2, k.cov)
}

func (k *Matern32) KSym(x []float64) *mat.SymDense {
	return stationarySym(x, k.cov)
}

func (k *Matern32) Kdiag(x []float64) []float64 {
	return constantDiag(len(x), k.Variance.Value())
}

func (k *Matern32) Params() []*param.Param {
	return []*param.Param{k.Variance, k.Lengthscale}
}
