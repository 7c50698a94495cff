package kern

import (
	"math"

	"github.com/kuonanhong/gpitch/param"
	"gonum.org/v1/gonum/mat"
)

var (
	matern12 *Matern12
	_        Kernel = matern12 // Check that Matern12 respects the Kernel interface.
)

// Matern12 is the exponential kernel variance * exp(-r / lengthscale).
type Matern12 struct {
	Variance    *param.Param
	Lengthscale *param.Param
}

func NewMatern12(variance, lscale float64) *Matern12 {
	return &Matern12{
		Variance:    param.MustNew("variance", variance, param.Positive),
		Lengthscale: param.MustNew("lengthscale", lscale, param.Positive),
	}
}

func (k *Matern12) cov(r float64) float64 {
	return k.Variance.Value() * math.Exp(-r/k.Lengthscale.Value())
}

func (k *Matern12) K(x, x2 []float64) *mat.Dense {
	return stationary(x, x2, k.cov)
}

func (k *Matern12) KSym(x []float64) *mat.SymDense {
	return stationarySym(x, k.cov)
}

func (k *Matern12) Kdiag(x []float64) []float64 {
	return constantDiag(len(x), k.Variance.Value())
}

func (k *Matern12) Params() []*param.Param {
	return []*param.Param{k.Variance, k.Lengthscale}
}
