package kern

import (
	"github.com/kuonanhong/gpitch/param"
	"gonum.org/v1/gonum/mat"
)

var (
	constant *Constant
	_        Kernel = constant // Check that Constant respects the Kernel interface.
)

type Constant struct {
	Variance *param.Param
}

func NewConstant(variance float64) *Constant {
	return &Constant{
		Variance: param.MustNew("variance", variance, param.Positive),
	}
}

func (k *Constant) cov(float64) float64 {
	return k.Variance.Value()
}

func (k *Constant) K(x, x2 []float64) *mat.Dense {
	return stationary(x, x2, k.cov)
}

func (k *Constant) KSym(x []float64) *mat.SymDense {
	return stationarySym(x, k.cov)
}

func (k *Constant) Kdiag(x []float64) []float64 {
	return constantDiag(len(x), k.Variance.Value())
}

func (k *Constant) Params() []*param.Param {
	return []*param.Param{k.Variance}
}
