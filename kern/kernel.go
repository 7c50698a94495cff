// Package kern implements covariance functions over one-dimensional inputs
// (time stamps).
package kern

import (
	"math"

	"github.com/kuonanhong/gpitch/param"
	"gonum.org/v1/gonum/mat"
)

type Kernel interface {
	// Cross-covariance matrix K(x, x2), len(x) × len(x2).
	K(x, x2 []float64) *mat.Dense

	// Covariance matrix K(x, x).
	KSym(x []float64) *mat.SymDense

	// Diagonal of K(x, x).
	Kdiag(x []float64) []float64

	// Hyperparameters, including fixed ones.
	Params() []*param.Param
}

// Fill the cross-covariance of a stationary kernel from its profile
// cov(|x - x'|).
func stationary(x, x2 []float64, cov func(r float64) float64) *mat.Dense {
	out := mat.NewDense(len(x), len(x2), nil)
	for i, a := range x {
		row := out.RawRowView(i)
		for j, b := range x2 {
			row[j] = cov(math.Abs(a - b))
		}
	}
	return out
}

func stationarySym(x []float64, cov func(r float64) float64) *mat.SymDense {
	out := mat.NewSymDense(len(x), nil)
	for i, a := range x {
		for j := i; j < len(x); j++ {
			out.SetSym(i, j, cov(math.Abs(a-x[j])))
		}
	}
	return out
}

func constantDiag(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
