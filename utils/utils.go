package utils

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

const log2Pi = 1.8378770664093453 // log(2π)

// Lower triangular identity matrix.
func EyeTri(n int) *mat.TriDense {
	out := mat.NewTriDense(n, mat.Lower, nil)
	for i := 0; i < n; i++ {
		out.SetTri(i, i, 1)
	}
	return out
}

// Symmetric matrix with diag on its diagonal.
func Diag(diag []float64) *mat.SymDense {
	out := mat.NewSymDense(len(diag), nil)
	for i, v := range diag {
		out.SetSym(i, i, v)
	}
	return out
}

// Logistic sigmoid 1 / (1 + exp(-x)). The two branches keep exp from
// overflowing for large |x|.
func Logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

func NormalCdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// Log density of y under Normal(mean, variance).
func LogNormal(y, mean, variance float64) float64 {
	d := y - mean
	return -0.5 * (log2Pi + math.Log(variance) + d*d/variance)
}

// Evenly spaced time stamps t_i = i / rate, i = 0..n-1.
func Linspace(n int, rate float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) / rate
	}
	return out
}
