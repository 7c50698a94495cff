// Package quad computes Gauss–Hermite quadrature rules for expectations under
// (multivariate) normal distributions:
//
//	E[g(x)] ≈ Σ_k w_k g(x_k),  x ~ N(μ, Σ).
//
// The multivariate rule is the D-fold tensor product of the 1-D rule, so its
// cost is H^D evaluations per query point.
package quad

import (
	"errors"
	"fmt"
	"math"

	gonumquad "gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrShape               = errors.New("quad: shape mismatch")
	ErrNotPositiveDefinite = errors.New("quad: covariance is not positive definite")
	ErrOrder               = errors.New("quad: order must be at least 1")
)

// HermGauss returns the nodes and weights of the order-h Gauss–Hermite rule
// for the weight function exp(-x²). The weights sum to √π.
func HermGauss(h int) (x, w []float64) {
	if h < 1 {
		panic(ErrOrder)
	}
	x = make([]float64, h)
	w = make([]float64, h)
	if h == 1 {
		w[0] = math.SqrtPi
		return
	}
	gonumquad.Hermite{}.FixedLocations(x, w, math.Inf(-1), math.Inf(1))
	return
}

// Grid returns the h^d × d tensor-product nodes and their h^d product
// weights. The last dimension varies fastest.
func Grid(h, d int) (*mat.Dense, []float64) {
	if d < 1 {
		panic(fmt.Errorf("quad: dimension %d: %w", d, ErrShape))
	}
	x, w := HermGauss(h)
	n := 1
	for i := 0; i < d; i++ {
		n *= h
	}
	nodes := mat.NewDense(n, d, nil)
	weights := make([]float64, n)
	for k := 0; k < n; k++ {
		row := nodes.RawRowView(k)
		weight := 1.0
		rem := k
		for j := d - 1; j >= 0; j-- {
			idx := rem % h
			rem /= h
			row[j] = x[idx]
			weight *= w[idx]
		}
		weights[k] = weight
	}
	return nodes, weights
}

// MVHermGauss returns evaluation locations and weights for N multivariate
// Gauss–Hermite quadratures at once. means is N×D and covs holds one D×D
// covariance per query point. The locations are (h^D·N)×D, ordered node-major:
// row k*N+n is node k transformed for query point n,
//
//	x = μ_n + √2 L_n ξ_k,   L_n L_nᵀ = Σ_n.
//
// The h^D weights are shared by all query points and are normalised by
// π^(-D/2), so they sum to one.
func MVHermGauss(means *mat.Dense, covs []*mat.SymDense, h int) (*mat.Dense, []float64, error) {
	n, d := means.Dims()
	if len(covs) != n {
		return nil, nil, fmt.Errorf("%d means but %d covariances: %w", n, len(covs), ErrShape)
	}
	for i, cov := range covs {
		if r, _ := cov.Dims(); r != d {
			return nil, nil, fmt.Errorf("covariance %d is %d×%d, want %d×%d: %w",
				i, r, r, d, d, ErrShape)
		}
	}
	nodes, weights := Grid(h, d)
	npts := len(weights)
	locs := mat.NewDense(npts*n, d, nil)

	var chol mat.Cholesky
	var l mat.TriDense
	for i := 0; i < n; i++ {
		if ok := chol.Factorize(covs[i]); !ok {
			return nil, nil, fmt.Errorf("query point %d: %w", i, ErrNotPositiveDefinite)
		}
		chol.LTo(&l)
		mu := means.RawRowView(i)
		for k := 0; k < npts; k++ {
			xi := nodes.RawRowView(k)
			row := locs.RawRowView(k*n + i)
			for a := 0; a < d; a++ {
				s := 0.0
				for b := 0; b <= a; b++ {
					s += l.At(a, b) * xi[b]
				}
				row[a] = mu[a] + math.Sqrt2*s
			}
		}
	}
	scale := math.Pow(math.Pi, -0.5*float64(d))
	for k := range weights {
		weights[k] *= scale
	}
	return locs, weights, nil
}
