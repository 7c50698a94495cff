// Package lik implements the leave-one-out observation model: an observed
// sample is a noisy sum of components, each scaled by a squashed envelope,
//
//	y = σ(g1)·f1 + σ(g2)·f2 + ε,   ε ~ N(0, variance).
package lik

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kuonanhong/gpitch/param"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrShape   = errors.New("lik: shape mismatch")
	ErrVariant = errors.New("lik: unknown variant")
	ErrSquash  = errors.New("lik: unknown squash function")
)

type Likelihood interface {
	// Number of latent functions per data point, ordered f1, g1[, f2, g2].
	NumLatent() int

	// Log density of y given the latent values f at one data point.
	LogDensity(f []float64, y float64) float64

	// Expected log density E_q[log p(y_n | f_n)] for every data point, where
	// q factorises over latents with marginal means fmu and variances fvar
	// (both N × NumLatent).
	VariationalExpectations(fmu, fvar *mat.Dense, y []float64) ([]float64, error)

	Params() []*param.Param
}

// Variant selects the likelihood implementation at construction time.
type Variant uint8

const (
	// Two component/envelope pairs; brute-force 4-D quadrature.
	VariantJoint Variant = iota
	// One pair; closed form in f, 1-D quadrature in g.
	VariantSingle
)

func (v Variant) String() string {
	switch v {
	case VariantJoint:
		return "joint"
	case VariantSingle:
		return "single"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "joint", "":
		return VariantJoint, nil
	case "single":
		return VariantSingle, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrVariant)
}

// New builds the likelihood for variant with the given initial noise variance.
func New(variant Variant, noiseVariance float64, squash Squash) (Likelihood, error) {
	variance, err := param.New("noise_variance", noiseVariance, param.Positive)
	if err != nil {
		return nil, err
	}
	switch variant {
	case VariantJoint:
		return &Loo{Variance: variance, Squash: squash}, nil
	case VariantSingle:
		return &LooSingle{Variance: variance, Squash: squash}, nil
	}
	return nil, fmt.Errorf("%v: %w", variant, ErrVariant)
}

func checkShapes(fmu, fvar *mat.Dense, y []float64, d int) (int, error) {
	n, c := fmu.Dims()
	vn, vc := fvar.Dims()
	if c != d || vc != d {
		return 0, fmt.Errorf("got %d mean and %d variance columns, want %d: %w", c, vc, d, ErrShape)
	}
	if vn != n || len(y) != n {
		return 0, fmt.Errorf("%d means, %d variances, %d observations: %w", n, vn, len(y), ErrShape)
	}
	return n, nil
}
