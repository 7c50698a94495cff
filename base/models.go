package base

import (
	"errors"
)

var (
	ErrShape    = errors.New("base: shape mismatch")
	ErrNoSource = errors.New("base: no such source")
	ErrEmpty    = errors.New("base: empty input")
)

// Model is a variational model whose evidence lower bound is maximised over
// a flat vector of free parameters.
type Model interface {
	// Number of free values in the optimisation vector.
	NumFree() int

	// Append the current free values to dst.
	Free(dst []float64) []float64

	// Set all free values at once.
	SetFree(x []float64) error

	// Number of data points, and of points in every batch.
	NumData() int
	BatchSize() int

	// Draw the data indices of the next mini-batch.
	SampleBatch() []int

	// Lower bound on the log marginal likelihood, estimated on a batch.
	BoundOn(idx []int) (float64, error)
}

var _ Model = (*LooGP)(nil)
