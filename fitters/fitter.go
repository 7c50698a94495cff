// Package fitters maximises the evidence lower bound of a variational model
// over its free parameters.
package fitters

import (
	"errors"
	"fmt"
	"math"

	"github.com/kuonanhong/gpitch/base"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
)

// Step of the central finite differences used for every gradient.
const fdStep = 1e-5

var (
	ErrNotFinite = errors.New("fitters: bound is not finite")
	ErrNoFree    = errors.New("fitters: model has no free parameters")
	// Returned by fitters that keep one batch for the whole run.
	ErrNotFullBatch = errors.New("fitters: deterministic fit needs full batches")
)

// Objective is what a fitter maximises. *base.LooGP satisfies it.
type Objective interface {
	base.Model
}

type Fitter interface {
	Fit(obj Objective) (*Trace, error)
}

var (
	_ Fitter = (*GradientAscent)(nil)
	_ Fitter = (*Adam)(nil)
	_ Fitter = (*LBFGS)(nil)
)

// Trace holds the bound after every accepted iteration, starting with the
// initial value.
type Trace struct {
	Bounds []float64
	Evals  int
}

func (t *Trace) add(b float64) { t.Bounds = append(t.Bounds, b) }

// Last returns the most recent bound, or NaN for an empty trace.
func (t *Trace) Last() float64 {
	if len(t.Bounds) == 0 {
		return math.NaN()
	}
	return t.Bounds[len(t.Bounds)-1]
}

func (t *Trace) Len() int { return len(t.Bounds) }

// evaluator binds an objective to one batch.
type evaluator struct {
	obj   Objective
	idx   []int
	trace *Trace
}

func (e *evaluator) bound(x []float64) (float64, error) {
	e.trace.Evals++
	if err := e.obj.SetFree(x); err != nil {
		return 0, err
	}
	b, err := e.obj.BoundOn(e.idx)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(b) || math.IsInf(b, 0) {
		return 0, fmt.Errorf("bound %v: %w", b, ErrNotFinite)
	}
	return b, nil
}

// gradient of the bound at x. SetFree mutates the model, so the differences
// are evaluated one after the other.
func (e *evaluator) gradient(dst, x []float64) ([]float64, error) {
	var firstErr error
	f := func(u []float64) float64 {
		b, err := e.bound(u)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return math.NaN()
		}
		return b
	}
	dst = fd.Gradient(dst, f, x, &fd.Settings{
		Formula: fd.Central,
		Step:    fdStep,
	})
	return dst, firstErr
}

func fullBatch(obj Objective) error {
	if b, n := obj.BatchSize(), obj.NumData(); b < n {
		return fmt.Errorf("batch of %d from %d points: %w", b, n, ErrNotFullBatch)
	}
	return nil
}

func start(obj Objective, logger *zap.Logger) ([]float64, *zap.Logger, error) {
	if obj.NumFree() == 0 {
		return nil, nil, ErrNoFree
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return obj.Free(nil), logger, nil
}
