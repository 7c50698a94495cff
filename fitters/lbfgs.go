package fitters

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"
)

// LBFGS minimises the negative bound on a single batch with gonum's
// limited-memory BFGS.
type LBFGS struct {
	MaxIter int
	Logger  *zap.Logger
}

// recorder keeps the bound at every major iteration. The initial bound is
// added before the run: on InitIteration the location is not evaluated yet.
type recorder struct {
	trace *Trace
}

func (r *recorder) Init() error { return nil }

func (r *recorder) Record(loc *optimize.Location, op optimize.Operation, _ *optimize.Stats) error {
	if op == optimize.MajorIteration {
		r.trace.add(-loc.F)
	}
	return nil
}

func (l *LBFGS) Fit(obj Objective) (*Trace, error) {
	x0, logger, err := start(obj, l.Logger)
	if err != nil {
		return nil, err
	}
	if err := fullBatch(obj); err != nil {
		return nil, err
	}
	logger = logger.Named("lbfgs")
	trace := &Trace{}
	e := &evaluator{obj: obj, idx: obj.SampleBatch(), trace: trace}
	f0, err := e.bound(x0)
	if err != nil {
		return trace, fmt.Errorf("initial bound: %w", err)
	}
	trace.add(f0)

	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			b, err := e.bound(x)
			if err != nil {
				// Let the line search back off.
				logger.Debug("probe rejected", zap.Error(err))
				return math.Inf(1)
			}
			return -b
		},
		Grad: func(grad, x []float64) {
			if _, err := e.gradient(grad, x); err != nil {
				evalErr = err
			}
			for i := range grad {
				grad[i] = -grad[i]
			}
		},
		Status: func() (optimize.Status, error) {
			if evalErr != nil {
				return optimize.Failure, evalErr
			}
			return optimize.NotTerminated, nil
		},
	}
	settings := &optimize.Settings{
		MajorIterations: l.MaxIter,
		Recorder:        &recorder{trace: trace},
	}
	res, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if res == nil {
		return trace, err
	}
	// The last evaluation may have been a rejected line-search probe.
	if serr := obj.SetFree(res.X); serr != nil {
		return trace, serr
	}
	if err != nil && !stalled(err) {
		return trace, err
	}
	logger.Info("fit done",
		zap.Stringer("status", res.Status),
		zap.Int("iters", res.MajorIterations),
		zap.Int("evals", trace.Evals),
		zap.Float64("bound", -res.F))
	return trace, nil
}

// stalled reports line-search failures that only mean the finite-difference
// gradient ran out of precision.
func stalled(err error) bool {
	return errors.Is(err, optimize.ErrNoProgress) ||
		errors.Is(err, optimize.ErrNonDescentDirection) ||
		errors.Is(err, optimize.ErrLinesearcherFailure)
}
