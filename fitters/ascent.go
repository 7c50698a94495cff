package fitters

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

// GradientAscent follows the full-batch gradient with a backtracking step.
// A step is taken only when it does not decrease the bound, so the trace is
// non-decreasing.
type GradientAscent struct {
	Step        float64
	MaxIter     int
	MaxHalvings int
	Logger      *zap.Logger
}

func (g *GradientAscent) Fit(obj Objective) (*Trace, error) {
	x, logger, err := start(obj, g.Logger)
	if err != nil {
		return nil, err
	}
	if err := fullBatch(obj); err != nil {
		return nil, err
	}
	logger = logger.Named("ascent")
	maxStep := g.Step
	if maxStep <= 0 {
		maxStep = 1e-3
	}
	halvings := g.MaxHalvings
	if halvings <= 0 {
		halvings = 20
	}
	trace := &Trace{}
	e := &evaluator{obj: obj, idx: obj.SampleBatch(), trace: trace}
	f, err := e.bound(x)
	if err != nil {
		return trace, fmt.Errorf("initial bound: %w", err)
	}
	trace.add(f)

	step := maxStep
	grad := make([]float64, len(x))
	cand := make([]float64, len(x))
	for it := 0; it < g.MaxIter; it++ {
		if _, err := e.gradient(grad, x); err != nil {
			logger.Debug("gradient failed", zap.Int("iter", it), zap.Error(err))
			break
		}
		accepted := false
		for h := 0; h <= halvings; h++ {
			floats.AddScaledTo(cand, x, step, grad)
			fc, err := e.bound(cand)
			if err == nil && fc >= f {
				copy(x, cand)
				f = fc
				accepted = true
				break
			}
			step /= 2
		}
		if !accepted {
			logger.Debug("no ascent step", zap.Int("iter", it), zap.Float64("bound", f))
			break
		}
		trace.add(f)
		logger.Debug("iteration",
			zap.Int("iter", it),
			zap.Float64("bound", f),
			zap.Float64("step", step),
			zap.Float64("grad_norm", floats.Norm(grad, 2)))
		step = math.Min(2*step, maxStep)
	}
	if err := obj.SetFree(x); err != nil {
		return trace, err
	}
	logger.Info("fit done",
		zap.Int("iters", trace.Len()-1),
		zap.Int("evals", trace.Evals),
		zap.Float64("bound", f))
	return trace, nil
}
