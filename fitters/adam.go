package fitters

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Adam is stochastic gradient ascent with adaptive moments. Each iteration
// draws a fresh mini-batch, so its trace is noisy.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	MaxIter      int
	Logger       *zap.Logger
}

func (a *Adam) defaults() Adam {
	c := *a
	if c.LearningRate == 0 {
		c.LearningRate = 1e-2
	}
	if c.Beta1 == 0 {
		c.Beta1 = 0.9
	}
	if c.Beta2 == 0 {
		c.Beta2 = 0.999
	}
	if c.Epsilon == 0 {
		c.Epsilon = 1e-8
	}
	return c
}

func (a *Adam) Fit(obj Objective) (*Trace, error) {
	x, logger, err := start(obj, a.Logger)
	if err != nil {
		return nil, err
	}
	logger = logger.Named("adam")
	c := a.defaults()
	trace := &Trace{}
	n := len(x)
	m1 := make([]float64, n)
	m2 := make([]float64, n)
	grad := make([]float64, n)
	for it := 1; it <= c.MaxIter; it++ {
		e := &evaluator{obj: obj, idx: obj.SampleBatch(), trace: trace}
		f, err := e.bound(x)
		if err != nil {
			return trace, fmt.Errorf("iteration %d: %w", it, err)
		}
		trace.add(f)
		if _, err := e.gradient(grad, x); err != nil {
			return trace, fmt.Errorf("iteration %d: %w", it, err)
		}
		b1 := 1 - math.Pow(c.Beta1, float64(it))
		b2 := 1 - math.Pow(c.Beta2, float64(it))
		for i, gi := range grad {
			m1[i] = c.Beta1*m1[i] + (1-c.Beta1)*gi
			m2[i] = c.Beta2*m2[i] + (1-c.Beta2)*gi*gi
			x[i] += c.LearningRate * (m1[i] / b1) / (math.Sqrt(m2[i]/b2) + c.Epsilon)
		}
		logger.Debug("iteration", zap.Int("iter", it), zap.Float64("bound", f))
	}
	if err := obj.SetFree(x); err != nil {
		return trace, err
	}
	logger.Info("fit done",
		zap.Int("iters", c.MaxIter),
		zap.Int("evals", trace.Evals),
		zap.Float64("bound", trace.Last()))
	return trace, nil
}
