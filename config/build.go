package config

import (
	"fmt"
	"strings"

	"github.com/kuonanhong/gpitch/base"
	"github.com/kuonanhong/gpitch/fitters"
	"github.com/kuonanhong/gpitch/kern"
	"github.com/kuonanhong/gpitch/lik"
	"github.com/kuonanhong/gpitch/synth"
	"go.uber.org/zap"
)

// Harmonic frequencies of p, in Hz.
func (p Pitch) Frequencies() []float64 {
	return synth.Source{Fundamental: p.Fundamental, Energies: p.Energies}.Frequencies()
}

// SynthSpec describes the mixture the experiment separates.
func (c *Config) SynthSpec() synth.Spec {
	spec := synth.Spec{
		N:             c.Data.Points,
		SampleRate:    c.Data.SampleRate,
		NoiseVariance: c.Data.NoiseVariance,
		Seed:          c.Data.Seed,
	}
	for _, p := range c.Data.Pitches {
		spec.Sources = append(spec.Sources, synth.Source{
			Fundamental:         p.Fundamental,
			Energies:            p.Energies,
			EnvelopeVariance:    c.Data.EnvelopeVariance,
			EnvelopeLengthscale: c.Data.EnvelopeLengthscale,
		})
	}
	return spec
}

func (c *Config) Options(logger *zap.Logger) (base.Options, error) {
	variant, err := lik.ParseVariant(c.Model.Variant)
	if err != nil {
		return base.Options{}, err
	}
	squash, err := lik.ParseSquash(c.Model.Squash)
	if err != nil {
		return base.Options{}, err
	}
	return base.Options{
		Whiten:        c.Model.Whiten,
		MinibatchSize: c.Model.MinibatchSize,
		Variant:       variant,
		Squash:        squash,
		NoiseVariance: c.Model.NoiseVariance,
		Jitter:        c.Model.Jitter,
		Seed:          c.Model.Seed,
		TrainInducing: c.Model.TrainInducing,
		Logger:        logger,
	}, nil
}

// BuildKernels returns one component and one envelope kernel per pitch. The
// component partials sit on the pitch harmonics.
func (c *Config) BuildKernels() (kf, kg []kern.Kernel, err error) {
	energies := make([][]float64, len(c.Data.Pitches))
	freqs := make([][]float64, len(c.Data.Pitches))
	for i, p := range c.Data.Pitches {
		energies[i], freqs[i] = p.Energies, p.Frequencies()
	}
	return c.BuildKernelsWith(energies, freqs)
}

// BuildKernelsWith is BuildKernels with explicit partials for each pitch.
func (c *Config) BuildKernelsWith(energies, freqs [][]float64) (kf, kg []kern.Kernel, err error) {
	if len(energies) != len(freqs) {
		return nil, nil, fmt.Errorf("%d energy and %d frequency sets: %w", len(energies), len(freqs), ErrInvalid)
	}
	comp := c.Kernels.Component
	for i := range energies {
		var k kern.Kernel
		switch strings.ToLower(comp.Kind) {
		case "mercer":
			m, err := kern.NewMercer(comp.Variance, energies[i], freqs[i])
			if err != nil {
				return nil, nil, fmt.Errorf("pitch %d: %w", i, err)
			}
			m.FixPartials(!comp.FitEnergies, !comp.FitFreqs)
			m.Variance.Fixed = comp.FixVariance
			k = m
		case "spectral":
			s, err := kern.NewSpectralMixture(comp.Variance, comp.Lengthscale, energies[i], freqs[i])
			if err != nil {
				return nil, nil, fmt.Errorf("pitch %d: %w", i, err)
			}
			s.FixPartials(!comp.FitEnergies, !comp.FitFreqs)
			s.Variance.Fixed = comp.FixVariance
			s.Lengthscale.Fixed = comp.FixLengthscale
			k = s
		default:
			return nil, nil, fmt.Errorf("%q: %w", comp.Kind, ErrKind)
		}
		if comp.Bias > 0 {
			k = kern.NewAdd(k, kern.NewConstant(comp.Bias))
		}
		env, err := c.envelopeKernel()
		if err != nil {
			return nil, nil, err
		}
		kf = append(kf, k)
		kg = append(kg, env)
	}
	return kf, kg, nil
}

func (c *Config) envelopeKernel() (kern.Kernel, error) {
	e := c.Kernels.Envelope
	switch strings.ToLower(e.Kind) {
	case "matern32", "":
		k := kern.NewMatern32(e.Variance, e.Lengthscale)
		k.Variance.Fixed = e.FixVariance
		k.Lengthscale.Fixed = e.FixLengthscale
		return k, nil
	case "matern12":
		k := kern.NewMatern12(e.Variance, e.Lengthscale)
		k.Variance.Fixed = e.FixVariance
		k.Lengthscale.Fixed = e.FixLengthscale
		return k, nil
	}
	return nil, fmt.Errorf("%q: %w", e.Kind, ErrKind)
}

func (c *Config) Fitter(logger *zap.Logger) (fitters.Fitter, error) {
	switch strings.ToLower(c.Fit.Method) {
	case "ascent":
		return &fitters.GradientAscent{
			Step:        c.Fit.Step,
			MaxIter:     c.Fit.MaxIter,
			MaxHalvings: c.Fit.MaxHalvings,
			Logger:      logger,
		}, nil
	case "adam":
		return &fitters.Adam{
			LearningRate: c.Fit.LearningRate,
			MaxIter:      c.Fit.MaxIter,
			Logger:       logger,
		}, nil
	case "lbfgs":
		return &fitters.LBFGS{MaxIter: c.Fit.MaxIter, Logger: logger}, nil
	}
	return nil, fmt.Errorf("%q: %w", c.Fit.Method, ErrMethod)
}
