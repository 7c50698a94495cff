package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kuonanhong/gpitch/batch"
	"github.com/kuonanhong/gpitch/fitters"
	"github.com/kuonanhong/gpitch/kern"
	"github.com/kuonanhong/gpitch/lik"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParseOverlaysDefault(t *testing.T) {
	cfg, err := Parse([]byte(`
model:
  variant: single
  squash: probit
  minibatch_size: 30
data:
  pitches:
    - fundamental: 220
      energies: [1, 0.5]
fit:
  method: adam
`))
	require.NoError(t, err)
	assert.Equal(t, "single", cfg.Model.Variant)
	assert.Equal(t, 30, cfg.Model.MinibatchSize)
	assert.Len(t, cfg.Data.Pitches, 1)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().Data.SampleRate, cfg.Data.SampleRate)
	assert.Equal(t, Default().Window.Size, cfg.Window.Size)
	assert.True(t, cfg.Model.Whiten)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("window:\n  size: 50\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Window.Size)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = Parse([]byte("model: [1, 2"))
	assert.Error(t, err)
}

func TestValidateRejects(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"points", func(c *Config) { c.Data.Points = 0 }, ErrInvalid},
		{"rate", func(c *Config) { c.Data.SampleRate = -1 }, ErrInvalid},
		{"energy", func(c *Config) { c.Data.Pitches[0].Energies = []float64{0} }, ErrInvalid},
		{"pitch count", func(c *Config) { c.Data.Pitches = c.Data.Pitches[:1] }, ErrInvalid},
		{"variant", func(c *Config) { c.Model.Variant = "triple" }, lik.ErrVariant},
		{"squash", func(c *Config) { c.Model.Squash = "tanh" }, lik.ErrSquash},
		{"noise", func(c *Config) { c.Model.NoiseVariance = 0 }, ErrInvalid},
		{"inducing", func(c *Config) { c.Model.InducingEvery = 0 }, ErrInvalid},
		{"batch", func(c *Config) { c.Fit.Method = "adam"; c.Model.MinibatchSize = 101 }, batch.ErrBatchTooLarge},
		{"short tail", func(c *Config) { c.Fit.Method = "adam"; c.Data.Points = 430; c.Model.MinibatchSize = 40 }, batch.ErrBatchTooLarge},
		{"kind", func(c *Config) { c.Kernels.Component.Kind = "rbf" }, ErrKind},
		{"lengthscale", func(c *Config) { c.Kernels.Envelope.Lengthscale = 0 }, ErrInvalid},
		{"method", func(c *Config) { c.Fit.Method = "newton" }, ErrMethod},
		{"iterations", func(c *Config) { c.Fit.MaxIter = -1 }, ErrInvalid},
		{"envelope kind", func(c *Config) { c.Kernels.Envelope.Kind = "rbf" }, ErrKind},
		{"bias", func(c *Config) { c.Kernels.Component.Bias = -1 }, ErrInvalid},
		{"ascent on batches", func(c *Config) { c.Model.MinibatchSize = 50 }, fitters.ErrNotFullBatch},
		{"lbfgs on batches", func(c *Config) { c.Fit.Method = "lbfgs"; c.Model.MinibatchSize = 50 }, fitters.ErrNotFullBatch},
	} {
		cfg := Default()
		tc.mutate(cfg)
		assert.ErrorIs(t, cfg.Validate(), tc.want, tc.name)
	}
}

func TestWindows(t *testing.T) {
	cfg := Default()
	count, shortest := cfg.Windows()
	assert.Equal(t, 4, count)
	assert.Equal(t, 100, shortest)

	cfg.Data.Points = 430
	count, shortest = cfg.Windows()
	assert.Equal(t, 5, count)
	assert.Equal(t, 30, shortest)

	cfg.Window.Size = 0
	count, shortest = cfg.Windows()
	assert.Equal(t, 1, count)
	assert.Equal(t, 430, shortest)
}

func TestBuildKernels(t *testing.T) {
	cfg := Default()
	cfg.Kernels.Envelope.FixLengthscale = true
	kf, kg, err := cfg.BuildKernels()
	require.NoError(t, err)
	require.Len(t, kf, 2)
	require.Len(t, kg, 2)

	sm, ok := kf[0].(*kern.SpectralMixture)
	require.True(t, ok)
	assert.Equal(t, 3, sm.Len())
	assert.InDelta(t, 880, sm.Frequency[1].Value(), 1e-9)
	assert.True(t, sm.Energy[0].Fixed)
	assert.True(t, kg[1].(*kern.Matern32).Lengthscale.Fixed)
	assert.False(t, kg[1].(*kern.Matern32).Variance.Fixed)

	cfg.Kernels.Component.Kind = "mercer"
	cfg.Kernels.Component.FitEnergies = true
	kf, _, err = cfg.BuildKernels()
	require.NoError(t, err)
	m, ok := kf[1].(*kern.Mercer)
	require.True(t, ok)
	assert.False(t, m.Energy[0].Fixed)
	assert.True(t, m.Frequency[0].Fixed)
}

func TestBuildKernelsWithBiasAndExponentialEnvelope(t *testing.T) {
	cfg := Default()
	cfg.Kernels.Component.Bias = 0.5
	cfg.Kernels.Envelope.Kind = "matern12"
	cfg.Kernels.Envelope.FixVariance = true
	kf, kg, err := cfg.BuildKernels()
	require.NoError(t, err)

	sum, ok := kf[0].(*kern.Add)
	require.True(t, ok)
	require.Len(t, sum.Parts(), 2)
	assert.IsType(t, &kern.SpectralMixture{}, sum.Parts()[0])
	x := []float64{0, 1e-3}
	assert.InDelta(t, cfg.Kernels.Component.Variance+0.5, kf[0].Kdiag(x)[0], 1e-12)

	env, ok := kg[0].(*kern.Matern12)
	require.True(t, ok)
	assert.True(t, env.Variance.Fixed)
	assert.False(t, env.Lengthscale.Fixed)

	cfg.Kernels.Envelope.Kind = "rbf"
	_, _, err = cfg.BuildKernels()
	assert.ErrorIs(t, err, ErrKind)
}

func TestAdamAcceptsMinibatches(t *testing.T) {
	cfg := Default()
	cfg.Fit.Method = "adam"
	cfg.Model.MinibatchSize = 50
	assert.NoError(t, cfg.Validate())
}

func TestFitter(t *testing.T) {
	cfg := Default()
	for method, want := range map[string]fitters.Fitter{
		"ascent": &fitters.GradientAscent{},
		"adam":   &fitters.Adam{},
		"LBFGS":  &fitters.LBFGS{},
	} {
		cfg.Fit.Method = method
		f, err := cfg.Fitter(nil)
		require.NoError(t, err)
		assert.IsType(t, want, f)
	}
	cfg.Fit.Method = "sgd"
	_, err := cfg.Fitter(nil)
	assert.ErrorIs(t, err, ErrMethod)
}

func TestOptionsAndSynthSpec(t *testing.T) {
	cfg := Default()
	cfg.Model.Squash = "probit"
	opts, err := cfg.Options(nil)
	require.NoError(t, err)
	assert.Equal(t, lik.VariantJoint, opts.Variant)
	assert.Equal(t, lik.Probit, opts.Squash)
	assert.False(t, opts.TrainInducing)

	spec := cfg.SynthSpec()
	assert.Equal(t, cfg.Data.Points, spec.N)
	require.Len(t, spec.Sources, 2)
	assert.Equal(t, 659.25, spec.Sources[1].Fundamental)
}
