package base

import (
	"fmt"
	"math"

	"github.com/kuonanhong/gpitch/batch"
	"github.com/kuonanhong/gpitch/kern"
	"github.com/kuonanhong/gpitch/latent"
	"github.com/kuonanhong/gpitch/lik"
	"github.com/kuonanhong/gpitch/param"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Marginal variances below this are raised to it before they reach the
// likelihood, whose quadrature factorises them.
const minVariance = 1e-12

type Options struct {
	Whiten bool
	// Zero means full-batch.
	MinibatchSize int
	Variant       lik.Variant
	Squash        lik.Squash
	// Zero means 1.
	NoiseVariance float64
	// Zero means latent.DefaultJitter.
	Jitter float64
	Seed   uint64
	// Inducing locations are held fixed unless set.
	TrainInducing bool
	Logger        *zap.Logger
}

// LooGP explains a signal as a sum of sources, each a component f_i gated by
// a squashed envelope g_i. Latent functions are kept in the order
// f1, g1, f2, g2, ... to match the likelihood.
type LooGP struct {
	x, y, z       []float64
	sources       []*Source
	lik           lik.Likelihood
	squash        lik.Squash
	sampler       *batch.Sampler
	state         batch.State
	minibatch     int
	trainInducing bool
	logger        *zap.Logger
}

func New(x, y []float64, kf, kg []kern.Kernel, z []float64, opts Options) (*LooGP, error) {
	if err := checkData(x, y, z); err != nil {
		return nil, err
	}
	noise := opts.NoiseVariance
	if noise == 0 {
		noise = 1
	}
	jitter := opts.Jitter
	if jitter == 0 {
		jitter = latent.DefaultJitter
	}
	l, err := lik.New(opts.Variant, noise, opts.Squash)
	if err != nil {
		return nil, err
	}
	pairs := l.NumLatent() / 2
	if len(kf) != pairs || len(kg) != pairs {
		return nil, fmt.Errorf("%d component and %d envelope kernels, want %d each: %w",
			len(kf), len(kg), pairs, ErrShape)
	}
	sampler, err := batch.NewSampler(len(x), opts.MinibatchSize)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &LooGP{
		x:             x,
		y:             y,
		z:             z,
		lik:           l,
		squash:        opts.Squash,
		sampler:       sampler,
		state:         batch.State{Seed: opts.Seed},
		minibatch:     opts.MinibatchSize,
		trainInducing: opts.TrainInducing,
		logger:        logger.Named("loogp"),
	}
	for i := 0; i < pairs; i++ {
		m.sources = append(m.sources, NewSource(kf[i], kg[i], len(z), opts.Whiten, jitter))
	}
	m.logger.Debug("model built",
		zap.Int("data", len(x)),
		zap.Int("inducing", len(z)),
		zap.Int("batch", sampler.Size()),
		zap.Stringer("variant", opts.Variant),
		zap.Bool("whiten", opts.Whiten))
	return m, nil
}

func checkData(x, y, z []float64) error {
	if len(x) == 0 {
		return fmt.Errorf("no data: %w", ErrEmpty)
	}
	if len(x) != len(y) {
		return fmt.Errorf("%d inputs, %d outputs: %w", len(x), len(y), ErrShape)
	}
	if len(z) == 0 {
		return fmt.Errorf("no inducing points: %w", ErrEmpty)
	}
	return nil
}

func (m *LooGP) Likelihood() lik.Likelihood { return m.lik }
func (m *LooGP) Sources() []*Source         { return m.sources }
func (m *LooGP) Inducing() []float64        { return m.z }
func (m *LooGP) NumData() int               { return len(m.x) }
func (m *LooGP) BatchSize() int             { return m.sampler.Size() }

// All latent processes in likelihood order.
func (m *LooGP) processes() []*latent.Process {
	ps := make([]*latent.Process, 0, 2*len(m.sources))
	for _, s := range m.sources {
		ps = append(ps, s.Component, s.Envelope)
	}
	return ps
}

func (m *LooGP) PriorKL() (float64, error) {
	var kl float64
	for _, s := range m.sources {
		v, err := s.KL(m.z)
		if err != nil {
			return 0, err
		}
		kl += v
	}
	return kl, nil
}

// SampleBatch advances the batch state and returns the indices it selects.
func (m *LooGP) SampleBatch() []int {
	var idx []int
	idx, m.state = m.sampler.Next(m.state)
	return idx
}

// Bound evaluates the lower bound on a freshly drawn batch.
func (m *LooGP) Bound() (float64, error) {
	return m.BoundOn(m.SampleBatch())
}

// BoundOn evaluates the lower bound with the expected log-likelihood
// estimated on the given data indices.
func (m *LooGP) BoundOn(idx []int) (float64, error) {
	if len(idx) == 0 {
		return 0, fmt.Errorf("empty batch: %w", ErrEmpty)
	}
	kl, err := m.PriorKL()
	if err != nil {
		return 0, err
	}
	xb := make([]float64, len(idx))
	yb := make([]float64, len(idx))
	for k, i := range idx {
		if i < 0 || i >= len(m.x) {
			return 0, fmt.Errorf("index %d out of range: %w", i, ErrShape)
		}
		xb[k], yb[k] = m.x[i], m.y[i]
	}
	ps := m.processes()
	fmu := mat.NewDense(len(idx), len(ps), nil)
	fvar := mat.NewDense(len(idx), len(ps), nil)
	for j, p := range ps {
		mean, variance, err := p.Conditional(xb, m.z)
		if err != nil {
			return 0, err
		}
		for k := range variance {
			variance[k] = math.Max(variance[k], minVariance)
		}
		fmu.SetCol(j, mean)
		fvar.SetCol(j, variance)
	}
	ve, err := m.lik.VariationalExpectations(fmu, fvar, yb)
	if err != nil {
		return 0, err
	}
	scale := float64(len(m.x)) / float64(len(idx))
	return floats.Sum(ve)*scale - kl, nil
}

func (m *LooGP) source(i int) (*Source, error) {
	if i < 1 || i > len(m.sources) {
		return nil, fmt.Errorf("source %d of %d: %w", i, len(m.sources), ErrNoSource)
	}
	return m.sources[i-1], nil
}

// PredictF returns the marginal posterior of the i-th component (1-based) at
// xnew.
func (m *LooGP) PredictF(i int, xnew []float64) (mean, variance []float64, err error) {
	s, err := m.source(i)
	if err != nil {
		return nil, nil, err
	}
	return s.Component.Conditional(xnew, m.z)
}

// PredictG returns the marginal posterior of the i-th envelope (1-based) at
// xnew, before squashing.
func (m *LooGP) PredictG(i int, xnew []float64) (mean, variance []float64, err error) {
	s, err := m.source(i)
	if err != nil {
		return nil, nil, err
	}
	return s.Envelope.Conditional(xnew, m.z)
}

func (m *LooGP) PredictF1(xnew []float64) ([]float64, []float64, error) { return m.PredictF(1, xnew) }
func (m *LooGP) PredictG1(xnew []float64) ([]float64, []float64, error) { return m.PredictG(1, xnew) }
func (m *LooGP) PredictF2(xnew []float64) ([]float64, []float64, error) { return m.PredictF(2, xnew) }
func (m *LooGP) PredictG2(xnew []float64) ([]float64, []float64, error) { return m.PredictG(2, xnew) }

// PredictSource reconstructs the i-th source as E[σ(g_i)]·E[f_i].
func (m *LooGP) PredictSource(i int, xnew []float64) ([]float64, error) {
	fmean, _, err := m.PredictF(i, xnew)
	if err != nil {
		return nil, err
	}
	gmean, gvar, err := m.PredictG(i, xnew)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(xnew))
	for k := range out {
		out[k] = m.squash.Expect(gmean[k], gvar[k]) * fmean[k]
	}
	return out, nil
}

// Reset moves the model to a new window of data. Variational parameters go
// back to the prior, kernels and noise keep their values and the batch
// state carries on.
func (m *LooGP) Reset(x, y, z []float64) error {
	if err := checkData(x, y, z); err != nil {
		return err
	}
	sampler, err := batch.NewSampler(len(x), m.minibatch)
	if err != nil {
		return err
	}
	m.x, m.y, m.z = x, y, z
	m.sampler = sampler
	for _, s := range m.sources {
		s.Reset(len(z))
	}
	m.logger.Info("reset",
		zap.Int("data", len(x)),
		zap.Int("inducing", len(z)),
		zap.Float64("start", x[0]))
	return nil
}

// Trainable lists the scalar parameters that are not fixed, deduplicated
// across shared kernels.
func (m *LooGP) Trainable() []*param.Param {
	lists := [][]*param.Param{m.lik.Params()}
	for _, p := range m.processes() {
		lists = append(lists, p.Kernel.Params())
	}
	return param.Trainable(param.Collect(lists...))
}

func (m *LooGP) NumFree() int {
	n := len(m.Trainable())
	if m.trainInducing {
		n += len(m.z)
	}
	for _, p := range m.processes() {
		n += p.NumFree()
	}
	return n
}

// Free appends the free values to dst: trainable scalars, then inducing
// locations when trained, then each latent's variational parameters.
func (m *LooGP) Free(dst []float64) []float64 {
	for _, p := range m.Trainable() {
		dst = append(dst, p.Free())
	}
	if m.trainInducing {
		dst = append(dst, m.z...)
	}
	for _, p := range m.processes() {
		dst = p.Pack(dst)
	}
	return dst
}

func (m *LooGP) SetFree(x []float64) error {
	if n := m.NumFree(); len(x) != n {
		return fmt.Errorf("%d free values, want %d: %w", len(x), n, ErrShape)
	}
	k := 0
	for _, p := range m.Trainable() {
		p.SetFree(x[k])
		k++
	}
	if m.trainInducing {
		z := make([]float64, len(m.z))
		copy(z, x[k:k+len(z)])
		m.z = z
		k += len(z)
	}
	for _, p := range m.processes() {
		k += p.Unpack(x[k:])
	}
	return nil
}
