// Package synth generates mixtures of pitched sources with known components
// and envelopes, and scores how well a model recovers them.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/kuonanhong/gpitch/kern"
	"github.com/kuonanhong/gpitch/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// Added to the envelope prior covariance before sampling.
const envelopeJitter = 1e-8

var (
	ErrSpec                = errors.New("synth: invalid spec")
	ErrNotPositiveDefinite = errors.New("synth: envelope covariance is not positive definite")
)

// Source is one pitch: a fundamental with the relative energies of its
// harmonics (the first entry is the fundamental itself), gated by an
// envelope drawn from a Matérn-3/2 prior.
type Source struct {
	Fundamental         float64
	Energies            []float64
	EnvelopeVariance    float64
	EnvelopeLengthscale float64
}

// Frequencies of the harmonics of s, in Hz.
func (s Source) Frequencies() []float64 {
	out := make([]float64, len(s.Energies))
	for k := range out {
		out[k] = float64(k+1) * s.Fundamental
	}
	return out
}

type Spec struct {
	N             int
	SampleRate    float64
	NoiseVariance float64
	Sources       []Source
	Seed          uint64
}

func (s Spec) validate() error {
	if s.N < 1 {
		return fmt.Errorf("%d points: %w", s.N, ErrSpec)
	}
	if s.SampleRate <= 0 {
		return fmt.Errorf("sample rate %v: %w", s.SampleRate, ErrSpec)
	}
	if s.NoiseVariance < 0 {
		return fmt.Errorf("noise variance %v: %w", s.NoiseVariance, ErrSpec)
	}
	if len(s.Sources) == 0 {
		return fmt.Errorf("no sources: %w", ErrSpec)
	}
	for i, src := range s.Sources {
		if src.Fundamental <= 0 || len(src.Energies) == 0 {
			return fmt.Errorf("source %d has no pitch: %w", i, ErrSpec)
		}
		if src.EnvelopeVariance <= 0 || src.EnvelopeLengthscale <= 0 {
			return fmt.Errorf("source %d envelope: %w", i, ErrSpec)
		}
		for _, e := range src.Energies {
			if e < 0 {
				return fmt.Errorf("source %d energy %v: %w", i, e, ErrSpec)
			}
		}
	}
	return nil
}

// Data is a generated mixture. Per-source slices are indexed like
// Spec.Sources.
type Data struct {
	X, Y       []float64
	Components [][]float64
	// Envelopes before squashing.
	Envelopes [][]float64
	// Logistic(envelope) times component.
	Sources [][]float64
}

func Generate(spec Spec) (*Data, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	src := rand.NewPCG(spec.Seed, 0)
	x := utils.Linspace(spec.N, spec.SampleRate)
	d := &Data{X: x, Y: make([]float64, spec.N)}
	for i, s := range spec.Sources {
		g, err := envelope(x, s, src)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		f := component(x, s, src)
		amp := make([]float64, len(x))
		for k := range amp {
			amp[k] = utils.Logistic(g[k]) * f[k]
		}
		floats.Add(d.Y, amp)
		d.Components = append(d.Components, f)
		d.Envelopes = append(d.Envelopes, g)
		d.Sources = append(d.Sources, amp)
	}
	if spec.NoiseVariance > 0 {
		noise := distuv.Normal{Mu: 0, Sigma: math.Sqrt(spec.NoiseVariance), Src: src}
		for k := range d.Y {
			d.Y[k] += noise.Rand()
		}
	}
	return d, nil
}

func envelope(x []float64, s Source, src rand.Source) ([]float64, error) {
	cov := kern.NewMatern32(s.EnvelopeVariance, s.EnvelopeLengthscale).KSym(x)
	for i := range x {
		cov.SetSym(i, i, cov.At(i, i)+envelopeJitter)
	}
	prior, ok := distmv.NewNormal(make([]float64, len(x)), cov, src)
	if !ok {
		return nil, ErrNotPositiveDefinite
	}
	return prior.Rand(nil), nil
}

// Sum of harmonics with random phases.
func component(x []float64, s Source, src rand.Source) []float64 {
	phase := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: src}
	out := make([]float64, len(x))
	for k, freq := range s.Frequencies() {
		amp := math.Sqrt(s.Energies[k])
		phi := phase.Rand()
		for i, xi := range x {
			out[i] += amp * math.Cos(2*math.Pi*freq*xi+phi)
		}
	}
	return out
}

// Decimate keeps every k-th input plus the last one, the usual inducing
// point initialisation.
func Decimate(x []float64, every int) []float64 {
	if every < 1 {
		every = 1
	}
	var z []float64
	for i := 0; i < len(x); i += every {
		z = append(z, x[i])
	}
	if n := len(x); n > 0 && (n-1)%every != 0 {
		z = append(z, x[n-1])
	}
	return z
}

// Correlation is Pearson's correlation between a recovered and a reference
// signal.
func Correlation(a, b []float64) float64 {
	return stat.Correlation(a, b, nil)
}

// Window is the half-open index range [Start, End) of one analysis frame.
type Window struct {
	Start, End int
}

// Windows cuts n points into consecutive frames of the given size; the last
// one may be shorter. A size below one means a single frame.
func Windows(n, size int) []Window {
	if size < 1 || size >= n {
		return []Window{{0, n}}
	}
	var out []Window
	for s := 0; s < n; s += size {
		out = append(out, Window{s, min(s+size, n)})
	}
	return out
}
