// Package config describes a windowed separation experiment in YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kuonanhong/gpitch/batch"
	"github.com/kuonanhong/gpitch/fitters"
	"github.com/kuonanhong/gpitch/lik"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalid = errors.New("config: invalid value")
	ErrMethod  = errors.New("config: unknown fit method")
	ErrKind    = errors.New("config: unknown kernel kind")
)

// Pitch is a fundamental frequency (Hz) and the relative energies of its
// harmonics, fundamental first.
type Pitch struct {
	Fundamental float64   `yaml:"fundamental"`
	Energies    []float64 `yaml:"energies"`
}

type Data struct {
	Points        int     `yaml:"points"`
	SampleRate    float64 `yaml:"sample_rate"`
	NoiseVariance float64 `yaml:"noise_variance"`
	Pitches       []Pitch `yaml:"pitches"`
	// Variance and lengthscale (seconds) of the envelope prior the data is
	// drawn from.
	EnvelopeVariance    float64 `yaml:"envelope_variance"`
	EnvelopeLengthscale float64 `yaml:"envelope_lengthscale"`
	Seed                uint64  `yaml:"seed"`
}

type Model struct {
	Whiten        bool    `yaml:"whiten"`
	MinibatchSize int     `yaml:"minibatch_size"`
	Variant       string  `yaml:"variant"`
	Squash        string  `yaml:"squash"`
	Jitter        float64 `yaml:"jitter"`
	NoiseVariance float64 `yaml:"noise_variance"`
	// An inducing point every this many samples.
	InducingEvery int    `yaml:"inducing_every"`
	TrainInducing bool   `yaml:"train_inducing"`
	Seed          uint64 `yaml:"seed"`
}

type Hyper struct {
	Variance       float64 `yaml:"variance"`
	Lengthscale    float64 `yaml:"lengthscale"`
	FixVariance    bool    `yaml:"fix_variance"`
	FixLengthscale bool    `yaml:"fix_lengthscale"`
}

type Component struct {
	Hyper `yaml:",inline"`
	// "spectral" or "mercer".
	Kind        string `yaml:"kind"`
	FitEnergies bool   `yaml:"fit_energies"`
	FitFreqs    bool   `yaml:"fit_frequencies"`
	// Take the partials from the spectrum of each isolated source instead
	// of the harmonic series of its pitch.
	EstimatePartials bool `yaml:"estimate_partials"`
	MaxPartials      int  `yaml:"max_partials"`
	// Variance of a constant kernel added to the component; zero means none.
	Bias float64 `yaml:"bias"`
}

type Envelope struct {
	Hyper `yaml:",inline"`
	// "matern32" or "matern12".
	Kind string `yaml:"kind"`
}

type Kernels struct {
	Component Component `yaml:"component"`
	Envelope  Envelope  `yaml:"envelope"`
}

type Fit struct {
	// "ascent", "adam" or "lbfgs".
	Method       string  `yaml:"method"`
	MaxIter      int     `yaml:"max_iter"`
	Step         float64 `yaml:"step"`
	MaxHalvings  int     `yaml:"max_halvings"`
	LearningRate float64 `yaml:"learning_rate"`
}

type Window struct {
	// Samples per window; zero means the whole signal.
	Size int `yaml:"size"`
}

type Config struct {
	Data    Data    `yaml:"data"`
	Model   Model   `yaml:"model"`
	Kernels Kernels `yaml:"kernels"`
	Fit     Fit     `yaml:"fit"`
	Window  Window  `yaml:"window"`
}

// Default is a two-pitch mixture at 16 kHz, analysed in 100-sample
// windows.
func Default() *Config {
	return &Config{
		Data: Data{
			Points:        400,
			SampleRate:    16000,
			NoiseVariance: 1e-3,
			Pitches: []Pitch{
				{Fundamental: 440, Energies: []float64{0.7, 0.2, 0.1}},
				{Fundamental: 659.25, Energies: []float64{0.8, 0.2}},
			},
			EnvelopeVariance:    4,
			EnvelopeLengthscale: 0.01,
			Seed:                1,
		},
		Model: Model{
			Whiten:        true,
			Variant:       lik.VariantJoint.String(),
			Squash:        lik.Logistic.String(),
			NoiseVariance: 1e-2,
			InducingEvery: 20,
		},
		Kernels: Kernels{
			Component: Component{
				Hyper:       Hyper{Variance: 1, Lengthscale: 0.05},
				Kind:        "spectral",
				MaxPartials: 3,
			},
			Envelope: Envelope{
				Hyper: Hyper{Variance: 4, Lengthscale: 0.01},
				Kind:  "matern32",
			},
		},
		Fit: Fit{
			Method:       "ascent",
			MaxIter:      10,
			Step:         1e-2,
			MaxHalvings:  20,
			LearningRate: 1e-2,
		},
		Window: Window{Size: 100},
	}
}

// Load overlays the YAML file at path on Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func invalid(field string, v any) error {
	return fmt.Errorf("%s = %v: %w", field, v, ErrInvalid)
}

func (d *Data) Validate() error {
	switch {
	case d.Points < 1:
		return invalid("data.points", d.Points)
	case d.SampleRate <= 0:
		return invalid("data.sample_rate", d.SampleRate)
	case d.NoiseVariance < 0:
		return invalid("data.noise_variance", d.NoiseVariance)
	case len(d.Pitches) == 0:
		return invalid("data.pitches", "[]")
	case d.EnvelopeVariance <= 0:
		return invalid("data.envelope_variance", d.EnvelopeVariance)
	case d.EnvelopeLengthscale <= 0:
		return invalid("data.envelope_lengthscale", d.EnvelopeLengthscale)
	}
	for i, p := range d.Pitches {
		if p.Fundamental <= 0 {
			return invalid(fmt.Sprintf("data.pitches[%d].fundamental", i), p.Fundamental)
		}
		if len(p.Energies) == 0 {
			return invalid(fmt.Sprintf("data.pitches[%d].energies", i), "[]")
		}
		for _, e := range p.Energies {
			if e <= 0 {
				return invalid(fmt.Sprintf("data.pitches[%d].energies", i), p.Energies)
			}
		}
	}
	return nil
}

func (h *Hyper) validate(name string) error {
	if h.Variance <= 0 {
		return invalid(name+".variance", h.Variance)
	}
	if h.Lengthscale <= 0 {
		return invalid(name+".lengthscale", h.Lengthscale)
	}
	return nil
}

func (k *Kernels) Validate() error {
	if err := k.Component.validate("kernels.component"); err != nil {
		return err
	}
	switch strings.ToLower(k.Component.Kind) {
	case "spectral", "mercer":
	default:
		return fmt.Errorf("%q: %w", k.Component.Kind, ErrKind)
	}
	if k.Component.EstimatePartials && k.Component.MaxPartials < 1 {
		return invalid("kernels.component.max_partials", k.Component.MaxPartials)
	}
	if k.Component.Bias < 0 {
		return invalid("kernels.component.bias", k.Component.Bias)
	}
	switch strings.ToLower(k.Envelope.Kind) {
	case "matern32", "matern12":
	default:
		return fmt.Errorf("%q: %w", k.Envelope.Kind, ErrKind)
	}
	return k.Envelope.validate("kernels.envelope")
}

func (f *Fit) Validate() error {
	switch strings.ToLower(f.Method) {
	case "ascent", "adam", "lbfgs":
	default:
		return fmt.Errorf("%q: %w", f.Method, ErrMethod)
	}
	switch {
	case f.MaxIter < 0:
		return invalid("fit.max_iter", f.MaxIter)
	case f.Step < 0:
		return invalid("fit.step", f.Step)
	case f.LearningRate < 0:
		return invalid("fit.learning_rate", f.LearningRate)
	}
	return nil
}

// Windows returns the number of windows and the length of the shortest.
func (c *Config) Windows() (count, shortest int) {
	n, size := c.Data.Points, c.Window.Size
	if size < 1 || size >= n {
		return 1, n
	}
	count = (n + size - 1) / size
	shortest = size
	if r := n % size; r != 0 {
		shortest = r
	}
	return count, shortest
}

// Validate fails on the first impossible setting.
func (c *Config) Validate() error {
	if err := c.Data.Validate(); err != nil {
		return err
	}
	variant, err := lik.ParseVariant(c.Model.Variant)
	if err != nil {
		return err
	}
	if _, err := lik.ParseSquash(c.Model.Squash); err != nil {
		return err
	}
	pairs := 2
	if variant == lik.VariantSingle {
		pairs = 1
	}
	if len(c.Data.Pitches) != pairs {
		return fmt.Errorf("%s model separates %d pitches, got %d: %w",
			variant, pairs, len(c.Data.Pitches), ErrInvalid)
	}
	switch {
	case c.Model.MinibatchSize < 0:
		return invalid("model.minibatch_size", c.Model.MinibatchSize)
	case c.Model.Jitter < 0:
		return invalid("model.jitter", c.Model.Jitter)
	case c.Model.NoiseVariance <= 0:
		return invalid("model.noise_variance", c.Model.NoiseVariance)
	case c.Model.InducingEvery < 1:
		return invalid("model.inducing_every", c.Model.InducingEvery)
	case c.Window.Size < 0:
		return invalid("window.size", c.Window.Size)
	}
	if _, shortest := c.Windows(); c.Model.MinibatchSize > shortest {
		return fmt.Errorf("minibatch of %d in a window of %d: %w",
			c.Model.MinibatchSize, shortest, batch.ErrBatchTooLarge)
	}
	if err := c.Kernels.Validate(); err != nil {
		return err
	}
	if err := c.Fit.Validate(); err != nil {
		return err
	}
	// Only Adam redraws the batch as it goes.
	if m := strings.ToLower(c.Fit.Method); m != "adam" && c.Model.MinibatchSize > 0 {
		return fmt.Errorf("%s with minibatch of %d: %w", m, c.Model.MinibatchSize, fitters.ErrNotFullBatch)
	}
	return nil
}
