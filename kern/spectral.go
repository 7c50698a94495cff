package kern

import (
	"errors"
	"fmt"
	"math"

	"github.com/kuonanhong/gpitch/param"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrPartials = errors.New("kern: energies and frequencies must be non-empty and of equal length")

	spectral *SpectralMixture
	_        Kernel = spectral
)

// Partials holds the energy and frequency (cycles per unit input) of each
// spectral partial of a quasi-periodic kernel. Both are positive parameters.
type Partials struct {
	Energy    []*param.Param
	Frequency []*param.Param
}

func newPartials(energy, freq []float64) (Partials, error) {
	if len(energy) == 0 || len(energy) != len(freq) {
		return Partials{}, fmt.Errorf("%d energies, %d frequencies: %w",
			len(energy), len(freq), ErrPartials)
	}
	p := Partials{
		Energy:    make([]*param.Param, len(energy)),
		Frequency: make([]*param.Param, len(freq)),
	}
	var err error
	for i := range energy {
		if p.Energy[i], err = param.New(fmt.Sprintf("energy[%d]", i), energy[i], param.Positive); err != nil {
			return Partials{}, err
		}
		if p.Frequency[i], err = param.New(fmt.Sprintf("frequency[%d]", i), freq[i], param.Positive); err != nil {
			return Partials{}, err
		}
	}
	// Partials are estimated beforehand from the spectrum of the training
	// audio and are not learnt jointly unless released.
	p.FixPartials(true, true)
	return p, nil
}

func (p Partials) Len() int {
	return len(p.Energy)
}

// FixPartials toggles the fixed flag of every energy and frequency.
func (p Partials) FixPartials(energy, freq bool) {
	param.FixAll(p.Energy, energy)
	param.FixAll(p.Frequency, freq)
}

func (p Partials) totalEnergy() float64 {
	sum := 0.0
	for _, e := range p.Energy {
		sum += e.Value()
	}
	return sum
}

func (p Partials) params() []*param.Param {
	out := make([]*param.Param, 0, 2*p.Len())
	out = append(out, p.Energy...)
	return append(out, p.Frequency...)
}

// SpectralMixture is a Matérn-1/2 envelope modulating a sum of cosines, one
// per partial:
//
//	k(r) = variance · exp(-r/lengthscale) · Σ_i energy_i · cos(2π freq_i r),  r = |x - x'|.
type SpectralMixture struct {
	Partials
	Variance    *param.Param
	Lengthscale *param.Param
}

func NewSpectralMixture(variance, lscale float64, energy, freq []float64) (*SpectralMixture, error) {
	partials, err := newPartials(energy, freq)
	if err != nil {
		return nil, err
	}
	k := &SpectralMixture{Partials: partials}
	if k.Variance, err = param.New("variance", variance, param.Positive); err != nil {
		return nil, err
	}
	if k.Lengthscale, err = param.New("lengthscale", lscale, param.Positive); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *SpectralMixture) cov(r float64) float64 {
	sum := 0.0
	for i, e := range k.Energy {
		sum += e.Value() * math.Cos(2*math.Pi*k.Frequency[i].Value()*r)
	}
	return k.Variance.Value() * math.Exp(-r/k.Lengthscale.Value()) * sum
}

func (k *SpectralMixture) K(x, x2 []float64) *mat.Dense {
	return stationary(x, x2, k.cov)
}

func (k *SpectralMixture) KSym(x []float64) *mat.SymDense {
	return stationarySym(x, k.cov)
}

func (k *SpectralMixture) Kdiag(x []float64) []float64 {
	return constantDiag(len(x), k.Variance.Value()*k.totalEnergy())
}

func (k *SpectralMixture) Params() []*param.Param {
	return append([]*param.Param{k.Variance, k.Lengthscale}, k.Partials.params()...)
}
