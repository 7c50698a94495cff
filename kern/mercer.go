package kern

import (
	"math"

	"github.com/kuonanhong/gpitch/param"
	"gonum.org/v1/gonum/mat"
)

var (
	mercer *Mercer
	_      Kernel = mercer
)

// Mercer is the finite feature-basis counterpart of SpectralMixture:
//
//	φ(x) = [√e_i cos(2π f_i x), √e_i sin(2π f_i x)]_i,   k(x, x') = variance · φ(x)ᵀφ(x').
//
// Its Gram matrices have rank at most 2·partials and are positive
// semi-definite by construction.
type Mercer struct {
	Partials
	Variance *param.Param
}

func NewMercer(variance float64, energy, freq []float64) (*Mercer, error) {
	partials, err := newPartials(energy, freq)
	if err != nil {
		return nil, err
	}
	k := &Mercer{Partials: partials}
	if k.Variance, err = param.New("variance", variance, param.Positive); err != nil {
		return nil, err
	}
	return k, nil
}

// Features returns the 2m × len(x) feature matrix, cosines first.
func (k *Mercer) Features(x []float64) *mat.Dense {
	m := k.Len()
	phi := mat.NewDense(2*m, len(x), nil)
	for i := 0; i < m; i++ {
		amp := math.Sqrt(k.Energy[i].Value())
		w := 2 * math.Pi * k.Frequency[i].Value()
		cos := phi.RawRowView(i)
		sin := phi.RawRowView(i + m)
		for j, v := range x {
			s, c := math.Sincos(w * v)
			cos[j] = amp * c
			sin[j] = amp * s
		}
	}
	return phi
}

func (k *Mercer) K(x, x2 []float64) *mat.Dense {
	var out mat.Dense
	out.Mul(k.Features(x).T(), k.Features(x2))
	out.Scale(k.Variance.Value(), &out)
	return &out
}

func (k *Mercer) KSym(x []float64) *mat.SymDense {
	out := mat.NewSymDense(len(x), nil)
	out.SymOuterK(k.Variance.Value(), k.Features(x).T())
	return out
}

func (k *Mercer) Kdiag(x []float64) []float64 {
	return constantDiag(len(x), k.Variance.Value()*k.totalEnergy())
}

func (k *Mercer) Params() []*param.Param {
	return append([]*param.Param{k.Variance}, k.Partials.params()...)
}
