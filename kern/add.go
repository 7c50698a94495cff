package kern

import (
	"github.com/kuonanhong/gpitch/param"
	"gonum.org/v1/gonum/mat"
)

var (
	add *Add
	_   Kernel = add
)

// Add is the sum of its parts. Nested sums are flattened.
type Add struct {
	parts []Kernel
}

func NewAdd(first Kernel, rest ...Kernel) *Add {
	parts := make([]Kernel, 0, 1+len(rest))
	for _, k := range append([]Kernel{first}, rest...) {
		switch k := k.(type) {
		case *Add:
			parts = append(parts, k.parts...)
		default:
			parts = append(parts, k)
		}
	}
	return &Add{parts: parts}
}

func (k *Add) Parts() []Kernel {
	return k.parts
}

func (k *Add) K(x, x2 []float64) *mat.Dense {
	out := k.parts[0].K(x, x2)
	for _, part := range k.parts[1:] {
		out.Add(out, part.K(x, x2))
	}
	return out
}

func (k *Add) KSym(x []float64) *mat.SymDense {
	out := k.parts[0].KSym(x)
	for _, part := range k.parts[1:] {
		out.AddSym(out, part.KSym(x))
	}
	return out
}

func (k *Add) Kdiag(x []float64) []float64 {
	out := k.parts[0].Kdiag(x)
	for _, part := range k.parts[1:] {
		for i, v := range part.Kdiag(x) {
			out[i] += v
		}
	}
	return out
}

func (k *Add) Params() []*param.Param {
	lists := make([][]*param.Param, len(k.parts))
	for i, part := range k.parts {
		lists[i] = part.Params()
	}
	return param.Collect(lists...)
}
