// Package param holds scalar model parameters together with their constraint
// and a fixed/free flag. Optimisers work on the unconstrained ("free") value;
// model code only ever sees the constrained one.
package param

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNotPositive = errors.New("param: value must be positive")
	ErrNotFinite   = errors.New("param: value must be finite")
)

type Constraint uint8

const (
	Unconstrained Constraint = iota
	Positive
)

func (c Constraint) String() string {
	switch c {
	case Positive:
		return "positive"
	default:
		return "unconstrained"
	}
}

type Param struct {
	Name       string
	Constraint Constraint
	Fixed      bool
	value      float64
}

func New(name string, value float64, c Constraint) (*Param, error) {
	p := &Param{Name: name, Constraint: c}
	if err := p.Set(value); err != nil {
		return nil, err
	}
	return p, nil
}

// MustNew is New for literal values; it panics on a constraint violation.
func MustNew(name string, value float64, c Constraint) *Param {
	p, err := New(name, value, c)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Param) Value() float64 {
	return p.value
}

func (p *Param) Set(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s = %v: %w", p.Name, v, ErrNotFinite)
	}
	if p.Constraint == Positive && v <= 0 {
		return fmt.Errorf("%s = %v: %w", p.Name, v, ErrNotPositive)
	}
	p.value = v
	return nil
}

// Free returns the value in the unconstrained optimisation space.
func (p *Param) Free() float64 {
	if p.Constraint == Positive {
		return math.Log(p.value)
	}
	return p.value
}

// SetFree sets the value from its unconstrained representation. Positive
// parameters go through exp, so any finite u is admissible.
func (p *Param) SetFree(u float64) {
	if p.Constraint == Positive {
		p.value = math.Exp(u)
		return
	}
	p.value = u
}

func (p *Param) Fix()   { p.Fixed = true }
func (p *Param) Unfix() { p.Fixed = false }

func (p *Param) String() string {
	state := "free"
	if p.Fixed {
		state = "fixed"
	}
	return fmt.Sprintf("%s=%g (%s, %s)", p.Name, p.value, p.Constraint, state)
}

// Collect concatenates parameter lists, dropping repeated pointers so that a
// parameter shared by two owners is optimised once.
func Collect(lists ...[]*Param) []*Param {
	seen := make(map[*Param]bool)
	out := make([]*Param, 0, 8)
	for _, list := range lists {
		for _, p := range list {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Trainable returns the parameters that are not fixed.
func Trainable(ps []*Param) []*Param {
	out := make([]*Param, 0, len(ps))
	for _, p := range ps {
		if !p.Fixed {
			out = append(out, p)
		}
	}
	return out
}

// FixAll sets the fixed flag on every parameter in ps.
func FixAll(ps []*Param, fixed bool) {
	for _, p := range ps {
		p.Fixed = fixed
	}
}
