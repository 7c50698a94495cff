package lik

import (
	"fmt"
	"math"
	"strings"

	"github.com/kuonanhong/gpitch/quad"
	"github.com/kuonanhong/gpitch/utils"
)

// Quadrature order of Expect for squashes without a closed form.
const expectOrder = 20

// Squash maps an envelope value to a non-negative amplitude in [0, 1].
type Squash uint8

const (
	Logistic Squash = iota
	Probit
)

func (s Squash) Apply(g float64) float64 {
	if s == Probit {
		return utils.NormalCdf(g)
	}
	return utils.Logistic(g)
}

func (s Squash) String() string {
	if s == Probit {
		return "probit"
	}
	return "logistic"
}

func ParseSquash(s string) (Squash, error) {
	switch strings.ToLower(s) {
	case "logistic", "":
		return Logistic, nil
	case "probit":
		return Probit, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrSquash)
}

// Expect returns E[s(g)] for g ~ N(mean, variance). The probit squash has
// the closed form Φ(mean / √(1 + variance)).
func (s Squash) Expect(mean, variance float64) float64 {
	variance = math.Max(variance, 0)
	if s == Probit {
		return utils.NormalCdf(mean / math.Sqrt(1+variance))
	}
	x, w := quad.HermGauss(expectOrder)
	scale := math.Sqrt(2 * variance)
	var e float64
	for k, node := range x {
		e += w[k] * s.Apply(mean+scale*node)
	}
	return e / math.SqrtPi
}
