package base

import (
	"github.com/kuonanhong/gpitch/kern"
	"github.com/kuonanhong/gpitch/latent"
)

// Source is one pitch: a quasi-periodic component f and the envelope g that
// scales it.
type Source struct {
	Component *latent.Process
	Envelope  *latent.Process
}

func NewSource(kf, kg kern.Kernel, m int, whiten bool, jitter float64) *Source {
	return &Source{
		Component: latent.NewProcess(kf, m, whiten, jitter),
		Envelope:  latent.NewProcess(kg, m, whiten, jitter),
	}
}

func (s *Source) Reset(m int) {
	s.Component.Reset(m)
	s.Envelope.Reset(m)
}

func (s *Source) KL(z []float64) (float64, error) {
	klf, err := s.Component.KL(z)
	if err != nil {
		return 0, err
	}
	klg, err := s.Envelope.KL(z)
	if err != nil {
		return 0, err
	}
	return klf + klg, nil
}
