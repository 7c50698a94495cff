// Package batch draws reproducible mini-batches. A Sampler holds no random
// state: every draw is a pure function of the State it is given.
package batch

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/sampleuv"
)

var (
	ErrBatchTooLarge = errors.New("batch: batch size exceeds data size")
	ErrBatchSize     = errors.New("batch: batch size must be positive")
)

// State identifies one draw of the stream seeded by Seed.
type State struct {
	Seed uint64
	Step uint64
}

type Sampler struct {
	n    int
	size int
}

// NewSampler returns a sampler of size-element subsets of [0, n). A size of
// zero means full batches.
func NewSampler(n, size int) (*Sampler, error) {
	if size == 0 {
		size = n
	}
	if size < 1 {
		return nil, fmt.Errorf("size %d: %w", size, ErrBatchSize)
	}
	if size > n {
		return nil, fmt.Errorf("size %d > %d points: %w", size, n, ErrBatchTooLarge)
	}
	return &Sampler{n: n, size: size}, nil
}

func (s *Sampler) Size() int     { return s.size }
func (s *Sampler) DataSize() int { return s.n }
func (s *Sampler) Full() bool    { return s.size == s.n }

// Next returns the sorted indices of the batch for st and the state of the
// following draw. Full batches are always 0..n-1.
func (s *Sampler) Next(st State) ([]int, State) {
	next := State{Seed: st.Seed, Step: st.Step + 1}
	idx := make([]int, s.size)
	if s.Full() {
		for i := range idx {
			idx[i] = i
		}
		return idx, next
	}
	src := rand.NewPCG(st.Seed, st.Step)
	sampleuv.WithoutReplacement(idx, s.n, src)
	sort.Ints(idx)
	return idx, next
}
