package synth

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

var ErrNoPeaks = errors.New("synth: spectrum has no peaks")

// EstimatePartials picks the strongest peaks of the power spectrum of an
// isolated note y sampled at rate Hz. It returns at most max frequencies in
// Hz, ascending, with energies normalised to sum to one.
func EstimatePartials(y []float64, rate float64, max int) (freq, energy []float64, err error) {
	if len(y) < 4 || rate <= 0 || max < 1 {
		return nil, nil, fmt.Errorf("%d samples at %v Hz, %d partials: %w", len(y), rate, max, ErrSpec)
	}
	fft := fourier.NewFFT(len(y))
	coeffs := fft.Coefficients(nil, y)
	power := make([]float64, len(coeffs))
	for i, c := range coeffs {
		power[i] = real(c)*real(c) + imag(c)*imag(c)
	}

	var peaks []int
	for i := 1; i < len(power)-1; i++ {
		if power[i] > power[i-1] && power[i] >= power[i+1] {
			peaks = append(peaks, i)
		}
	}
	if len(peaks) == 0 {
		return nil, nil, ErrNoPeaks
	}
	sort.Slice(peaks, func(a, b int) bool { return power[peaks[a]] > power[peaks[b]] })
	if len(peaks) > max {
		peaks = peaks[:max]
	}
	sort.Ints(peaks)

	freq = make([]float64, len(peaks))
	energy = make([]float64, len(peaks))
	for k, i := range peaks {
		freq[k] = fft.Freq(i) * rate
		energy[k] = power[i]
	}
	floats.Scale(1/floats.Sum(energy), energy)
	return freq, energy, nil
}
