// Package spectrum extracts spectral features from sampled waveforms.
package spectrum

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/nasa-jpl/daqmx/mathx"
)

// FlatTolerance is the fraction of the largest bin's magnitude below which
// the best non-DC bin is considered to hold no energy.
const FlatTolerance = 1e-9

// ErrFlatSpectrum is returned when a waveform has no energy outside of DC
var ErrFlatSpectrum = errors.New("spectrum: no energy outside the zero frequency bin")

// InsufficientSamplesError is returned when a waveform is too short to have
// any bin other than DC
type InsufficientSamplesError struct {
	N int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("spectrum: %d samples is too few, need at least 2", e.N)
}

type bin struct {
	idx  int
	mag  float64
	freq float64
}

// DominantFrequency returns the frequency, in Hz and rounded to 0.1 Hz, of the
// largest magnitude bin of the DFT of samples taken at rate Hz.
//
// If the largest bin is DC it is skipped in favor of the next largest.
// Negative frequencies are folded onto positive ones.  Among bins of equal
// magnitude the one with the highest index wins.
func DominantFrequency(samples []float64, rate float64) (float64, error) {
	n := len(samples)
	if n < 2 {
		return 0, &InsufficientSamplesError{N: n}
	}
	if !(rate > 0) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("spectrum: sample rate %v must be positive and finite", rate)
	}

	fft := fourier.NewCmplxFFT(n)
	seq := make([]complex128, n)
	for i, v := range samples {
		seq[i] = complex(v, 0)
	}
	coeffs := fft.Coefficients(nil, seq)

	bins := make([]bin, n)
	for i, c := range coeffs {
		bins[i] = bin{idx: i, mag: cmplx.Abs(c), freq: fft.Freq(i) * rate}
	}
	sort.SliceStable(bins, func(i, j int) bool { return bins[i].mag < bins[j].mag })

	peak := bins[n-1].mag
	top := bins[n-1]
	if top.idx == 0 {
		top = bins[n-2]
	}
	if peak == 0 || top.mag <= FlatTolerance*peak {
		return 0, ErrFlatSpectrum
	}
	return mathx.Round(math.Abs(top.freq), 0.1), nil
}
