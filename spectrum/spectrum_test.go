package spectrum

import (
	"errors"
	"math"
	"testing"
)

func sine(n int, rate, freq, amp, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = offset + amp*math.Sin(2*math.Pi*freq*float64(i)/rate)
	}
	return out
}

func TestDominantFrequencyPureSine(t *testing.T) {
	f, err := DominantFrequency(sine(1000, 1000, 50, 1, 0), 1000)
	if err != nil {
		t.Fatal(err)
	}
	if f != 50.0 {
		t.Errorf("expected 50.0 Hz, got %v", f)
	}
}

func TestDominantFrequencyDCOffsetSkipped(t *testing.T) {
	// DC dominates by far, the sine must still be reported
	f, err := DominantFrequency(sine(1000, 1000, 120, 0.1, 5), 1000)
	if err != nil {
		t.Fatal(err)
	}
	if f != 120.0 {
		t.Errorf("expected 120.0 Hz, got %v", f)
	}
}

func TestDominantFrequencyLargestWins(t *testing.T) {
	a := sine(2000, 2000, 60, 0.2, 0)
	b := sine(2000, 2000, 310, 1, 0)
	for i := range a {
		a[i] += b[i]
	}
	f, err := DominantFrequency(a, 2000)
	if err != nil {
		t.Fatal(err)
	}
	if f != 310.0 {
		t.Errorf("expected 310.0 Hz, got %v", f)
	}
}

func TestDominantFrequencyRounds(t *testing.T) {
	// 10 samples at 3 Hz gives a bin spacing of 0.3 Hz, bin 1 is 0.3 Hz
	f, err := DominantFrequency(sine(10, 3, 0.3, 1, 0), 3)
	if err != nil {
		t.Fatal(err)
	}
	if f != 0.3 {
		t.Errorf("expected 0.3 Hz, got %v", f)
	}
}

func TestDominantFrequencyConstant(t *testing.T) {
	samples := make([]float64, 256)
	for i := range samples {
		samples[i] = 2.5
	}
	_, err := DominantFrequency(samples, 1000)
	if !errors.Is(err, ErrFlatSpectrum) {
		t.Errorf("expected ErrFlatSpectrum for a DC-only signal, got %v", err)
	}
}

func TestDominantFrequencyZeros(t *testing.T) {
	_, err := DominantFrequency(make([]float64, 16), 1000)
	if !errors.Is(err, ErrFlatSpectrum) {
		t.Errorf("expected ErrFlatSpectrum for a zero signal, got %v", err)
	}
}

func TestDominantFrequencyTooShort(t *testing.T) {
	for _, n := range []int{0, 1} {
		_, err := DominantFrequency(make([]float64, n), 1000)
		var ise *InsufficientSamplesError
		if !errors.As(err, &ise) {
			t.Errorf("expected InsufficientSamplesError for n=%d, got %v", n, err)
			continue
		}
		if ise.N != n {
			t.Errorf("expected N=%d, got %d", n, ise.N)
		}
	}
}

func TestDominantFrequencyBadRate(t *testing.T) {
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := DominantFrequency(sine(100, 100, 10, 1, 0), r); err == nil {
			t.Errorf("expected rate %v to be rejected", r)
		}
	}
}
