package spectrum

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-fxtrigger/dsp/window"
)

// Analyzer turns a real frame into (frequency, magnitude) pairs for the
// bins 0..Size/2.
//
// Magnitudes are scaled so that a sine of amplitude A centered on a bin reads
// approximately A, independent of frame length.
type Analyzer struct {
	sampleRate float64
	size       int
	windowType window.Type

	plan *algofft.Plan[complex128]

	coeffs    []float64
	coeffsLen int
	scale     float64

	frame []complex128
	bins  []complex128
	re    []float64
	im    []float64
	mags  []float64
	freqs []float64
}

// NextPowerOfTwo returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// New creates an analyzer for frames of up to size samples. size is rounded
// up to a power of two.
func New(sampleRate float64, size int) (*Analyzer, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("spectrum sample rate must be > 0: %f", sampleRate)
	}
	if size < 2 {
		return nil, fmt.Errorf("spectrum size must be >= 2: %d", size)
	}
	size = NextPowerOfTwo(size)

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum init fft plan: %w", err)
	}

	half := size/2 + 1
	a := &Analyzer{
		sampleRate: sampleRate,
		size:       size,
		windowType: window.TypeHann,
		plan:       plan,
		coeffs:     make([]float64, size),
		frame:      make([]complex128, size),
		bins:       make([]complex128, size),
		re:         make([]float64, half),
		im:         make([]float64, half),
		mags:       make([]float64, half),
		freqs:      make([]float64, half),
	}
	binHz := sampleRate / float64(size)
	for k := range a.freqs {
		a.freqs[k] = float64(k) * binHz
	}
	return a, nil
}

// Size returns the FFT size.
func (a *Analyzer) Size() int { return a.size }

// SampleRate returns the sample rate in Hz.
func (a *Analyzer) SampleRate() float64 { return a.sampleRate }

// BinWidth returns the spacing of bins in Hz.
func (a *Analyzer) BinWidth() float64 { return a.sampleRate / float64(a.size) }

// Frequencies returns the bin center frequencies. The slice is owned by the
// analyzer and must not be modified.
func (a *Analyzer) Frequencies() []float64 { return a.freqs }

// Compute windows samples (truncated to Size), zero pads, transforms and
// returns bin frequencies and magnitudes. Both slices are owned by the
// analyzer and are overwritten by the next call.
func (a *Analyzer) Compute(samples []float64) (freqs, mags []float64, err error) {
	n := len(samples)
	if n > a.size {
		samples = samples[n-a.size:]
		n = a.size
	}
	if n == 0 {
		for k := range a.mags {
			a.mags[k] = 0
		}
		return a.freqs, a.mags, nil
	}

	if n != a.coeffsLen {
		window.Fill(a.coeffs[:n], a.windowType, window.WithPeriodic())
		sum := 0.0
		for _, c := range a.coeffs[:n] {
			sum += c
		}
		a.scale = 0
		if sum > 0 {
			a.scale = 2 / sum
		}
		a.coeffsLen = n
	}

	for i, v := range samples {
		a.frame[i] = complex(v*a.coeffs[i], 0)
	}
	for i := n; i < a.size; i++ {
		a.frame[i] = 0
	}

	if err := a.plan.Forward(a.bins, a.frame); err != nil {
		return nil, nil, fmt.Errorf("spectrum forward fft: %w", err)
	}

	for k := range a.re {
		a.re[k] = real(a.bins[k])
		a.im[k] = imag(a.bins[k])
	}
	vecmath.Magnitude(a.mags, a.re, a.im)
	vecmath.ScaleBlock(a.mags, a.mags, a.scale)

	return a.freqs, a.mags, nil
}
