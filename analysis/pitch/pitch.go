// Package pitch estimates the fundamental frequency of a mono frame from its
// autocorrelation.
//
// The correlation is computed through a zero-padded FFT (Wiener-Khinchin) or,
// with [WithDirect], by the O(N*L) lag sum. Both produce the same raw
// correlation r[l] = sum x[i]*x[i+l].
//
// Peak picking works on the unbiased correlation r[l]/(N-l). The search
// starts after the first lag where the correlation drops to zero and only
// considers local maxima whose raw value exceeds the correlation floor. Each
// peak is refined by a parabola through its neighbours, giving a fractional
// lag and an interpolated height. The estimate is the shortest peak whose
// height reaches 90% of the highest one, or 70% when the highest peak sits at
// an integer multiple of it. The period is then taken from the highest peak
// divided by that multiple.
//
// At 44.1 kHz the estimate holds to within half a semitone up to about
// 12 kHz. Above that a period spans fewer than four samples and the sampled
// correlation no longer resolves it reliably.
package pitch

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

const (
	// MinSamples is the shortest frame the estimator analyses.
	MinSamples = 512
	// MaxLag bounds the lag search.
	MaxLag = 2048
	// MinFrequency and MaxFrequency bound accepted estimates (exclusive).
	MinFrequency = 20.0
	MaxFrequency = 20000.0

	defaultFloor        = 0.1
	peakAcceptRatio     = 0.9
	multipleAcceptRatio = 0.7
	// multipleTolerance is the largest distance in samples between a peak and
	// the highest peak divided by their ratio for the two to count as related.
	multipleTolerance = 0.25
)

// Result is one pitch estimate.
type Result struct {
	Frequency float64 // Hz
	Note      float64 // fractional MIDI note
	Lag       float64 // refined period in samples
	Clarity   float64 // unbiased correlation at Lag over r[0]/N, in [0, 1]
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithDirect computes the correlation with the direct lag sum instead of the
// FFT.
func WithDirect() Option {
	return func(e *Estimator) { e.direct = true }
}

// WithFloor sets the minimum raw correlation a peak must exceed.
func WithFloor(floor float64) Option {
	return func(e *Estimator) {
		if floor >= 0 && !math.IsNaN(floor) {
			e.floor = floor
		}
	}
}

// Estimator holds preallocated buffers for frames up to a fixed size.
// Estimate does not allocate.
type Estimator struct {
	sampleRate float64
	maxFrame   int
	floor      float64
	direct     bool

	plans map[int]*algofft.Plan[complex128]

	frame    []complex128
	spectrum []complex128
	re       []float64
	im       []float64
	power    []float64
	product  []float64
	corr     []float64
}

// New creates an estimator for frames of up to maxFrame samples.
func New(sampleRate float64, maxFrame int, opts ...Option) (*Estimator, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("pitch sample rate must be > 0: %f", sampleRate)
	}
	if maxFrame < MinSamples {
		return nil, fmt.Errorf("pitch frame size must be >= %d: %d", MinSamples, maxFrame)
	}

	e := &Estimator{
		sampleRate: sampleRate,
		maxFrame:   maxFrame,
		floor:      defaultFloor,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.corr = make([]float64, MaxLag+2)
	if e.direct {
		e.product = make([]float64, maxFrame)
		return e, nil
	}

	maxFFT := nextPowerOfTwo(2 * maxFrame)
	e.plans = make(map[int]*algofft.Plan[complex128])
	for n := nextPowerOfTwo(2 * MinSamples); n <= maxFFT; n <<= 1 {
		plan, err := algofft.NewPlan64(n)
		if err != nil {
			return nil, fmt.Errorf("pitch init fft plan %d: %w", n, err)
		}
		e.plans[n] = plan
	}
	e.frame = make([]complex128, maxFFT)
	e.spectrum = make([]complex128, maxFFT)
	e.re = make([]float64, maxFFT)
	e.im = make([]float64, maxFFT)
	e.power = make([]float64, maxFFT)
	return e, nil
}

// SampleRate returns the configured sample rate.
func (e *Estimator) SampleRate() float64 { return e.sampleRate }

// MaxFrame returns the largest frame analysed; longer input is truncated to
// its most recent MaxFrame samples.
func (e *Estimator) MaxFrame() int { return e.maxFrame }

// Note returns the fractional MIDI note of x, or -1 when no pitch is found.
func (e *Estimator) Note(x []float64) float64 {
	r, ok := e.Estimate(x)
	if !ok {
		return -1
	}
	return r.Note
}

// Estimate analyses x. ok is false for frames shorter than MinSamples,
// silent or aperiodic input, and estimates outside (20, 20000) Hz.
func (e *Estimator) Estimate(x []float64) (Result, bool) {
	if len(x) > e.maxFrame {
		x = x[len(x)-e.maxFrame:]
	}
	n := len(x)
	if n < MinSamples {
		return Result{}, false
	}

	maxLag := n / 2
	if maxLag > MaxLag {
		maxLag = MaxLag
	}
	// One extra lag for the parabolic neighbour.
	corr := e.corr[:maxLag+2]
	if !e.autocorrelate(x, corr) {
		return Result{}, false
	}

	start := 0
	for l := 1; l <= maxLag; l++ {
		if corr[l] <= 0 {
			start = l
			break
		}
	}
	if start == 0 {
		return Result{}, false
	}

	bestLag, bestPeriod, bestHeight := 0, 0.0, 0.0
	for l := start; l <= maxLag; l++ {
		if period, height, ok := e.peak(corr, n, l); ok && height > bestHeight {
			bestLag, bestPeriod, bestHeight = l, period, height
		}
	}
	if bestLag == 0 || bestHeight <= 0 {
		return Result{}, false
	}

	lag, refined := 0, 0.0
	for l := start; l <= bestLag; l++ {
		period, height, ok := e.peak(corr, n, l)
		if !ok {
			continue
		}
		k := math.Round(bestPeriod / period)
		multiple := k >= 1 && math.Abs(bestPeriod/k-period) <= multipleTolerance
		if height >= peakAcceptRatio*bestHeight || (multiple && height >= multipleAcceptRatio*bestHeight) {
			lag, refined = l, period
			if multiple {
				refined = bestPeriod / k
			}
			break
		}
	}
	if lag == 0 {
		return Result{}, false
	}

	freq := e.sampleRate / refined
	if !(freq > MinFrequency && freq < MaxFrequency) {
		return Result{}, false
	}

	energy := corr[0] / float64(n)
	return Result{
		Frequency: freq,
		Note:      core.FrequencyToNote(freq),
		Lag:       refined,
		Clarity:   core.Clamp(unbiased(corr, n, lag)/energy, 0, 1),
	}, true
}

// autocorrelate fills corr[l] for l in [0, len(corr)). It reports false for
// silent input.
func (e *Estimator) autocorrelate(x []float64, corr []float64) bool {
	n := len(x)
	energy := 0.0
	for _, v := range x {
		energy += v * v
	}
	if energy <= 0 || math.IsNaN(energy) || math.IsInf(energy, 0) {
		return false
	}

	if e.direct {
		corr[0] = energy
		for l := 1; l < len(corr); l++ {
			prod := e.product[:n-l]
			vecmath.MulBlock(prod, x[:n-l], x[l:])
			sum := 0.0
			for _, p := range prod {
				sum += p
			}
			corr[l] = sum
		}
		return true
	}

	size := nextPowerOfTwo(2 * n)
	plan := e.plans[size]
	frame := e.frame[:size]
	spectrum := e.spectrum[:size]
	for i, v := range x {
		frame[i] = complex(v, 0)
	}
	for i := n; i < size; i++ {
		frame[i] = 0
	}
	if err := plan.Forward(spectrum, frame); err != nil {
		return false
	}

	re, im, power := e.re[:size], e.im[:size], e.power[:size]
	for k, c := range spectrum {
		re[k] = real(c)
		im[k] = imag(c)
	}
	vecmath.Power(power, re, im)
	for k, p := range power {
		spectrum[k] = complex(p, 0)
	}
	if err := plan.Inverse(frame, spectrum); err != nil {
		return false
	}

	r0 := real(frame[0])
	if r0 <= 0 {
		return false
	}
	scale := energy / r0
	for l := range corr {
		corr[l] = real(frame[l]) * scale
	}
	corr[0] = energy
	return true
}

// peak reports whether lag l is a local maximum of the unbiased correlation
// above the floor, with its parabolically refined lag and height.
func (e *Estimator) peak(corr []float64, n, l int) (period, height float64, ok bool) {
	if corr[l] <= e.floor {
		return 0, 0, false
	}
	a, b, c := unbiased(corr, n, l-1), unbiased(corr, n, l), unbiased(corr, n, l+1)
	if b < a || b < c {
		return 0, 0, false
	}
	off := parabolicOffset(a, b, c)
	return float64(l) + off, b - 0.25*(a-c)*off, true
}

func unbiased(corr []float64, n, l int) float64 {
	return corr[l] / float64(n-l)
}

// parabolicOffset returns the vertex offset in (-0.5, 0.5) of the parabola
// through (-1, a), (0, b), (1, c).
func parabolicOffset(a, b, c float64) float64 {
	den := a - 2*b + c
	if den == 0 {
		return 0
	}
	off := 0.5 * (a - c) / den
	if off > 0.5 || off < -0.5 || math.IsNaN(off) {
		return 0
	}
	return off
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
