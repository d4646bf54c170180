package biquad

import (
	"math"
)

// Mode selects the filter response.
type Mode int

const (
	LowPass Mode = iota
	HighPass
	BandPass
	Notch
)

// ModeCount is the number of available modes.
const ModeCount = 4

// minAlpha keeps the poles strictly inside the unit circle when the
// resonance control is at zero.
const minAlpha = 1e-4

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case LowPass:
		return "lowpass"
	case HighPass:
		return "highpass"
	case BandPass:
		return "bandpass"
	case Notch:
		return "notch"
	default:
		return "unknown"
	}
}

// Design computes normalized coefficients for mode at cutoff Hz.
//
// The cutoff is limited to just below Nyquist. resonance is clamped to
// [0, 1] and scales alpha = sin(w0) * resonance. Unknown modes fall back
// to low-pass.
func Design(mode Mode, cutoff, resonance, sampleRate float64) Coefficients {
	if sampleRate <= 0 {
		return Coefficients{B0: 1}
	}
	nyquistLimit := 0.49 * sampleRate
	if cutoff > nyquistLimit {
		cutoff = nyquistLimit
	}
	if cutoff < 1 {
		cutoff = 1
	}
	if resonance < 0 {
		resonance = 0
	}
	if resonance > 1 {
		resonance = 1
	}

	w0 := 2 * math.Pi * cutoff / sampleRate
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) * resonance
	if alpha < minAlpha {
		alpha = minAlpha
	}

	a0 := 1 + alpha
	a1 := -2 * cosw
	a2 := 1 - alpha

	var b0, b1, b2 float64
	switch mode {
	case HighPass:
		b0 = (1 + cosw) / 2
		b1 = -(1 + cosw)
		b2 = (1 + cosw) / 2
	case BandPass:
		b0 = alpha
		b1 = 0
		b2 = -alpha
	case Notch:
		b0 = 1
		b1 = -2 * cosw
		b2 = 1
	default:
		b0 = (1 - cosw) / 2
		b1 = 1 - cosw
		b2 = (1 - cosw) / 2
	}

	return Coefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}
