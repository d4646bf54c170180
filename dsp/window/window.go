// Package window generates the tapering windows used by the spectrum and
// pitch analysis stages.
package window

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

var (
	errZeroCoherentGain = errors.New("window coherent gain is zero")
	errMismatchedLength = errors.New("samples and coefficients must have same length")
)

// String returns the window name.
func (t Type) String() string {
	switch t {
	case TypeRectangular:
		return "rectangular"
	case TypeHann:
		return "hann"
	case TypeHamming:
		return "hamming"
	case TypeBlackman:
		return "blackman"
	default:
		return "unknown"
	}
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns window coefficients of the given length.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}
	out := make([]float64, length)
	Fill(out, t, opts...)
	return out
}

// Fill writes window coefficients into dst without allocating.
func Fill(dst []float64, t Type, opts ...Option) {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	n := len(dst)
	if n == 0 {
		return
	}
	if n == 1 {
		dst[0] = 1
		return
	}

	den := float64(n - 1)
	if cfg.periodic {
		den = float64(n)
	}

	for i := range dst {
		x := 2 * math.Pi * float64(i) / den
		switch t {
		case TypeHann:
			dst[i] = 0.5 * (1 - math.Cos(x))
		case TypeHamming:
			dst[i] = 0.54 - 0.46*math.Cos(x)
		case TypeBlackman:
			dst[i] = 0.42 - 0.5*math.Cos(x) + 0.08*math.Cos(2*x)
		default:
			dst[i] = 1
		}
	}
}

// CoherentGain returns the mean coefficient, the amplitude a full-scale
// sine keeps after windowing.
func CoherentGain(coeffs []float64) (float64, error) {
	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}
	if sum == 0 {
		return 0, errZeroCoherentGain
	}
	return sum / float64(len(coeffs)), nil
}

// ApplyCoefficientsInPlace multiplies samples with coefficients in place.
func ApplyCoefficientsInPlace(samples, coeffs []float64) error {
	if len(samples) != len(coeffs) {
		return errMismatchedLength
	}

	vecmath.MulBlockInPlace(samples, coeffs)

	return nil
}
