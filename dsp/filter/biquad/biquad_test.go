package biquad

import (
	"math"
	"testing"
)

const testSampleRate = 44100.0

func TestDesignResponses(t *testing.T) {
	t.Parallel()

	const cutoff = 1000.0

	tests := []struct {
		mode      Mode
		freq      float64
		wantAbove float64
		wantBelow float64
	}{
		{LowPass, 50, -1, 1},
		{LowPass, 15000, -200, -30},
		{HighPass, 50, -200, -30},
		{HighPass, 15000, -1, 1},
		{BandPass, cutoff, -1, 1},
		{BandPass, 50, -200, -15},
		{Notch, cutoff, math.Inf(-1), -40},
		{Notch, 15000, -1, 1},
	}
	for _, tc := range tests {
		c := Design(tc.mode, cutoff, 0.5, testSampleRate)
		got := c.MagnitudeDB(tc.freq, testSampleRate)
		if got < tc.wantAbove || got > tc.wantBelow {
			t.Fatalf("%s at %gHz: got=%gdB want in [%g,%g]", tc.mode, tc.freq, got, tc.wantAbove, tc.wantBelow)
		}
	}
}

func TestDesignStableAcrossRange(t *testing.T) {
	t.Parallel()

	for m := Mode(0); m < ModeCount; m++ {
		for _, fc := range []float64{20, 200, 2000, 20000, 40000} {
			for _, res := range []float64{0, 0.01, 0.5, 1} {
				c := Design(m, fc, res, testSampleRate)
				if !c.Stable() {
					t.Fatalf("%s fc=%g res=%g unstable: %+v", m, fc, res, c)
				}
			}
		}
	}
}

func TestSectionImpulseMatchesDifferenceEquation(t *testing.T) {
	t.Parallel()

	c := Coefficients{B0: 0.2, B1: 0.3, B2: 0.1, A1: -0.5, A2: 0.25}
	s := NewSection(c)

	x := []float64{1, 0, 0, 0, 0, 0}
	var x1, x2, y1, y2 float64
	for i, in := range x {
		want := c.B0*in + c.B1*x1 + c.B2*x2 - c.A1*y1 - c.A2*y2
		x2, x1 = x1, in
		y2, y1 = y1, want

		if got := s.ProcessSample(in); math.Abs(got-want) > 1e-15 {
			t.Fatalf("sample %d got=%g want=%g", i, got, want)
		}
	}

	s.Reset()
	if s.State() != [4]float64{} {
		t.Fatalf("state not cleared: %v", s.State())
	}
}

func TestSectionProcessBlockDCGain(t *testing.T) {
	t.Parallel()

	s := NewSection(Design(LowPass, 500, 0.7, testSampleRate))
	buf := make([]float64, 20000)
	for i := range buf {
		buf[i] = 1
	}
	s.ProcessBlock(buf)
	if got := buf[len(buf)-1]; math.Abs(got-1) > 1e-6 {
		t.Fatalf("lowpass DC gain got=%g want=1", got)
	}
}
