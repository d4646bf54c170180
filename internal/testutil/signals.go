// Package testutil holds deterministic signal builders and tolerance
// assertions shared by the package tests.
package testutil

import (
	"math"
	"math/rand"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// Mix sums one equal-amplitude sine per frequency.
func Mix(freqs []float64, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	for _, f := range freqs {
		step := 2 * math.Pi * f / sampleRate
		for i := range out {
			out[i] += amplitude * math.Sin(step*float64(i))
		}
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// BlockOf duplicates x into a block with the given channel count.
func BlockOf(x []float64, channels int) core.Block {
	b := make(core.Block, channels)
	for ch := range b {
		b[ch] = append([]float64(nil), x...)
	}
	return b
}

// Split cuts a block into consecutive blocks of frames samples. The final
// short remainder is dropped.
func Split(b core.Block, frames int) []core.Block {
	if frames <= 0 || b.Frames() < frames {
		return nil
	}
	out := make([]core.Block, 0, b.Frames()/frames)
	for start := 0; start+frames <= b.Frames(); start += frames {
		blk := make(core.Block, len(b))
		for ch := range b {
			blk[ch] = b[ch][start : start+frames]
		}
		out = append(out, blk)
	}
	return out
}
