package core

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Block is one audio callback worth of samples, stored channel-major:
// b[ch][frame]. All channels are expected to have the same length.
type Block [][]float64

// NewBlock allocates a zeroed block.
func NewBlock(channels, frames int) Block {
	if channels < 0 {
		channels = 0
	}
	if frames < 0 {
		frames = 0
	}

	b := make(Block, channels)
	for ch := range b {
		b[ch] = make([]float64, frames)
	}

	return b
}

// Channels returns the channel count.
func (b Block) Channels() int { return len(b) }

// Frames returns the per-channel sample count (of the first channel).
func (b Block) Frames() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Samples returns the total sample count over all channels.
func (b Block) Samples() int {
	n := 0
	for _, ch := range b {
		n += len(ch)
	}
	return n
}

// Scale multiplies every sample by gain.
func (b Block) Scale(gain float64) {
	if gain == 1 {
		return
	}
	for _, ch := range b {
		vecmath.ScaleBlock(ch, ch, gain)
	}
}

// Clear zeroes every channel.
func (b Block) Clear() {
	for _, ch := range b {
		Zero(ch)
	}
}

// CopyFrom copies src into b channel by channel, truncating to the shorter
// of the two shapes.
func (b Block) CopyFrom(src Block) {
	n := len(b)
	if len(src) < n {
		n = len(src)
	}
	for ch := 0; ch < n; ch++ {
		copy(b[ch], src[ch])
	}
}

// Downmix writes the arithmetic mean across channels into dst and returns
// the number of frames written (min of len(dst) and the block length).
func (b Block) Downmix(dst []float64) int {
	n := b.Frames()
	if len(dst) < n {
		n = len(dst)
	}
	dst = dst[:n]
	Zero(dst)
	if len(b) == 0 || n == 0 {
		return 0
	}

	for _, ch := range b {
		vecmath.AddBlockInPlace(dst, ch[:n])
	}
	if len(b) > 1 {
		vecmath.ScaleBlock(dst, dst, 1/float64(len(b)))
	}

	return n
}

// RMS returns the root-mean-square level over all channels and samples.
func (b Block) RMS() float64 {
	sum := 0.0
	count := 0
	for _, ch := range b {
		for _, v := range ch {
			sum += v * v
		}
		count += len(ch)
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(count))
}

// Peak returns the largest absolute sample over all channels.
func (b Block) Peak() float64 {
	peak := 0.0
	for _, ch := range b {
		if p := Peak(ch); p > peak {
			peak = p
		}
	}
	return peak
}

// Zero sets every sample of buf to 0.
func Zero(buf []float64) { clear(buf) }
