// Package delay provides a circular delay line whose storage is allocated
// once and whose active length can change at runtime without allocating.
package delay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-fxtrigger/dsp/interp"
)

// Line is a circular delay line.
//
// Read(d) returns the sample written d writes ago, so Read(1) is the most
// recent sample and Read(Len()) is the oldest one, which is also what Tap
// returns before the next Write overwrites it.
type Line struct {
	buffer []float64
	length int
	write  int
	mode   interp.Mode
}

// Option configures a Line.
type Option func(*Line)

// WithMode selects the fractional read kernel.
func WithMode(m interp.Mode) Option {
	return func(d *Line) {
		d.mode = m
	}
}

// New returns a delay line able to hold up to capacity samples. The active
// length starts at capacity.
func New(capacity int, opts ...Option) (*Line, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("delay capacity must be > 0: %d", capacity)
	}
	d := &Line{
		buffer: make([]float64, capacity),
		length: capacity,
		mode:   interp.Linear,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d, nil
}

// Capacity returns the allocated storage size.
func (d *Line) Capacity() int { return len(d.buffer) }

// Len returns the active length.
func (d *Line) Len() int { return d.length }

// WriteIndex returns the slot the next Write fills, always in [0, Len()).
func (d *Line) WriteIndex() int { return d.write }

// SetLength changes the active length, clamped to [1, Capacity()]. The
// active region is cleared and the write index reset so no stale audio from
// a previous length is replayed.
func (d *Line) SetLength(n int) {
	if n < 1 {
		n = 1
	}
	if n > len(d.buffer) {
		n = len(d.buffer)
	}
	d.length = n
	d.Reset()
}

// Write writes one sample and advances the write index.
func (d *Line) Write(sample float64) {
	d.buffer[d.write] = sample
	d.write++
	if d.write >= d.length {
		d.write = 0
	}
}

// Tap returns the oldest sample, the one the next Write replaces.
func (d *Line) Tap() float64 {
	return d.buffer[d.write]
}

// Read reads an integer delay in samples, clamped to [1, Len()].
func (d *Line) Read(delay int) float64 {
	if delay < 1 {
		delay = 1
	}
	if delay > d.length {
		delay = d.length
	}
	readPos := d.write - delay
	if readPos < 0 {
		readPos += d.length
	}
	return d.buffer[readPos]
}

// ReadFractional reads a fractional delay using the configured kernel.
// The delay is clamped to the range the kernel can serve.
func (d *Line) ReadFractional(delay float64) float64 {
	if math.IsNaN(delay) {
		delay = 1
	}
	maxDelay := float64(d.length - 1)
	if d.mode == interp.Hermite {
		maxDelay = float64(d.length - 2)
	}
	if maxDelay < 1 {
		return d.Read(1)
	}
	if delay < 1 {
		delay = 1
	}
	if delay > maxDelay {
		delay = maxDelay
	}

	p := int(math.Floor(delay))
	t := delay - float64(p)

	if d.mode == interp.Hermite {
		xm1 := d.Read(max(1, p-1))
		return interp.Hermite4(t, xm1, d.Read(p), d.Read(p+1), d.Read(p+2))
	}
	return interp.Linear2(t, d.Read(p), d.Read(p+1))
}

// Reset clears the active region and rewinds the write index.
func (d *Line) Reset() {
	for i := 0; i < d.length; i++ {
		d.buffer[i] = 0
	}
	d.write = 0
}
