package effects

import (
	"math"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/dsp/delay"
	"github.com/cwbudde/algo-fxtrigger/dsp/interp"
)

const chorusBufferSeconds = 0.05

// Chorus mixes the input with a copy read from a 50 ms line at an
// LFO-modulated offset:
//
//	d(t) = 1 + depth * (L/2) * 0.5 * (1 + sin(phase))
//
// where L is the line length. One LFO drives every channel.
type Chorus struct {
	sampleRate float64
	rate       float64
	depth      float64
	mix        float64

	phase     float64
	phaseStep float64
	lastDelay float64
	lines     []*delay.Line
}

// NewChorus creates a chorus prepared for two channels.
func NewChorus(sampleRate float64) (*Chorus, error) {
	c := &Chorus{
		rate:  param(KindChorus, ChorusRate).Default,
		depth: param(KindChorus, ChorusDepth).Default,
		mix:   param(KindChorus, ChorusMix).Default,
	}
	if err := c.Prepare(sampleRate, defaultChannels); err != nil {
		return nil, err
	}
	return c, nil
}

// Prepare allocates one 50 ms line per channel.
func (c *Chorus) Prepare(sampleRate float64, channels int) error {
	if err := validateSampleRate("chorus", sampleRate); err != nil {
		return err
	}
	if err := validateChannels("chorus", channels); err != nil {
		return err
	}

	size := int(chorusBufferSeconds * sampleRate)
	if size < 8 {
		size = 8
	}
	lines := make([]*delay.Line, channels)
	for ch := range lines {
		line, err := delay.New(size, delay.WithMode(interp.Linear))
		if err != nil {
			return err
		}
		lines[ch] = line
	}

	c.sampleRate = sampleRate
	c.lines = lines
	c.updatePhaseStep()
	c.Reset()
	return nil
}

// Release drops the delay lines.
func (c *Chorus) Release() { c.lines = nil }

// Reset clears the lines and rewinds the LFO.
func (c *Chorus) Reset() {
	for _, l := range c.lines {
		l.Reset()
	}
	c.phase = 0
}

// SetRate sets LFO rate in Hz, clamped to [0.1, 10].
func (c *Chorus) SetRate(hz float64) {
	c.rate = param(KindChorus, ChorusRate).Clamp(hz)
	c.updatePhaseStep()
}

// SetDepth sets modulation depth, clamped to [0, 1].
func (c *Chorus) SetDepth(v float64) {
	c.depth = param(KindChorus, ChorusDepth).Clamp(v)
}

// SetMix sets the wet amount, clamped to [0, 1].
func (c *Chorus) SetMix(v float64) {
	c.mix = param(KindChorus, ChorusMix).Clamp(v)
}

// Rate returns the LFO rate in Hz.
func (c *Chorus) Rate() float64 { return c.rate }

// Depth returns the modulation depth.
func (c *Chorus) Depth() float64 { return c.depth }

// Mix returns the wet amount.
func (c *Chorus) Mix() float64 { return c.mix }

// BufferLen returns the line length in samples.
func (c *Chorus) BufferLen() int {
	if len(c.lines) == 0 {
		return 0
	}
	return c.lines[0].Len()
}

// CurrentDelay returns the read offset used by the last processed frame.
func (c *Chorus) CurrentDelay() float64 { return c.lastDelay }

// WriteIndex returns the write position of channel ch's line, or -1.
func (c *Chorus) WriteIndex(ch int) int {
	if ch < 0 || ch >= len(c.lines) {
		return -1
	}
	return c.lines[ch].WriteIndex()
}

// ProcessSample processes one mono sample on channel 0 and advances the LFO.
func (c *Chorus) ProcessSample(x float64) float64 {
	if len(c.lines) == 0 {
		return x
	}
	d := c.nextDelay()
	return c.tick(c.lines[0], d, x)
}

// ProcessBlock processes b in place, one LFO step per frame.
func (c *Chorus) ProcessBlock(b core.Block) {
	if len(c.lines) == 0 {
		return
	}
	channels := len(b)
	if channels > len(c.lines) {
		channels = len(c.lines)
	}
	frames := b.Frames()
	for i := 0; i < frames; i++ {
		d := c.nextDelay()
		for ch := 0; ch < channels; ch++ {
			b[ch][i] = c.tick(c.lines[ch], d, b[ch][i])
		}
	}
}

func (c *Chorus) tick(line *delay.Line, d, x float64) float64 {
	line.Write(x)
	wet := line.ReadFractional(d)
	return x*(1-c.mix) + wet*c.mix
}

func (c *Chorus) nextDelay() float64 {
	half := float64(c.lines[0].Len()) * 0.5
	d := 1 + c.depth*half*0.5*(1+math.Sin(c.phase))

	c.phase += c.phaseStep
	if c.phase >= 2*math.Pi {
		c.phase -= 2 * math.Pi
	}
	c.lastDelay = d
	return d
}

func (c *Chorus) updatePhaseStep() {
	if c.sampleRate <= 0 {
		return
	}
	c.phaseStep = 2 * math.Pi * c.rate / c.sampleRate
}
