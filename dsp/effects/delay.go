package effects

import (
	"math"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/dsp/delay"
)

// Delay is a feedback delay with dry/wet mix.
//
// Each channel owns one line whose length is int(time*sampleRate). Storage
// for the longest time is allocated in Prepare; a time change resizes the
// active region, clears it and rewinds the write index.
type Delay struct {
	sampleRate   float64
	delaySeconds float64
	feedback     float64
	mix          float64

	lines []*delay.Line
}

// NewDelay creates a delay prepared for two channels.
func NewDelay(sampleRate float64) (*Delay, error) {
	d := &Delay{
		delaySeconds: param(KindDelay, DelayTime).Default,
		feedback:     param(KindDelay, DelayFeedback).Default,
		mix:          param(KindDelay, DelayMix).Default,
	}
	if err := d.Prepare(sampleRate, defaultChannels); err != nil {
		return nil, err
	}
	return d, nil
}

// Prepare allocates one line per channel sized for the maximum time.
func (d *Delay) Prepare(sampleRate float64, channels int) error {
	if err := validateSampleRate("delay", sampleRate); err != nil {
		return err
	}
	if err := validateChannels("delay", channels); err != nil {
		return err
	}

	capacity := int(math.Ceil(param(KindDelay, DelayTime).Max*sampleRate)) + 1
	lines := make([]*delay.Line, channels)
	for ch := range lines {
		line, err := delay.New(capacity)
		if err != nil {
			return err
		}
		lines[ch] = line
	}

	d.sampleRate = sampleRate
	d.lines = lines
	d.applyLength()
	return nil
}

// Release drops the delay lines.
func (d *Delay) Release() { d.lines = nil }

// Reset clears every line.
func (d *Delay) Reset() {
	for _, l := range d.lines {
		l.Reset()
	}
}

// SetTime sets the delay time in seconds, clamped to [0.01, 2].
func (d *Delay) SetTime(seconds float64) {
	d.delaySeconds = param(KindDelay, DelayTime).Clamp(seconds)
	d.applyLength()
}

// SetFeedback sets feedback, clamped to [0, 0.9].
func (d *Delay) SetFeedback(v float64) {
	d.feedback = param(KindDelay, DelayFeedback).Clamp(v)
}

// SetMix sets the wet amount, clamped to [0, 1].
func (d *Delay) SetMix(v float64) {
	d.mix = param(KindDelay, DelayMix).Clamp(v)
}

// Time returns delay time in seconds.
func (d *Delay) Time() float64 { return d.delaySeconds }

// Feedback returns the feedback amount.
func (d *Delay) Feedback() float64 { return d.feedback }

// Mix returns the wet amount.
func (d *Delay) Mix() float64 { return d.mix }

// DelaySamples returns the active line length.
func (d *Delay) DelaySamples() int {
	if len(d.lines) == 0 {
		return 0
	}
	return d.lines[0].Len()
}

// WriteIndex returns the write position of channel ch's line, or -1.
func (d *Delay) WriteIndex(ch int) int {
	if ch < 0 || ch >= len(d.lines) {
		return -1
	}
	return d.lines[ch].WriteIndex()
}

// ProcessSample processes one sample of channel ch.
func (d *Delay) ProcessSample(ch int, x float64) float64 {
	if ch < 0 || ch >= len(d.lines) {
		return x
	}
	line := d.lines[ch]
	delayed := line.Tap()
	line.Write(core.FlushDenormals(x + delayed*d.feedback))
	return x*(1-d.mix) + delayed*d.mix
}

// ProcessBlock processes b in place.
func (d *Delay) ProcessBlock(b core.Block) {
	for ch, buf := range b {
		if ch >= len(d.lines) {
			return
		}
		for i, x := range buf {
			buf[i] = d.ProcessSample(ch, x)
		}
	}
}

func (d *Delay) applyLength() {
	n := int(d.delaySeconds * d.sampleRate)
	for _, l := range d.lines {
		l.SetLength(n)
	}
}
