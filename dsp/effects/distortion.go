package effects

import (
	"math"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

const (
	distortionDriveScale = 10.0
	distortionToneMinHz  = 200.0
	distortionToneSpanHz = 8000.0
)

// Distortion soft-clips with tanh(x*(1+10*drive)), smooths the result with a
// one-pole low-pass whose cutoff follows tone (200..8200 Hz) and scales by
// level.
type Distortion struct {
	sampleRate float64
	drive      float64
	tone       float64
	level      float64

	alpha float64
	state []float64 // one-pole memory per channel
}

// NewDistortion creates a distortion prepared for two channels.
func NewDistortion(sampleRate float64) (*Distortion, error) {
	d := &Distortion{
		drive: param(KindDistortion, DistortionDrive).Default,
		tone:  param(KindDistortion, DistortionTone).Default,
		level: param(KindDistortion, DistortionLevel).Default,
	}
	if err := d.Prepare(sampleRate, defaultChannels); err != nil {
		return nil, err
	}
	return d, nil
}

// Prepare sizes per-channel state and recomputes the tone coefficient.
func (d *Distortion) Prepare(sampleRate float64, channels int) error {
	if err := validateSampleRate("distortion", sampleRate); err != nil {
		return err
	}
	if err := validateChannels("distortion", channels); err != nil {
		return err
	}
	d.sampleRate = sampleRate
	d.state = make([]float64, channels)
	d.updateTone()
	return nil
}

// Release drops per-channel state; processing passes audio through until
// the next Prepare.
func (d *Distortion) Release() { d.state = nil }

// Reset clears the tone filter memory.
func (d *Distortion) Reset() { core.Zero(d.state) }

// SetDrive sets drive in [0, 1].
func (d *Distortion) SetDrive(v float64) {
	d.drive = param(KindDistortion, DistortionDrive).Clamp(v)
}

// SetTone sets tone in [0, 1] and recomputes the low-pass coefficient.
func (d *Distortion) SetTone(v float64) {
	d.tone = param(KindDistortion, DistortionTone).Clamp(v)
	d.updateTone()
}

// SetLevel sets output level in [0, 1].
func (d *Distortion) SetLevel(v float64) {
	d.level = param(KindDistortion, DistortionLevel).Clamp(v)
}

// Drive returns the drive amount.
func (d *Distortion) Drive() float64 { return d.drive }

// Tone returns the tone amount.
func (d *Distortion) Tone() float64 { return d.tone }

// Level returns the output level.
func (d *Distortion) Level() float64 { return d.level }

// ToneCutoff returns the current tone filter cutoff in Hz.
func (d *Distortion) ToneCutoff() float64 {
	return distortionToneMinHz + d.tone*distortionToneSpanHz
}

// ProcessSample processes one sample of channel ch. Channels without
// prepared state pass through.
func (d *Distortion) ProcessSample(ch int, x float64) float64 {
	if ch < 0 || ch >= len(d.state) {
		return x
	}
	y := math.Tanh(x * (1 + d.drive*distortionDriveScale))
	s := d.state[ch] + d.alpha*(y-d.state[ch])
	d.state[ch] = core.FlushDenormals(s)
	return s * d.level
}

// ProcessBlock processes b in place.
func (d *Distortion) ProcessBlock(b core.Block) {
	for ch, buf := range b {
		if ch >= len(d.state) {
			return
		}
		for i, x := range buf {
			buf[i] = d.ProcessSample(ch, x)
		}
	}
}

func (d *Distortion) updateTone() {
	if d.sampleRate <= 0 {
		return
	}
	rc := 1 / (2 * math.Pi * d.ToneCutoff())
	dt := 1 / d.sampleRate
	d.alpha = dt / (rc + dt)
}
