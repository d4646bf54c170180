package effects

import (
	"math"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/dsp/delay"
)

const (
	reverbNumCombs = 8

	reverbTuningRate = 44100.0

	reverbRoomBase  = 0.5
	reverbRoomScale = 2.0

	reverbFeedbackBase    = 0.6
	reverbFeedbackDamping = 0.3
)

// Comb lengths at 44.1 kHz, primes next to the classic Freeverb tunings.
var reverbCombTunings = [reverbNumCombs]int{1117, 1193, 1277, 1361, 1423, 1493, 1559, 1619}

// Reverb sums eight parallel feedback combs and mixes them with the dry
// signal. Comb lengths scale with (0.5 + 2*roomSize) and the sample rate;
// each comb feeds back 0.6 - 0.3*damping.
type Reverb struct {
	sampleRate float64
	roomSize   float64
	damping    float64
	wet        float64
	dry        float64

	feedback float64
	combs    [][reverbNumCombs]*delay.Line // per channel
}

// NewReverb creates a reverb prepared for two channels.
func NewReverb(sampleRate float64) (*Reverb, error) {
	r := &Reverb{
		roomSize: param(KindReverb, ReverbRoomSize).Default,
		damping:  param(KindReverb, ReverbDamping).Default,
		wet:      param(KindReverb, ReverbWet).Default,
		dry:      param(KindReverb, ReverbDry).Default,
	}
	r.updateFeedback()
	if err := r.Prepare(sampleRate, defaultChannels); err != nil {
		return nil, err
	}
	return r, nil
}

// Prepare allocates every comb at the length of the largest room.
func (r *Reverb) Prepare(sampleRate float64, channels int) error {
	if err := validateSampleRate("reverb", sampleRate); err != nil {
		return err
	}
	if err := validateChannels("reverb", channels); err != nil {
		return err
	}

	maxScale := (reverbRoomBase + reverbRoomScale) * sampleRate / reverbTuningRate
	combs := make([][reverbNumCombs]*delay.Line, channels)
	for ch := range combs {
		for i, tuning := range reverbCombTunings {
			line, err := delay.New(int(math.Ceil(float64(tuning)*maxScale)) + 1)
			if err != nil {
				return err
			}
			combs[ch][i] = line
		}
	}

	r.sampleRate = sampleRate
	r.combs = combs
	r.applyRoomSize()
	return nil
}

// Release drops the comb bank.
func (r *Reverb) Release() { r.combs = nil }

// Reset clears every comb.
func (r *Reverb) Reset() {
	for ch := range r.combs {
		for _, l := range r.combs[ch] {
			l.Reset()
		}
	}
}

// SetRoomSize sets room size in [0, 1] and relayouts the comb lengths.
func (r *Reverb) SetRoomSize(v float64) {
	r.roomSize = param(KindReverb, ReverbRoomSize).Clamp(v)
	r.applyRoomSize()
}

// SetDamping sets damping in [0, 1].
func (r *Reverb) SetDamping(v float64) {
	r.damping = param(KindReverb, ReverbDamping).Clamp(v)
	r.updateFeedback()
}

// SetWet sets the wet level in [0, 1].
func (r *Reverb) SetWet(v float64) {
	r.wet = param(KindReverb, ReverbWet).Clamp(v)
}

// SetDry sets the dry level in [0, 1].
func (r *Reverb) SetDry(v float64) {
	r.dry = param(KindReverb, ReverbDry).Clamp(v)
}

// RoomSize returns the room size.
func (r *Reverb) RoomSize() float64 { return r.roomSize }

// Damping returns the damping amount.
func (r *Reverb) Damping() float64 { return r.damping }

// Wet returns the wet level.
func (r *Reverb) Wet() float64 { return r.wet }

// Dry returns the dry level.
func (r *Reverb) Dry() float64 { return r.dry }

// Feedback returns the per-comb feedback coefficient.
func (r *Reverb) Feedback() float64 { return r.feedback }

// CombLengths returns the active comb lengths.
func (r *Reverb) CombLengths() [reverbNumCombs]int {
	var out [reverbNumCombs]int
	if len(r.combs) == 0 {
		return out
	}
	for i, l := range r.combs[0] {
		out[i] = l.Len()
	}
	return out
}

// WriteIndices returns the comb write positions of channel ch.
func (r *Reverb) WriteIndices(ch int) [reverbNumCombs]int {
	var out [reverbNumCombs]int
	if ch < 0 || ch >= len(r.combs) {
		return out
	}
	for i, l := range r.combs[ch] {
		out[i] = l.WriteIndex()
	}
	return out
}

// ProcessSample processes one sample of channel ch.
func (r *Reverb) ProcessSample(ch int, x float64) float64 {
	if ch < 0 || ch >= len(r.combs) {
		return x
	}
	sum := 0.0
	for _, l := range r.combs[ch] {
		delayed := l.Tap()
		l.Write(core.FlushDenormals(x + delayed*r.feedback))
		sum += delayed
	}
	return x*r.dry + sum/reverbNumCombs*r.wet
}

// ProcessBlock processes b in place.
func (r *Reverb) ProcessBlock(b core.Block) {
	for ch, buf := range b {
		if ch >= len(r.combs) {
			return
		}
		for i, x := range buf {
			buf[i] = r.ProcessSample(ch, x)
		}
	}
}

func (r *Reverb) applyRoomSize() {
	scale := (reverbRoomBase + r.roomSize*reverbRoomScale) * r.sampleRate / reverbTuningRate
	for ch := range r.combs {
		for i, l := range r.combs[ch] {
			l.SetLength(int(float64(reverbCombTunings[i]) * scale))
		}
	}
}

func (r *Reverb) updateFeedback() {
	r.feedback = reverbFeedbackBase - r.damping*reverbFeedbackDamping
}
