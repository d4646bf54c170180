package effects

import (
	"math"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/dsp/filter/biquad"
)

const filterDriveScale = 5.0

// Filter is a multimode resonant biquad with an optional tanh input stage.
//
// The FilterType parameter is normalized: int(v*3) selects low-pass,
// high-pass, band-pass or notch, so notch needs v == 1.
type Filter struct {
	sampleRate float64
	cutoff     float64
	resonance  float64
	filterType float64
	drive      float64

	mode     biquad.Mode
	coeffs   biquad.Coefficients
	sections []biquad.Section
}

// NewFilter creates a filter prepared for two channels.
func NewFilter(sampleRate float64) (*Filter, error) {
	f := &Filter{
		cutoff:     param(KindFilter, FilterCutoff).Default,
		resonance:  param(KindFilter, FilterResonance).Default,
		filterType: param(KindFilter, FilterType).Default,
		drive:      param(KindFilter, FilterDrive).Default,
	}
	f.mode = modeFromNormalized(f.filterType)
	if err := f.Prepare(sampleRate, defaultChannels); err != nil {
		return nil, err
	}
	return f, nil
}

// Prepare sizes per-channel history and recomputes coefficients.
func (f *Filter) Prepare(sampleRate float64, channels int) error {
	if err := validateSampleRate("filter", sampleRate); err != nil {
		return err
	}
	if err := validateChannels("filter", channels); err != nil {
		return err
	}
	f.sampleRate = sampleRate
	f.sections = make([]biquad.Section, channels)
	f.updateCoefficients()
	return nil
}

// Release drops per-channel history.
func (f *Filter) Release() { f.sections = nil }

// Reset clears the filter history of every channel.
func (f *Filter) Reset() {
	for i := range f.sections {
		f.sections[i].Reset()
	}
}

// SetCutoff sets the cutoff in Hz, clamped to [20, 20000].
func (f *Filter) SetCutoff(hz float64) {
	f.cutoff = param(KindFilter, FilterCutoff).Clamp(hz)
	f.updateCoefficients()
}

// SetResonance sets resonance in [0, 1].
func (f *Filter) SetResonance(v float64) {
	f.resonance = param(KindFilter, FilterResonance).Clamp(v)
	f.updateCoefficients()
}

// SetFilterType sets the normalized mode selector in [0, 1].
func (f *Filter) SetFilterType(v float64) {
	f.filterType = param(KindFilter, FilterType).Clamp(v)
	f.mode = modeFromNormalized(f.filterType)
	f.updateCoefficients()
}

// SetMode selects the mode directly.
func (f *Filter) SetMode(m biquad.Mode) {
	if m < 0 || m >= biquad.ModeCount {
		return
	}
	f.SetFilterType(float64(m) / float64(biquad.ModeCount-1))
}

// SetDrive sets the input saturation amount in [0, 1].
func (f *Filter) SetDrive(v float64) {
	f.drive = param(KindFilter, FilterDrive).Clamp(v)
}

// Cutoff returns the cutoff in Hz.
func (f *Filter) Cutoff() float64 { return f.cutoff }

// Resonance returns the resonance amount.
func (f *Filter) Resonance() float64 { return f.resonance }

// FilterType returns the normalized mode selector.
func (f *Filter) FilterType() float64 { return f.filterType }

// Mode returns the active mode.
func (f *Filter) Mode() biquad.Mode { return f.mode }

// Drive returns the input saturation amount.
func (f *Filter) Drive() float64 { return f.drive }

// Coefficients returns the current section coefficients.
func (f *Filter) Coefficients() biquad.Coefficients { return f.coeffs }

// ProcessSample processes one sample of channel ch.
func (f *Filter) ProcessSample(ch int, x float64) float64 {
	if ch < 0 || ch >= len(f.sections) {
		return x
	}
	if f.drive > 0 {
		x = math.Tanh(x * (1 + f.drive*filterDriveScale))
	}
	return f.sections[ch].ProcessSample(x)
}

// ProcessBlock processes b in place.
func (f *Filter) ProcessBlock(b core.Block) {
	for ch, buf := range b {
		if ch >= len(f.sections) {
			return
		}
		if f.drive == 0 {
			f.sections[ch].ProcessBlock(buf)
			continue
		}
		for i, x := range buf {
			buf[i] = f.ProcessSample(ch, x)
		}
	}
}

func (f *Filter) updateCoefficients() {
	if f.sampleRate <= 0 {
		return
	}
	f.coeffs = biquad.Design(f.mode, f.cutoff, f.resonance, f.sampleRate)
	for i := range f.sections {
		f.sections[i].Coefficients = f.coeffs
	}
}

func modeFromNormalized(v float64) biquad.Mode {
	m := biquad.Mode(core.Clamp(v, 0, 1) * float64(biquad.ModeCount-1))
	if m >= biquad.ModeCount {
		m = biquad.ModeCount - 1
	}
	return m
}
