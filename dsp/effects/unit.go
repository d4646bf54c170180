package effects

import (
	"fmt"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

// Unit is one effect of any kind. Exactly one of the kind pointers is set,
// selected by Kind; every method dispatches with an exhaustive switch.
type Unit struct {
	kind Kind

	distortion *Distortion
	filter     *Filter
	compressor *Compressor
	delay      *Delay
	chorus     *Chorus
	reverb     *Reverb
}

// NewUnit constructs an effect of kind, prepared for two channels at
// sampleRate with default parameters.
func NewUnit(kind Kind, sampleRate float64) (*Unit, error) {
	u := &Unit{kind: kind}
	var err error
	switch kind {
	case KindDistortion:
		u.distortion, err = NewDistortion(sampleRate)
	case KindFilter:
		u.filter, err = NewFilter(sampleRate)
	case KindCompressor:
		u.compressor, err = NewCompressor(sampleRate)
	case KindDelay:
		u.delay, err = NewDelay(sampleRate)
	case KindChorus:
		u.chorus, err = NewChorus(sampleRate)
	case KindReverb:
		u.reverb, err = NewReverb(sampleRate)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Kind returns the effect kind.
func (u *Unit) Kind() Kind { return u.kind }

// Name returns the kind name.
func (u *Unit) Name() string { return u.kind.String() }

// Params returns the parameter metadata of the unit's kind.
func (u *Unit) Params() []ParamInfo { return Params(u.kind) }

// Prepare (re)allocates state for sampleRate and channels. It allocates and
// must not run concurrently with ProcessBlock.
func (u *Unit) Prepare(sampleRate float64, channels int) error {
	switch u.kind {
	case KindDistortion:
		return u.distortion.Prepare(sampleRate, channels)
	case KindFilter:
		return u.filter.Prepare(sampleRate, channels)
	case KindCompressor:
		return u.compressor.Prepare(sampleRate, channels)
	case KindDelay:
		return u.delay.Prepare(sampleRate, channels)
	case KindChorus:
		return u.chorus.Prepare(sampleRate, channels)
	case KindReverb:
		return u.reverb.Prepare(sampleRate, channels)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, int(u.kind))
	}
}

// Release frees processing state.
func (u *Unit) Release() {
	switch u.kind {
	case KindDistortion:
		u.distortion.Release()
	case KindFilter:
		u.filter.Release()
	case KindCompressor:
		u.compressor.Release()
	case KindDelay:
		u.delay.Release()
	case KindChorus:
		u.chorus.Release()
	case KindReverb:
		u.reverb.Release()
	}
}

// Reset clears processing state without touching parameters.
func (u *Unit) Reset() {
	switch u.kind {
	case KindDistortion:
		u.distortion.Reset()
	case KindFilter:
		u.filter.Reset()
	case KindCompressor:
		u.compressor.Reset()
	case KindDelay:
		u.delay.Reset()
	case KindChorus:
		u.chorus.Reset()
	case KindReverb:
		u.reverb.Reset()
	}
}

// ProcessBlock processes b in place.
func (u *Unit) ProcessBlock(b core.Block) {
	switch u.kind {
	case KindDistortion:
		u.distortion.ProcessBlock(b)
	case KindFilter:
		u.filter.ProcessBlock(b)
	case KindCompressor:
		u.compressor.ProcessBlock(b)
	case KindDelay:
		u.delay.ProcessBlock(b)
	case KindChorus:
		u.chorus.ProcessBlock(b)
	case KindReverb:
		u.reverb.ProcessBlock(b)
	}
}

// SetParameter writes parameter index, clamped to its range. Unknown
// indices are ignored.
func (u *Unit) SetParameter(index int, value float64) {
	switch u.kind {
	case KindDistortion:
		switch index {
		case DistortionDrive:
			u.distortion.SetDrive(value)
		case DistortionTone:
			u.distortion.SetTone(value)
		case DistortionLevel:
			u.distortion.SetLevel(value)
		}
	case KindFilter:
		switch index {
		case FilterCutoff:
			u.filter.SetCutoff(value)
		case FilterResonance:
			u.filter.SetResonance(value)
		case FilterType:
			u.filter.SetFilterType(value)
		case FilterDrive:
			u.filter.SetDrive(value)
		}
	case KindCompressor:
		switch index {
		case CompressorThreshold:
			u.compressor.SetThreshold(value)
		case CompressorRatio:
			u.compressor.SetRatio(value)
		case CompressorAttack:
			u.compressor.SetAttack(value)
		case CompressorRelease:
			u.compressor.SetRelease(value)
		case CompressorMakeupGain:
			u.compressor.SetMakeupGain(value)
		}
	case KindDelay:
		switch index {
		case DelayTime:
			u.delay.SetTime(value)
		case DelayFeedback:
			u.delay.SetFeedback(value)
		case DelayMix:
			u.delay.SetMix(value)
		}
	case KindChorus:
		switch index {
		case ChorusRate:
			u.chorus.SetRate(value)
		case ChorusDepth:
			u.chorus.SetDepth(value)
		case ChorusMix:
			u.chorus.SetMix(value)
		}
	case KindReverb:
		switch index {
		case ReverbRoomSize:
			u.reverb.SetRoomSize(value)
		case ReverbDamping:
			u.reverb.SetDamping(value)
		case ReverbWet:
			u.reverb.SetWet(value)
		case ReverbDry:
			u.reverb.SetDry(value)
		}
	}
}

// Parameter reads the value the DSP object holds for index; unknown indices
// read 0.
func (u *Unit) Parameter(index int) float64 {
	switch u.kind {
	case KindDistortion:
		switch index {
		case DistortionDrive:
			return u.distortion.Drive()
		case DistortionTone:
			return u.distortion.Tone()
		case DistortionLevel:
			return u.distortion.Level()
		}
	case KindFilter:
		switch index {
		case FilterCutoff:
			return u.filter.Cutoff()
		case FilterResonance:
			return u.filter.Resonance()
		case FilterType:
			return u.filter.FilterType()
		case FilterDrive:
			return u.filter.Drive()
		}
	case KindCompressor:
		switch index {
		case CompressorThreshold:
			return u.compressor.Threshold()
		case CompressorRatio:
			return u.compressor.Ratio()
		case CompressorAttack:
			return u.compressor.Attack()
		case CompressorRelease:
			return u.compressor.ReleaseTime()
		case CompressorMakeupGain:
			return u.compressor.MakeupGain()
		}
	case KindDelay:
		switch index {
		case DelayTime:
			return u.delay.Time()
		case DelayFeedback:
			return u.delay.Feedback()
		case DelayMix:
			return u.delay.Mix()
		}
	case KindChorus:
		switch index {
		case ChorusRate:
			return u.chorus.Rate()
		case ChorusDepth:
			return u.chorus.Depth()
		case ChorusMix:
			return u.chorus.Mix()
		}
	case KindReverb:
		switch index {
		case ReverbRoomSize:
			return u.reverb.RoomSize()
		case ReverbDamping:
			return u.reverb.Damping()
		case ReverbWet:
			return u.reverb.Wet()
		case ReverbDry:
			return u.reverb.Dry()
		}
	}
	return 0
}

// Distortion returns the distortion state, or nil for other kinds.
func (u *Unit) Distortion() *Distortion { return u.distortion }

// Filter returns the filter state, or nil for other kinds.
func (u *Unit) Filter() *Filter { return u.filter }

// Compressor returns the compressor state, or nil for other kinds.
func (u *Unit) Compressor() *Compressor { return u.compressor }

// Delay returns the delay state, or nil for other kinds.
func (u *Unit) Delay() *Delay { return u.delay }

// Chorus returns the chorus state, or nil for other kinds.
func (u *Unit) Chorus() *Chorus { return u.chorus }

// Reverb returns the reverb state, or nil for other kinds.
func (u *Unit) Reverb() *Reverb { return u.reverb }
