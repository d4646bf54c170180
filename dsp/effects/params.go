package effects

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

// MaxChannels bounds the per-channel state an effect will allocate.
const MaxChannels = 32

const defaultChannels = 2

// ParamInfo describes one automatable effect parameter.
type ParamInfo struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
	Unit    string
}

// Clamp limits v to the parameter range.
func (p ParamInfo) Clamp(v float64) float64 {
	return core.Clamp(v, p.Min, p.Max)
}

// Denormalize maps n in [0, 1] linearly onto the parameter range.
func (p ParamInfo) Denormalize(n float64) float64 {
	n = core.Clamp(n, 0, 1)
	return p.Clamp(p.Min + n*(p.Max-p.Min))
}

// Normalize maps v in the parameter range onto [0, 1].
func (p ParamInfo) Normalize(v float64) float64 {
	if p.Max == p.Min {
		return 0
	}
	return (p.Clamp(v) - p.Min) / (p.Max - p.Min)
}

// Distortion parameters.
const (
	DistortionDrive = iota
	DistortionTone
	DistortionLevel
)

// Filter parameters.
const (
	FilterCutoff = iota
	FilterResonance
	FilterType
	FilterDrive
)

// Compressor parameters.
const (
	CompressorThreshold = iota
	CompressorRatio
	CompressorAttack
	CompressorRelease
	CompressorMakeupGain
)

// Delay parameters.
const (
	DelayTime = iota
	DelayFeedback
	DelayMix
)

// Chorus parameters.
const (
	ChorusRate = iota
	ChorusDepth
	ChorusMix
)

// Reverb parameters.
const (
	ReverbRoomSize = iota
	ReverbDamping
	ReverbWet
	ReverbDry
)

var paramTables = [KindCount][]ParamInfo{
	KindDistortion: {
		{Name: "Drive", Min: 0, Max: 1, Default: 0.5},
		{Name: "Tone", Min: 0, Max: 1, Default: 0.5},
		{Name: "Level", Min: 0, Max: 1, Default: 0.5},
	},
	KindFilter: {
		{Name: "Cutoff", Min: 20, Max: 20000, Default: 1000, Unit: "Hz"},
		{Name: "Resonance", Min: 0, Max: 1, Default: 0.5},
		{Name: "FilterType", Min: 0, Max: 1, Default: 0},
		{Name: "Drive", Min: 0, Max: 1, Default: 0},
	},
	KindCompressor: {
		{Name: "Threshold", Min: -60, Max: 0, Default: -20, Unit: "dB"},
		{Name: "Ratio", Min: 1, Max: 20, Default: 4, Unit: ":1"},
		{Name: "Attack", Min: 0.1, Max: 100, Default: 10, Unit: "ms"},
		{Name: "Release", Min: 10, Max: 1000, Default: 100, Unit: "ms"},
		{Name: "MakeupGain", Min: 0, Max: 24, Default: 0, Unit: "dB"},
	},
	KindDelay: {
		{Name: "Time", Min: 0.01, Max: 2, Default: 0.3, Unit: "s"},
		{Name: "Feedback", Min: 0, Max: 0.9, Default: 0.3},
		{Name: "Mix", Min: 0, Max: 1, Default: 0.5},
	},
	KindChorus: {
		{Name: "Rate", Min: 0.1, Max: 10, Default: 1, Unit: "Hz"},
		{Name: "Depth", Min: 0, Max: 1, Default: 0.5},
		{Name: "Mix", Min: 0, Max: 1, Default: 0.5},
	},
	KindReverb: {
		{Name: "RoomSize", Min: 0, Max: 1, Default: 0.5},
		{Name: "Damping", Min: 0, Max: 1, Default: 0.5},
		{Name: "Wet", Min: 0, Max: 1, Default: 0.3},
		{Name: "Dry", Min: 0, Max: 1, Default: 0.7},
	},
}

// Params returns the parameter table of kind. The slice is shared and must
// not be modified. Unknown kinds return nil.
func Params(kind Kind) []ParamInfo {
	if !kind.Valid() {
		return nil
	}
	return paramTables[kind]
}

// Param returns the metadata of one parameter.
func Param(kind Kind, index int) (ParamInfo, bool) {
	table := Params(kind)
	if index < 0 || index >= len(table) {
		return ParamInfo{}, false
	}
	return table[index], true
}

// Defaults returns a fresh slice of default values for kind.
func Defaults(kind Kind) []float64 {
	table := Params(kind)
	out := make([]float64, len(table))
	for i, p := range table {
		out[i] = p.Default
	}
	return out
}

func param(kind Kind, index int) ParamInfo {
	return paramTables[kind][index]
}

func validateSampleRate(effect string, sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("%s sample rate must be > 0: %f", effect, sampleRate)
	}
	return nil
}

func validateChannels(effect string, channels int) error {
	if channels < 1 || channels > MaxChannels {
		return fmt.Errorf("%s channels must be in [1, %d]: %d", effect, MaxChannels, channels)
	}
	return nil
}
