package effectchain

import "github.com/cwbudde/algo-fxtrigger/dsp/effects"

// Instance is one effect owned by a Processor.
//
// Parameters are stored twice: params is the read-back value, the unit holds
// the clamped value together with its derived coefficients.
type Instance struct {
	ID      int
	Kind    effects.Kind
	Enabled bool

	params []float64
	unit   *effects.Unit
}

// Info is a copy of an instance's public state.
type Info struct {
	ID      int
	Kind    effects.Kind
	Enabled bool
	Params  []float64
}

// NewInstance wraps unit as an enabled instance with default parameters.
// The unit must match kind.
func NewInstance(id int, unit *effects.Unit) *Instance {
	return &Instance{
		ID:      id,
		Kind:    unit.Kind(),
		Enabled: true,
		params:  effects.Defaults(unit.Kind()),
		unit:    unit,
	}
}

// Unit returns the owned effect.
func (in *Instance) Unit() *effects.Unit { return in.unit }

// SetParameter stores the clamped value and forwards it to the unit.
// Unknown indices are ignored.
func (in *Instance) SetParameter(index int, value float64) bool {
	info, ok := effects.Param(in.Kind, index)
	if !ok {
		return false
	}

	in.params[index] = info.Clamp(value)
	in.unit.SetParameter(index, value)

	return true
}

// Parameter returns the stored value, or 0 for unknown indices.
func (in *Instance) Parameter(index int) float64 {
	if index < 0 || index >= len(in.params) {
		return 0
	}

	return in.params[index]
}

// Info returns a copy of the instance state.
func (in *Instance) Info() Info {
	return Info{
		ID:      in.ID,
		Kind:    in.Kind,
		Enabled: in.Enabled,
		Params:  append([]float64(nil), in.params...),
	}
}
