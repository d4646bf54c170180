// Package midimap binds MIDI control change messages to effect parameters.
//
// A CC value v in [0, 127] is normalized to v/127 and mapped linearly onto
// the parameter's range. Bindings are keyed by channel and controller number.
// In learn mode the next control change that arrives is bound to the pending
// target before it is applied.
package midimap

import (
	"slices"
	"sync"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
)

// Control identifies a controller on a MIDI channel (0..15).
type Control struct {
	Channel    uint8
	Controller uint8
}

// Target is an effect parameter.
type Target struct {
	EffectID int
	Param    int
}

// Binding is one control to parameter assignment.
type Binding struct {
	Control Control
	Target  Target
}

// Setter writes effect parameters. *engine.Engine implements it.
type Setter interface {
	SetParameter(id, index int, value float64) error
	ParamInfo(id, index int) (effects.ParamInfo, bool)
}

// Mapper routes control changes to a Setter. It is safe for concurrent use.
type Mapper struct {
	setter Setter

	mu       sync.Mutex
	bindings map[Control]Target
	learning bool
	pending  Target
	onLearn  func(Binding)
}

// New creates a mapper without bindings.
func New(setter Setter) *Mapper {
	return &Mapper{setter: setter, bindings: make(map[Control]Target)}
}

// Map binds a controller to a target, replacing an earlier binding.
func (m *Mapper) Map(channel, controller uint8, t Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[Control{Channel: channel, Controller: controller}] = t
}

// Unmap removes a binding and reports whether it existed.
func (m *Mapper) Unmap(channel, controller uint8) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := Control{Channel: channel, Controller: controller}
	_, ok := m.bindings[c]
	delete(m.bindings, c)
	return ok
}

// UnmapTarget removes every binding to t, for example after its effect was
// removed. It returns the number of bindings removed.
func (m *Mapper) UnmapTarget(t Target) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for c, bound := range m.bindings {
		if bound == t {
			delete(m.bindings, c)
			n++
		}
	}
	return n
}

// Lookup returns the target bound to a controller.
func (m *Mapper) Lookup(channel, controller uint8) (Target, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.bindings[Control{Channel: channel, Controller: controller}]
	return t, ok
}

// Bindings returns all bindings ordered by channel and controller.
func (m *Mapper) Bindings() []Binding {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Binding, 0, len(m.bindings))
	for c, t := range m.bindings {
		out = append(out, Binding{Control: c, Target: t})
	}
	slices.SortFunc(out, func(a, b Binding) int {
		if a.Control.Channel != b.Control.Channel {
			return int(a.Control.Channel) - int(b.Control.Channel)
		}
		return int(a.Control.Controller) - int(b.Control.Controller)
	})
	return out
}

// Learn arms learn mode: the next control change binds to t.
func (m *Mapper) Learn(t Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.learning = true
	m.pending = t
}

// CancelLearn leaves learn mode without binding.
func (m *Mapper) CancelLearn() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.learning = false
}

// Learning reports whether learn mode is armed and for which target.
func (m *Mapper) Learning() (Target, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending, m.learning
}

// OnLearn sets a callback run after learn mode creates a binding.
func (m *Mapper) OnLearn(fn func(Binding)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLearn = fn
}

// Handle applies msg if it is a control change on a bound controller and
// reports whether a parameter was written. Other messages are ignored.
func (m *Mapper) Handle(msg midi.Message) bool {
	var ch, ctl, val uint8
	if !msg.GetControlChange(&ch, &ctl, &val) {
		return false
	}
	c := Control{Channel: ch, Controller: ctl}

	m.mu.Lock()
	var learned func(Binding)
	if m.learning {
		m.bindings[c] = m.pending
		m.learning = false
		learned = m.onLearn
	}
	t, ok := m.bindings[c]
	m.mu.Unlock()

	if learned != nil {
		learned(Binding{Control: c, Target: t})
	}
	if !ok {
		return false
	}

	info, ok := m.setter.ParamInfo(t.EffectID, t.Param)
	if !ok {
		return false
	}
	return m.setter.SetParameter(t.EffectID, t.Param, info.Denormalize(float64(val)/127)) == nil
}
