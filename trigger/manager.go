// Package trigger maps detected notes, chord roots and melody notes to effect
// activation.
//
// Every trigger is either inactive or active. Check is called once per audio
// block: it first counts the block's samples off the timers of active
// triggers and deactivates those that reach zero, then evaluates each enabled
// trigger in registration order. A match activates an inactive trigger,
// starts its timer and makes its effect the active one. A miss deactivates an
// active trigger at once, whatever is left on its timer.
//
// Matching is deliberately simple:
//
//   - note: the detected note is within half a semitone of any trigger note
//   - chord: the rounded chord root has the pitch class of any trigger note
//   - melody: the melody note is within half a semitone of the first note
//
// Durations are counted in samples and default to 100.
package trigger

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

const (
	// MaxTriggers bounds the number of triggers a Manager holds.
	MaxTriggers = 128
	// DefaultThreshold is the match threshold assigned to new triggers.
	DefaultThreshold = 0.5
	// DefaultDuration is the activation time of new triggers in samples.
	DefaultDuration = 100
	// NoEffect is reported when no trigger has selected an effect.
	NoEffect = -1

	matchTolerance = 0.5
)

var (
	// ErrCapacity is returned when the manager already holds MaxTriggers.
	ErrCapacity = errors.New("trigger capacity reached")
	// ErrDuplicateID is returned when inserting an id that is already used.
	ErrDuplicateID = errors.New("duplicate trigger id")
	// ErrNoNotes is returned for triggers without notes.
	ErrNoNotes = errors.New("trigger needs at least one note")
)

// Trigger is one registered rule. Notes are MIDI note numbers.
type Trigger struct {
	ID        int
	Kind      Kind
	Notes     []int
	EffectID  int
	Enabled   bool
	Threshold float64
	Duration  int
}

// State is the runtime state of a trigger. Remaining is zero while inactive.
type State struct {
	Active    bool
	Remaining int
}

// Callback receives every activation change. It runs inside Check and must
// not call back into the Manager.
type Callback func(effectID int, active bool)

// NewTrigger builds an enabled trigger with the default threshold and
// duration. The notes are copied.
func NewTrigger(id int, kind Kind, notes []int, effectID int) (Trigger, error) {
	if !kind.Valid() {
		return Trigger{}, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	if len(notes) == 0 {
		return Trigger{}, ErrNoNotes
	}
	return Trigger{
		ID:        id,
		Kind:      kind,
		Notes:     append([]int(nil), notes...),
		EffectID:  effectID,
		Enabled:   true,
		Threshold: DefaultThreshold,
		Duration:  DefaultDuration,
	}, nil
}

// Manager holds triggers and their runtime state. It is not safe for
// concurrent use; Check, Insert and the setters do not allocate.
type Manager struct {
	triggers []Trigger
	states   []State
	active   int
	nextID   int
	callback Callback
}

// NewManager creates an empty manager. Ids are assigned from 1.
func NewManager() *Manager {
	return &Manager{
		triggers: make([]Trigger, 0, MaxTriggers),
		states:   make([]State, 0, MaxTriggers),
		active:   NoEffect,
		nextID:   1,
	}
}

// SetCallback installs the activation callback. nil disables it.
func (m *Manager) SetCallback(cb Callback) { m.callback = cb }

// AddNote registers a note trigger and returns its id.
func (m *Manager) AddNote(note, effectID int) (int, error) {
	return m.Add(KindNote, []int{note}, effectID)
}

// AddChord registers a chord trigger and returns its id.
func (m *Manager) AddChord(notes []int, effectID int) (int, error) {
	return m.Add(KindChord, notes, effectID)
}

// AddMelody registers a melody trigger and returns its id.
func (m *Manager) AddMelody(sequence []int, effectID int) (int, error) {
	return m.Add(KindMelody, sequence, effectID)
}

// Add builds and registers a trigger of kind.
func (m *Manager) Add(kind Kind, notes []int, effectID int) (int, error) {
	t, err := NewTrigger(m.nextID, kind, notes, effectID)
	if err != nil {
		return 0, err
	}
	if err := m.Insert(t); err != nil {
		return 0, err
	}
	return t.ID, nil
}

// Insert registers a prebuilt trigger. The trigger's Notes slice is retained.
func (m *Manager) Insert(t Trigger) error {
	if len(m.triggers) >= MaxTriggers {
		return ErrCapacity
	}
	if m.indexOf(t.ID) >= 0 {
		return fmt.Errorf("%w: %d", ErrDuplicateID, t.ID)
	}
	t.Threshold = core.Clamp(t.Threshold, 0, 1)
	t.Duration = max(t.Duration, 0)

	m.triggers = append(m.triggers, t)
	m.states = append(m.states, State{})
	if t.ID >= m.nextID {
		m.nextID = t.ID + 1
	}
	return nil
}

// NextID returns the id the next Add will assign.
func (m *Manager) NextID() int { return m.nextID }

// SetNextID raises the id the next Add will assign to id. Lower values are
// ignored so ids are never handed out twice.
func (m *Manager) SetNextID(id int) {
	if id > m.nextID {
		m.nextID = id
	}
}

// Remove deactivates and removes a trigger. Unknown ids are ignored.
func (m *Manager) Remove(id int) bool {
	i := m.indexOf(id)
	if i < 0 {
		return false
	}
	m.deactivate(i)

	copy(m.triggers[i:], m.triggers[i+1:])
	m.triggers[len(m.triggers)-1] = Trigger{}
	m.triggers = m.triggers[:len(m.triggers)-1]
	copy(m.states[i:], m.states[i+1:])
	m.states = m.states[:len(m.states)-1]
	return true
}

// SetEnabled enables or disables a trigger. Disabling deactivates it.
func (m *Manager) SetEnabled(id int, enabled bool) bool {
	i := m.indexOf(id)
	if i < 0 {
		return false
	}
	m.triggers[i].Enabled = enabled
	if !enabled {
		m.deactivate(i)
	}
	return true
}

// SetThreshold stores the match threshold, clamped to [0, 1]. Matching
// tolerances do not depend on it.
func (m *Manager) SetThreshold(id int, threshold float64) bool {
	i := m.indexOf(id)
	if i < 0 {
		return false
	}
	m.triggers[i].Threshold = core.Clamp(threshold, 0, 1)
	return true
}

// SetDuration sets the activation time in samples. Negative values become
// zero. A running timer keeps its remaining count.
func (m *Manager) SetDuration(id, samples int) bool {
	i := m.indexOf(id)
	if i < 0 {
		return false
	}
	m.triggers[i].Duration = max(samples, 0)
	return true
}

// Check advances the timers by samples and evaluates every enabled trigger
// against the analysis values. Negative values mean nothing was detected.
func (m *Manager) Check(note, chord, melody float64, samples int) {
	for i := range m.states {
		s := &m.states[i]
		if !s.Active {
			continue
		}
		s.Remaining -= samples
		if s.Remaining <= 0 {
			m.deactivate(i)
		}
	}

	for i := range m.triggers {
		t := &m.triggers[i]
		if !t.Enabled {
			continue
		}
		if t.matches(note, chord, melody) {
			m.activate(i)
		} else {
			m.deactivate(i)
		}
	}
}

// IsActive reports whether trigger id is active.
func (m *Manager) IsActive(id int) bool {
	s, _ := m.State(id)
	return s.Active
}

// State returns the runtime state of trigger id.
func (m *Manager) State(id int) (State, bool) {
	i := m.indexOf(id)
	if i < 0 {
		return State{}, false
	}
	return m.states[i], true
}

// ActiveEffect returns the effect selected by the most recent activation, or
// NoEffect.
func (m *Manager) ActiveEffect() int { return m.active }

// Trigger returns a copy of trigger id.
func (m *Manager) Trigger(id int) (Trigger, bool) {
	i := m.indexOf(id)
	if i < 0 {
		return Trigger{}, false
	}
	return m.triggers[i].clone(), true
}

// Triggers returns copies of all triggers in registration order.
func (m *Manager) Triggers() []Trigger {
	out := make([]Trigger, len(m.triggers))
	for i := range m.triggers {
		out[i] = m.triggers[i].clone()
	}
	return out
}

// Len returns the number of triggers.
func (m *Manager) Len() int { return len(m.triggers) }

// Reset deactivates every trigger without notifying the callback.
func (m *Manager) Reset() {
	for i := range m.states {
		m.states[i] = State{}
	}
	m.active = NoEffect
}

// Clear removes every trigger without notifying the callback.
func (m *Manager) Clear() {
	clear(m.triggers)
	m.triggers = m.triggers[:0]
	m.states = m.states[:0]
	m.active = NoEffect
}

func (m *Manager) activate(i int) {
	s := &m.states[i]
	if s.Active {
		return
	}
	t := &m.triggers[i]
	s.Active = true
	s.Remaining = t.Duration
	m.active = t.EffectID
	if m.callback != nil {
		m.callback(t.EffectID, true)
	}
}

func (m *Manager) deactivate(i int) {
	s := &m.states[i]
	if !s.Active {
		return
	}
	t := &m.triggers[i]
	*s = State{}
	if m.active == t.EffectID {
		m.active = NoEffect
	}
	if m.callback != nil {
		m.callback(t.EffectID, false)
	}
}

func (m *Manager) indexOf(id int) int {
	for i := range m.triggers {
		if m.triggers[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *Trigger) matches(note, chord, melody float64) bool {
	switch t.Kind {
	case KindNote:
		if note < 0 {
			return false
		}
		for _, n := range t.Notes {
			if math.Abs(note-float64(n)) < matchTolerance {
				return true
			}
		}
	case KindChord:
		if chord < 0 {
			return false
		}
		root := core.PitchClass(int(math.Round(chord)))
		for _, n := range t.Notes {
			if core.PitchClass(n) == root {
				return true
			}
		}
	case KindMelody:
		if melody < 0 || len(t.Notes) == 0 {
			return false
		}
		return math.Abs(melody-float64(t.Notes[0])) < matchTolerance
	}
	return false
}

func (t Trigger) clone() Trigger {
	t.Notes = append([]int(nil), t.Notes...)
	return t
}
