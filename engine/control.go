package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-fxtrigger/analysis/chord"
	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/dsp/effectchain"
	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
	"github.com/cwbudde/algo-fxtrigger/preset"
	"github.com/cwbudde/algo-fxtrigger/trigger"
)

// send queues cmd for the audio thread. The caller holds e.mu.
func (e *Engine) send(cmd command) error {
	select {
	case e.commands <- cmd:
		return nil
	default:
		e.log.Warn("control queue full", zap.Int("capacity", cap(e.commands)))
		return ErrQueueFull
	}
}

func (e *Engine) effectIndex(id int) int {
	for i := range e.ctl.effects {
		if e.ctl.effects[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) buildInstance(id int, kind effects.Kind) (*effectchain.Instance, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", effects.ErrUnknownKind, int(kind))
	}
	factory := e.cfg.registry.Lookup(kind)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", effectchain.ErrUnknownEffect, kind)
	}
	unit, err := factory(effectchain.ContextFromConfig(e.ctl.format))
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", kind, err)
	}
	return effectchain.NewInstance(id, unit), nil
}

// AddEffect creates an effect of kind and returns its id. The first effect
// added while none is active becomes active.
func (e *Engine) AddEffect(kind effects.Kind) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.ctl.effects) >= effectchain.MaxEffects {
		return effectchain.NoEffect, effectchain.ErrCapacity
	}
	id := e.ctl.nextEffectID
	in, err := e.buildInstance(id, kind)
	if err != nil {
		return effectchain.NoEffect, err
	}

	info := in.Info()
	err = e.send(func(rt *realtime) { _ = rt.processor.Insert(in) })
	if err != nil {
		return effectchain.NoEffect, err
	}

	e.ctl.nextEffectID++
	e.ctl.effects = append(e.ctl.effects, info)
	if e.ActiveEffect() == effectchain.NoEffect {
		e.active.Store(int64(id))
	}
	e.log.Info("effect added", zap.Int("effect_id", id), zap.Stringer("kind", kind))
	return id, nil
}

// RemoveEffect removes an effect. Removing the active effect leaves none
// active.
func (e *Engine) RemoveEffect(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.effectIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: effect %d", ErrNotFound, id)
	}
	err := e.send(func(rt *realtime) { rt.processor.RemoveEffect(id) })
	if err != nil {
		return err
	}

	e.ctl.effects = append(e.ctl.effects[:i], e.ctl.effects[i+1:]...)
	e.active.CompareAndSwap(int64(id), effectchain.NoEffect)
	e.log.Info("effect removed", zap.Int("effect_id", id))
	return nil
}

// SetEffectEnabled enables or bypasses an effect.
func (e *Engine) SetEffectEnabled(id int, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.effectIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: effect %d", ErrNotFound, id)
	}
	err := e.send(func(rt *realtime) { rt.processor.SetEnabled(id, enabled) })
	if err != nil {
		return err
	}
	e.ctl.effects[i].Enabled = enabled
	return nil
}

// SetParameter writes an effect parameter. The value is clamped to the
// parameter range.
func (e *Engine) SetParameter(id, index int, value float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.effectIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: effect %d", ErrNotFound, id)
	}
	info, ok := effects.Param(e.ctl.effects[i].Kind, index)
	if !ok {
		return fmt.Errorf("%w: effect %d parameter %d", ErrNotFound, id, index)
	}
	err := e.send(func(rt *realtime) { rt.processor.SetParameter(id, index, value) })
	if err != nil {
		return err
	}
	e.ctl.effects[i].Params[index] = info.Clamp(value)
	return nil
}

// Parameter returns a stored parameter value, or 0 for unknown ids.
func (e *Engine) Parameter(id, index int) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.effectIndex(id)
	if i < 0 || index < 0 || index >= len(e.ctl.effects[i].Params) {
		return 0
	}
	return e.ctl.effects[i].Params[index]
}

// ParamInfo returns the metadata of an effect parameter.
func (e *Engine) ParamInfo(id, index int) (effects.ParamInfo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.effectIndex(id)
	if i < 0 {
		return effects.ParamInfo{}, false
	}
	return effects.Param(e.ctl.effects[i].Kind, index)
}

// SetActiveEffect selects the effect in the signal path. NoEffect bypasses
// all effects. Triggers may change the selection later.
func (e *Engine) SetActiveEffect(id int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if id != effectchain.NoEffect && e.effectIndex(id) < 0 {
		return fmt.Errorf("%w: effect %d", ErrNotFound, id)
	}
	err := e.send(func(rt *realtime) { rt.processor.SetActive(id) })
	if err != nil {
		return err
	}
	e.active.Store(int64(id))
	return nil
}

// Effects returns copies of all effects in creation order.
func (e *Engine) Effects() []effectchain.Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]effectchain.Info, len(e.ctl.effects))
	for i, info := range e.ctl.effects {
		info.Params = append([]float64(nil), info.Params...)
		out[i] = info
	}
	return out
}

func (e *Engine) addTrigger(kind trigger.Kind, notes []int, effectID int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctl.triggers.Len() >= trigger.MaxTriggers {
		return 0, trigger.ErrCapacity
	}
	t, err := trigger.NewTrigger(e.ctl.triggers.NextID(), kind, notes, effectID)
	if err != nil {
		return 0, err
	}
	rtCopy := t
	rtCopy.Notes = append([]int(nil), t.Notes...)

	err = e.send(func(rt *realtime) { _ = rt.triggers.Insert(rtCopy) })
	if err != nil {
		return 0, err
	}
	err = e.ctl.triggers.Insert(t)
	if err != nil {
		return 0, err
	}
	e.log.Info("trigger added",
		zap.Int("trigger_id", t.ID),
		zap.Stringer("kind", kind),
		zap.Ints("notes", t.Notes),
		zap.Int("effect_id", effectID),
	)
	return t.ID, nil
}

// AddNoteTrigger activates effectID while note is detected.
func (e *Engine) AddNoteTrigger(note, effectID int) (int, error) {
	return e.addTrigger(trigger.KindNote, []int{note}, effectID)
}

// AddChordTrigger activates effectID while the chord root matches the pitch
// class of any of notes.
func (e *Engine) AddChordTrigger(notes []int, effectID int) (int, error) {
	return e.addTrigger(trigger.KindChord, notes, effectID)
}

// AddMelodyTrigger activates effectID while the melody note matches the
// first note of sequence.
func (e *Engine) AddMelodyTrigger(sequence []int, effectID int) (int, error) {
	return e.addTrigger(trigger.KindMelody, sequence, effectID)
}

// RemoveTrigger removes a trigger.
func (e *Engine) RemoveTrigger(id int) error {
	return e.triggerOp(id, "removed", func(m *trigger.Manager) { m.Remove(id) })
}

// SetTriggerEnabled enables or disables a trigger.
func (e *Engine) SetTriggerEnabled(id int, enabled bool) error {
	return e.triggerOp(id, "", func(m *trigger.Manager) { m.SetEnabled(id, enabled) })
}

// SetTriggerThreshold stores a trigger's threshold, clamped to [0, 1].
func (e *Engine) SetTriggerThreshold(id int, threshold float64) error {
	return e.triggerOp(id, "", func(m *trigger.Manager) { m.SetThreshold(id, threshold) })
}

// SetTriggerDuration sets a trigger's activation time in samples.
func (e *Engine) SetTriggerDuration(id, samples int) error {
	return e.triggerOp(id, "", func(m *trigger.Manager) { m.SetDuration(id, samples) })
}

// triggerOp applies op to the audio-thread manager and the mirror.
func (e *Engine) triggerOp(id int, logMsg string, op func(m *trigger.Manager)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.ctl.triggers.Trigger(id); !ok {
		return fmt.Errorf("%w: trigger %d", ErrNotFound, id)
	}
	err := e.send(func(rt *realtime) { op(rt.triggers) })
	if err != nil {
		return err
	}
	op(e.ctl.triggers)
	if logMsg != "" {
		e.log.Info("trigger "+logMsg, zap.Int("trigger_id", id))
	}
	return nil
}

// Triggers returns copies of all triggers in registration order.
func (e *Engine) Triggers() []trigger.Trigger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctl.triggers.Triggers()
}

// SetNoteThreshold sets the analyzer's silence gate, clamped to [0, 1].
func (e *Engine) SetNoteThreshold(v float64) error {
	return e.analyzerOp(func(rt *realtime) { rt.analyzer.SetNoteThreshold(v) }, func() { e.ctl.analyzer.SetNoteThreshold(v) })
}

// SetChordThreshold stores the analyzer's chord threshold.
func (e *Engine) SetChordThreshold(v float64) error {
	return e.analyzerOp(func(rt *realtime) { rt.analyzer.SetChordThreshold(v) }, func() { e.ctl.analyzer.SetChordThreshold(v) })
}

// SetMelodyThreshold stores the analyzer's melody threshold.
func (e *Engine) SetMelodyThreshold(v float64) error {
	return e.analyzerOp(func(rt *realtime) { rt.analyzer.SetMelodyThreshold(v) }, func() { e.ctl.analyzer.SetMelodyThreshold(v) })
}

// SetWindowSize resizes the analysis window, clamped to [256, 8192].
func (e *Engine) SetWindowSize(n int) error {
	return e.analyzerOp(func(rt *realtime) { rt.analyzer.SetWindowSize(n) }, func() { e.ctl.analyzer.SetWindowSize(n) })
}

func (e *Engine) analyzerOp(cmd command, mirror func()) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.send(cmd)
	if err != nil {
		return err
	}
	mirror()
	return nil
}

// AnalyzerSettings reports the analyzer thresholds and window size.
func (e *Engine) AnalyzerSettings() (note, chordThreshold, melody float64, window int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.ctl.analyzer
	return a.NoteThreshold(), a.ChordThreshold(), a.MelodyThreshold(), a.WindowSize()
}

// SetChordDetection turns the spectral chord detection on or off.
func (e *Engine) SetChordDetection(enabled bool) error {
	return e.detectorOp(func(rt *realtime) {
		rt.chordOn = enabled
		rt.chord = noChord
	}, func(d *chord.Detector) { e.ctl.chordOn = enabled })
}

// ChordDetection reports whether spectral chord detection runs.
func (e *Engine) ChordDetection() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctl.chordOn
}

// AddCustomChord adds or replaces a chord template.
func (e *Engine) AddCustomChord(name string, intervals []int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	table, err := e.ctl.detector.Table().With(name, intervals)
	if err != nil {
		return err
	}
	return e.swapTable(table)
}

// RemoveCustomChord removes a chord template by name.
func (e *Engine) RemoveCustomChord(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	table := e.ctl.detector.Table()
	next := table.Without(name)
	if next == table {
		return fmt.Errorf("%w: chord %q", ErrNotFound, name)
	}
	return e.swapTable(next)
}

// swapTable ships an immutable template table. The caller holds e.mu.
func (e *Engine) swapTable(table *chord.Table) error {
	err := e.send(func(rt *realtime) { rt.detector.SetTable(table) })
	if err != nil {
		return err
	}
	e.ctl.detector.SetTable(table)
	return nil
}

// SetExtendedChords enables or disables the extended templates.
func (e *Engine) SetExtendedChords(enabled bool) error {
	return e.detectorOp(func(rt *realtime) { rt.detector.SetExtendedChords(enabled) },
		func(d *chord.Detector) { d.SetExtendedChords(enabled) })
}

// SetChordConfidenceThreshold sets the minimum chord confidence.
func (e *Engine) SetChordConfidenceThreshold(v float64) error {
	return e.detectorOp(func(rt *realtime) { rt.detector.SetConfidenceThreshold(v) },
		func(d *chord.Detector) { d.SetConfidenceThreshold(v) })
}

// SetChordPeakThreshold sets the spectral peak floor of chord detection.
func (e *Engine) SetChordPeakThreshold(v float64) error {
	return e.detectorOp(func(rt *realtime) { rt.detector.SetDetectionThreshold(v) },
		func(d *chord.Detector) { d.SetDetectionThreshold(v) })
}

func (e *Engine) detectorOp(cmd command, mirror func(d *chord.Detector)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.send(cmd)
	if err != nil {
		return err
	}
	mirror(e.ctl.detector)
	return nil
}

// AvailableChords returns the template names in use, sorted.
func (e *Engine) AvailableChords() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctl.detector.AvailableChords()
}

// SetInputGain sets the linear input gain, clamped to [0, 10].
func (e *Engine) SetInputGain(g float64) error {
	return e.gainOp(&e.ctl.inputGain, g, func(rt *realtime, g float64) { rt.inputGain = g })
}

// SetOutputGain sets the linear output gain, clamped to [0, 10].
func (e *Engine) SetOutputGain(g float64) error {
	return e.gainOp(&e.ctl.outputGain, g, func(rt *realtime, g float64) { rt.outputGain = g })
}

func (e *Engine) gainOp(dst *float64, g float64, apply func(rt *realtime, g float64)) error {
	g = core.Clamp(g, 0, MaxGain)

	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.send(func(rt *realtime) { apply(rt, g) })
	if err != nil {
		return err
	}
	*dst = g
	return nil
}

// Gains returns the input and output gain.
func (e *Engine) Gains() (input, output float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ctl.inputGain, e.ctl.outputGain
}

// Reset clears the runtime state of every stage on the next block.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.send(func(rt *realtime) {
		rt.analyzer.Reset()
		rt.triggers.Reset()
		rt.processor.Reset()
		rt.chord = noChord
	})
}

// Export captures the effects, triggers, gains and active effect.
func (e *Engine) Export() preset.State {
	s := preset.Empty()
	s.Effects = e.Effects()
	s.Triggers = e.Triggers()
	s.InputGain, s.OutputGain = e.Gains()
	s.ActiveEffect = e.ActiveEffect()
	return s
}

// Import replaces all effects and triggers with those of s. The state is
// validated and every effect is built before anything changes.
func (e *Engine) Import(s preset.State) error {
	if len(s.Effects) > effectchain.MaxEffects {
		return fmt.Errorf("import: %w", effectchain.ErrCapacity)
	}
	if len(s.Triggers) > trigger.MaxTriggers {
		return fmt.Errorf("import: %w", trigger.ErrCapacity)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	nextID := e.ctl.nextEffectID
	seen := make(map[int]bool, len(s.Effects))
	instances := make([]*effectchain.Instance, 0, len(s.Effects))
	infos := make([]effectchain.Info, 0, len(s.Effects))
	for _, fx := range s.Effects {
		if seen[fx.ID] {
			return fmt.Errorf("import: duplicate effect id %d", fx.ID)
		}
		seen[fx.ID] = true

		in, err := e.buildInstance(fx.ID, fx.Kind)
		if err != nil {
			return fmt.Errorf("import effect %d: %w", fx.ID, err)
		}
		in.Enabled = fx.Enabled
		for i, v := range fx.Params {
			in.SetParameter(i, v)
		}
		instances = append(instances, in)
		infos = append(infos, in.Info())
		nextID = max(nextID, fx.ID+1)
	}

	// Ids of deleted triggers stay retired across imports.
	mirror := trigger.NewManager()
	mirror.SetNextID(e.ctl.triggers.NextID())
	rtTriggers := make([]trigger.Trigger, 0, len(s.Triggers))
	for _, t := range s.Triggers {
		if len(t.Notes) == 0 {
			return fmt.Errorf("import trigger %d: %w", t.ID, trigger.ErrNoNotes)
		}
		if !t.Kind.Valid() {
			return fmt.Errorf("import trigger %d: %w: %d", t.ID, trigger.ErrUnknownKind, int(t.Kind))
		}
		t.Notes = append([]int(nil), t.Notes...)
		err := mirror.Insert(t)
		if err != nil {
			return fmt.Errorf("import trigger %d: %w", t.ID, err)
		}
		rtCopy := t
		rtCopy.Notes = append([]int(nil), t.Notes...)
		rtTriggers = append(rtTriggers, rtCopy)
	}

	active := s.ActiveEffect
	if active != effectchain.NoEffect && !seen[active] {
		active = effectchain.NoEffect
	}
	inGain := core.Clamp(s.InputGain, 0, MaxGain)
	outGain := core.Clamp(s.OutputGain, 0, MaxGain)

	err := e.send(func(rt *realtime) {
		rt.processor.Clear()
		for _, in := range instances {
			_ = rt.processor.Insert(in)
		}
		rt.processor.SetActive(active)
		rt.triggers.Clear()
		for _, t := range rtTriggers {
			_ = rt.triggers.Insert(t)
		}
		rt.inputGain = inGain
		rt.outputGain = outGain
	})
	if err != nil {
		return err
	}

	e.ctl.effects = infos
	e.ctl.nextEffectID = nextID
	e.ctl.triggers = mirror
	e.ctl.inputGain = inGain
	e.ctl.outputGain = outGain
	e.active.Store(int64(active))

	e.log.Info("preset imported",
		zap.String("name", s.Name),
		zap.Int("effects", len(instances)),
		zap.Int("triggers", len(rtTriggers)),
		zap.Int("active_effect", active),
	)
	return nil
}
