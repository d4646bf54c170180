package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	"go.uber.org/zap"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
	"github.com/cwbudde/algo-fxtrigger/dsp/signal"
	"github.com/cwbudde/algo-fxtrigger/engine"
	"github.com/cwbudde/algo-fxtrigger/midimap"
	"github.com/cwbudde/algo-fxtrigger/preset"
)

const defaultSequence = "A4:0.5 -:0.25 C4+E4+G4:1 -:0.25 A4:0.5"

// sessionFlags configure the engine for render and play.
type sessionFlags struct {
	sequence       string
	amplitude      float64
	effects        []string
	noteTriggers   []string
	chordTriggers  []string
	melodyTriggers []string
	ccs            []string
	holdMs         float64
	chordDetection bool
	presetPath     string
	savePath       string
}

var session sessionFlags

func addSessionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&session.sequence, "sequence", defaultSequence, "Note sequence: steps like C4, C4+E4+G4:1 or -:0.5 (rest)")
	f.Float64Var(&session.amplitude, "amplitude", 0.3, "Per-note amplitude of the synthesized signal")
	f.StringSliceVar(&session.effects, "effect", []string{"distortion", "delay"}, "Effect kinds to add, assigned ids from 1")
	f.StringArrayVar(&session.noteTriggers, "note-trigger", []string{"A4=2"}, "Note trigger NOTE=EFFECT_ID")
	f.StringArrayVar(&session.chordTriggers, "chord-trigger", []string{"C4+E4+G4=1"}, "Chord trigger NOTE+NOTE...=EFFECT_ID")
	f.StringArrayVar(&session.melodyTriggers, "melody-trigger", nil, "Melody trigger NOTE+NOTE...=EFFECT_ID")
	f.StringArrayVar(&session.ccs, "cc", nil, "Apply a MIDI CC through the mapper: CONTROLLER:EFFECT_ID.PARAM=VALUE")
	f.Float64Var(&session.holdMs, "hold-ms", 0, "Trigger activation time in milliseconds (0 keeps the default)")
	f.BoolVar(&session.chordDetection, "chord-detection", true, "Run spectral chord detection")
	f.StringVar(&session.presetPath, "preset", "", "Load effects and triggers from a preset file")
	f.StringVar(&session.savePath, "save", "", "Write the configured engine state to a preset file")
}

// newSession builds a prepared engine, configures it from the flags and
// returns it with the synthesized input signal.
func newSession(s sessionFlags, format core.ProcessorConfig) (*engine.Engine, []float64, error) {
	steps, err := signal.ParseSequence(s.sequence)
	if err != nil {
		return nil, nil, err
	}
	gen := signal.NewGenerator(core.WithSampleRate(format.SampleRate))
	input, err := gen.Sequence(steps, s.amplitude)
	if err != nil {
		return nil, nil, err
	}

	e, err := engine.New(
		engine.WithLogger(logger),
		engine.WithChordDetection(s.chordDetection),
		engine.WithEventBuffer(1024),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := e.Prepare(format.SampleRate, format.BlockSize, format.Channels); err != nil {
		return nil, nil, err
	}

	if s.presetPath != "" {
		st, err := preset.Load(s.presetPath)
		if err != nil {
			return nil, nil, err
		}
		if err := e.Import(st); err != nil {
			return nil, nil, fmt.Errorf("import %s: %w", s.presetPath, err)
		}
	} else if err := configure(e, s); err != nil {
		return nil, nil, err
	}
	if err := applyHold(e, s.holdMs, format.SampleRate); err != nil {
		return nil, nil, err
	}

	if err := applyCCs(e, s.ccs); err != nil {
		return nil, nil, err
	}

	if s.savePath != "" {
		if err := preset.Save(s.savePath, e.Export()); err != nil {
			return nil, nil, err
		}
		logger.Info("preset saved", zap.String("path", s.savePath))
	}
	return e, input, nil
}

func configure(e *engine.Engine, s sessionFlags) error {
	for _, name := range s.effects {
		k, err := effects.ParseKind(name)
		if err != nil {
			return err
		}
		if _, err := e.AddEffect(k); err != nil {
			return err
		}
	}

	add := func(specs []string, fn func(notes []int, effectID int) (int, error), single bool) error {
		for _, spec := range specs {
			notes, id, err := parseTrigger(spec)
			if err != nil {
				return err
			}
			if single && len(notes) != 1 {
				return fmt.Errorf("note trigger %q needs exactly one note", spec)
			}
			if _, err := fn(notes, id); err != nil {
				return fmt.Errorf("trigger %q: %w", spec, err)
			}
		}
		return nil
	}
	noteTrigger := func(notes []int, id int) (int, error) { return e.AddNoteTrigger(notes[0], id) }

	if err := add(s.noteTriggers, noteTrigger, true); err != nil {
		return err
	}
	if err := add(s.chordTriggers, e.AddChordTrigger, false); err != nil {
		return err
	}
	return add(s.melodyTriggers, e.AddMelodyTrigger, false)
}

// applyHold sets the activation time of every trigger. Zero leaves the
// durations unchanged.
func applyHold(e *engine.Engine, ms, sampleRate float64) error {
	if ms == 0 {
		return nil
	}
	if ms < 0 {
		return fmt.Errorf("hold %gms: must be >= 0", ms)
	}
	samples := core.MillisecondsToSamples(ms, sampleRate)
	for _, t := range e.Triggers() {
		if err := e.SetTriggerDuration(t.ID, samples); err != nil {
			return fmt.Errorf("trigger %d hold: %w", t.ID, err)
		}
	}
	return nil
}

// parseTrigger reads "NOTE+NOTE=EFFECT_ID". Notes are names or MIDI numbers.
func parseTrigger(spec string) ([]int, int, error) {
	notesPart, idPart, ok := strings.Cut(spec, "=")
	if !ok {
		return nil, 0, fmt.Errorf("trigger %q: want NOTES=EFFECT_ID", spec)
	}
	id, err := strconv.Atoi(strings.TrimSpace(idPart))
	if err != nil {
		return nil, 0, fmt.Errorf("trigger %q: effect id: %w", spec, err)
	}
	var notes []int
	for _, name := range strings.Split(notesPart, "+") {
		n, err := parseNote(name)
		if err != nil {
			return nil, 0, fmt.Errorf("trigger %q: %w", spec, err)
		}
		notes = append(notes, n)
	}
	return notes, id, nil
}

func parseNote(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("note %d outside 0..127", n)
		}
		return n, nil
	}
	return core.ParseNoteName(s)
}

type ccSpec struct {
	controller uint8
	target     midimap.Target
	value      uint8
}

// parseCC reads "CONTROLLER:EFFECT_ID.PARAM=VALUE".
func parseCC(spec string) (ccSpec, error) {
	bad := func(err error) (ccSpec, error) {
		if err != nil {
			return ccSpec{}, fmt.Errorf("cc %q: want CONTROLLER:EFFECT_ID.PARAM=VALUE: %w", spec, err)
		}
		return ccSpec{}, fmt.Errorf("cc %q: want CONTROLLER:EFFECT_ID.PARAM=VALUE", spec)
	}

	ctlPart, rest, ok := strings.Cut(spec, ":")
	if !ok {
		return bad(nil)
	}
	targetPart, valuePart, ok := strings.Cut(rest, "=")
	if !ok {
		return bad(nil)
	}
	idPart, paramPart, ok := strings.Cut(targetPart, ".")
	if !ok {
		return bad(nil)
	}

	ctl, err := strconv.ParseUint(ctlPart, 10, 7)
	if err != nil {
		return bad(err)
	}
	value, err := strconv.ParseUint(valuePart, 10, 7)
	if err != nil {
		return bad(err)
	}
	id, err := strconv.Atoi(idPart)
	if err != nil {
		return bad(err)
	}
	param, err := strconv.Atoi(paramPart)
	if err != nil {
		return bad(err)
	}
	return ccSpec{
		controller: uint8(ctl),
		target:     midimap.Target{EffectID: id, Param: param},
		value:      uint8(value),
	}, nil
}

func applyCCs(e *engine.Engine, specs []string) error {
	if len(specs) == 0 {
		return nil
	}
	m := midimap.New(e)
	for _, spec := range specs {
		cc, err := parseCC(spec)
		if err != nil {
			return err
		}
		m.Map(0, cc.controller, cc.target)
		if !m.Handle(midi.ControlChange(0, cc.controller, cc.value)) {
			return fmt.Errorf("cc %q: no such effect parameter", spec)
		}
		logger.Debug("cc applied",
			zap.Int("effect_id", cc.target.EffectID),
			zap.Int("param", cc.target.Param),
			zap.Float64("value", e.Parameter(cc.target.EffectID, cc.target.Param)),
		)
	}
	return nil
}
