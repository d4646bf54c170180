// Package preset stores the complete engine setup as flat key/value pairs.
//
// Keys follow the layout
//
//	Name, InputGain, OutputGain, ActiveEffect
//	Effect_<id>_Type, Effect_<id>_Enabled, Effect_<id>_Param_<index>
//	Trigger_<id>_Type, Trigger_<id>_Notes, Trigger_<id>_Effect,
//	Trigger_<id>_Enabled, Trigger_<id>_Threshold, Trigger_<id>_Duration
//
// Numbers are written in Go's shortest round-trip form, notes as a
// comma-separated list, kinds by name. Files are JSON objects of those pairs.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-fxtrigger/dsp/effectchain"
	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
	"github.com/cwbudde/algo-fxtrigger/trigger"
)

// ErrMalformed is returned for pairs that cannot be decoded.
var ErrMalformed = errors.New("malformed preset")

// State is a complete, serializable engine setup.
type State struct {
	Name         string
	InputGain    float64
	OutputGain   float64
	ActiveEffect int
	Effects      []effectchain.Info
	Triggers     []trigger.Trigger
}

// Empty returns a state with unit gains and no active effect.
func Empty() State {
	return State{InputGain: 1, OutputGain: 1, ActiveEffect: effectchain.NoEffect}
}

const (
	keyName         = "Name"
	keyInputGain    = "InputGain"
	keyOutputGain   = "OutputGain"
	keyActiveEffect = "ActiveEffect"

	prefixEffect  = "Effect_"
	prefixTrigger = "Trigger_"
)

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// Encode flattens s into key/value pairs.
func Encode(s State) map[string]string {
	kv := map[string]string{
		keyInputGain:    formatFloat(s.InputGain),
		keyOutputGain:   formatFloat(s.OutputGain),
		keyActiveEffect: strconv.Itoa(s.ActiveEffect),
	}
	if s.Name != "" {
		kv[keyName] = s.Name
	}

	for _, e := range s.Effects {
		p := prefixEffect + strconv.Itoa(e.ID) + "_"
		kv[p+"Type"] = e.Kind.String()
		kv[p+"Enabled"] = strconv.FormatBool(e.Enabled)
		for i, v := range e.Params {
			kv[p+"Param_"+strconv.Itoa(i)] = formatFloat(v)
		}
	}

	for _, t := range s.Triggers {
		p := prefixTrigger + strconv.Itoa(t.ID) + "_"
		notes := make([]string, len(t.Notes))
		for i, n := range t.Notes {
			notes[i] = strconv.Itoa(n)
		}
		kv[p+"Type"] = t.Kind.String()
		kv[p+"Notes"] = strings.Join(notes, ",")
		kv[p+"Effect"] = strconv.Itoa(t.EffectID)
		kv[p+"Enabled"] = strconv.FormatBool(t.Enabled)
		kv[p+"Threshold"] = formatFloat(t.Threshold)
		kv[p+"Duration"] = strconv.Itoa(t.Duration)
	}
	return kv
}

type partialEffect struct {
	info    effectchain.Info
	hasType bool
	params  map[int]float64
}

type partialTrigger struct {
	t         trigger.Trigger
	hasType   bool
	hasNotes  bool
	hasEffect bool
}

// Decode rebuilds a State from key/value pairs. Unknown keys are ignored.
// Missing gains default to 1, missing enabled flags to true, missing
// thresholds and durations to the trigger defaults. Effect parameters are
// clamped to their ranges. Effects and triggers are returned sorted by id.
func Decode(kv map[string]string) (State, error) {
	s := Empty()
	s.Name = kv[keyName]

	var err error
	if v, ok := kv[keyInputGain]; ok {
		if s.InputGain, err = parseFloat(keyInputGain, v); err != nil {
			return State{}, err
		}
	}
	if v, ok := kv[keyOutputGain]; ok {
		if s.OutputGain, err = parseFloat(keyOutputGain, v); err != nil {
			return State{}, err
		}
	}
	if v, ok := kv[keyActiveEffect]; ok {
		if s.ActiveEffect, err = parseInt(keyActiveEffect, v); err != nil {
			return State{}, err
		}
	}

	fx := map[int]*partialEffect{}
	trs := map[int]*partialTrigger{}

	for key, value := range kv {
		switch {
		case strings.HasPrefix(key, prefixEffect):
			if err := decodeEffectKey(fx, key, value); err != nil {
				return State{}, err
			}
		case strings.HasPrefix(key, prefixTrigger):
			if err := decodeTriggerKey(trs, key, value); err != nil {
				return State{}, err
			}
		}
	}

	for _, id := range sortedKeys(fx) {
		e := fx[id]
		if !e.hasType {
			return State{}, fmt.Errorf("%w: effect %d has no type", ErrMalformed, id)
		}
		e.info.Params = effects.Defaults(e.info.Kind)
		for i, v := range e.params {
			info, ok := effects.Param(e.info.Kind, i)
			if !ok {
				return State{}, fmt.Errorf("%w: effect %d (%s) has no parameter %d", ErrMalformed, id, e.info.Kind, i)
			}
			e.info.Params[i] = info.Clamp(v)
		}
		s.Effects = append(s.Effects, e.info)
	}

	for _, id := range sortedKeys(trs) {
		t := trs[id]
		switch {
		case !t.hasType:
			return State{}, fmt.Errorf("%w: trigger %d has no type", ErrMalformed, id)
		case !t.hasNotes:
			return State{}, fmt.Errorf("%w: trigger %d has no notes", ErrMalformed, id)
		case !t.hasEffect:
			return State{}, fmt.Errorf("%w: trigger %d has no effect", ErrMalformed, id)
		}
		s.Triggers = append(s.Triggers, t.t)
	}
	return s, nil
}

// splitKey parses "<prefix><id>_<field>".
func splitKey(key, prefix string) (id int, field string, err error) {
	rest := strings.TrimPrefix(key, prefix)
	idText, field, ok := strings.Cut(rest, "_")
	if !ok || field == "" {
		return 0, "", fmt.Errorf("%w: key %q", ErrMalformed, key)
	}
	id, err = strconv.Atoi(idText)
	if err != nil {
		return 0, "", fmt.Errorf("%w: key %q", ErrMalformed, key)
	}
	return id, field, nil
}

func decodeEffectKey(fx map[int]*partialEffect, key, value string) error {
	id, field, err := splitKey(key, prefixEffect)
	if err != nil {
		return err
	}
	e := fx[id]
	if e == nil {
		e = &partialEffect{info: effectchain.Info{ID: id, Enabled: true}, params: map[int]float64{}}
		fx[id] = e
	}

	switch {
	case field == "Type":
		kind, err := effects.ParseKind(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformed, key, err)
		}
		e.info.Kind = kind
		e.hasType = true
	case field == "Enabled":
		enabled, err := parseBool(key, value)
		if err != nil {
			return err
		}
		e.info.Enabled = enabled
	case strings.HasPrefix(field, "Param_"):
		index, err := parseInt(key, strings.TrimPrefix(field, "Param_"))
		if err != nil {
			return err
		}
		v, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		e.params[index] = v
	}
	return nil
}

func decodeTriggerKey(trs map[int]*partialTrigger, key, value string) error {
	id, field, err := splitKey(key, prefixTrigger)
	if err != nil {
		return err
	}
	p := trs[id]
	if p == nil {
		p = &partialTrigger{t: trigger.Trigger{
			ID:        id,
			Enabled:   true,
			Threshold: trigger.DefaultThreshold,
			Duration:  trigger.DefaultDuration,
		}}
		trs[id] = p
	}

	switch field {
	case "Type":
		kind, err := trigger.ParseKind(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMalformed, key, err)
		}
		p.t.Kind = kind
		p.hasType = true
	case "Notes":
		notes, err := parseNotes(key, value)
		if err != nil {
			return err
		}
		p.t.Notes = notes
		p.hasNotes = true
	case "Effect":
		if p.t.EffectID, err = parseInt(key, value); err != nil {
			return err
		}
		p.hasEffect = true
	case "Enabled":
		if p.t.Enabled, err = parseBool(key, value); err != nil {
			return err
		}
	case "Threshold":
		if p.t.Threshold, err = parseFloat(key, value); err != nil {
			return err
		}
	case "Duration":
		if p.t.Duration, err = parseInt(key, value); err != nil {
			return err
		}
	}
	return nil
}

func parseNotes(key, value string) ([]int, error) {
	parts := strings.Split(value, ",")
	notes := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := parseInt(key, part)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("%w: %s: empty note list", ErrMalformed, key)
	}
	return notes, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrMalformed, key, err)
	}
	return v, nil
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrMalformed, key, err)
	}
	return v, nil
}

// parseBool also accepts the 1/0 spelling.
func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrMalformed, key, err)
	}
	return v, nil
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Save writes s to path as a JSON object of key/value pairs.
func Save(path string, s State) error {
	data, err := json.MarshalIndent(Encode(s), "", "  ")
	if err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	data = append(data, '\n')

	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return fmt.Errorf("write preset %s: %w", path, err)
	}
	return nil
}

// Load reads a preset written by Save.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("read preset %s: %w", path, err)
	}

	var kv map[string]string
	err = json.Unmarshal(data, &kv)
	if err != nil {
		return State{}, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
	return Decode(kv)
}
