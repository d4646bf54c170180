package midimap_test

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
	"github.com/cwbudde/algo-fxtrigger/engine"
	"github.com/cwbudde/algo-fxtrigger/midimap"
)

func ExampleMapper_Learn() {
	e, err := engine.New()
	if err != nil {
		panic(err)
	}
	id, err := e.AddEffect(effects.KindDelay)
	if err != nil {
		panic(err)
	}

	m := midimap.New(e)
	m.Learn(midimap.Target{EffectID: id, Param: effects.DelayMix})
	m.Handle(midi.ControlChange(0, 7, 127))

	t, _ := m.Lookup(0, 7)
	fmt.Println(t.EffectID, t.Param, e.Parameter(id, effects.DelayMix))

	// Output:
	// 1 2 1
}
