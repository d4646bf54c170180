package effects_test

import (
	"fmt"

	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
)

func ExampleParseKind() {
	k, err := effects.ParseKind("Reverb")
	if err != nil {
		panic(err)
	}
	fmt.Println(k, len(effects.Params(k)))
	// Output: reverb 4
}

func ExampleUnit_SetParameter() {
	u, err := effects.NewUnit(effects.KindDelay, 48000)
	if err != nil {
		panic(err)
	}
	u.SetParameter(effects.DelayFeedback, 1.5)
	fmt.Println(u.Parameter(effects.DelayFeedback))
	// Output: 0.9
}

func ExampleParamInfo_Denormalize() {
	p, _ := effects.Param(effects.KindFilter, effects.FilterCutoff)
	fmt.Printf("%.0f %s\n", p.Denormalize(0.5), p.Unit)
	// Output: 10010 Hz
}
