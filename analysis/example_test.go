package analysis_test

import (
	"fmt"

	"github.com/cwbudde/algo-fxtrigger/analysis"
	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

func ExampleAnalyzer_Process() {
	a := analysis.New()
	if err := a.Prepare(44100, 256); err != nil {
		panic(err)
	}

	snap := a.Process(core.NewBlock(2, 256))
	fmt.Println(snap.Note, snap.Chord, snap.Melody, snap.Amplitude)
	// Output:
	// -1 -1 -1 0
}
