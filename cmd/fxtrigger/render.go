package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-fxtrigger/analysis/chord"
	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/engine"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Run a synthesized sequence through the engine and print what it detects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, input, err := newSession(session, flagFormat())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), e, input)
	},
}

// change is one row of the render report.
type change struct {
	block uint64
	what  string
	value string
}

// tracker records analysis and trigger changes block by block.
type tracker struct {
	e       *engine.Engine
	note    int
	chord   string
	changes []change
	peak    float64
	sumSq   float64
	samples int
}

func newTracker(e *engine.Engine) *tracker {
	return &tracker{e: e, note: -1, chord: chord.NameNone}
}

func (t *tracker) observe(blocks uint64, b core.Block) {
	for _, ev := range drainEvents(t.e) {
		t.changes = append(t.changes, change{block: blocks, what: fmt.Sprintf("effect %d", ev.EffectID), value: onOff(ev.Active)})
	}

	snap := t.e.Snapshot()
	note := -1
	if snap.Analysis.Note >= 0 {
		note = int(math.Round(snap.Analysis.Note))
	}
	if note != t.note {
		t.note = note
		t.changes = append(t.changes, change{block: blocks, what: "note", value: noteLabel(note)})
	}
	name := chordLabel(snap.Chord)
	if name != t.chord {
		t.chord = name
		t.changes = append(t.changes, change{block: blocks, what: "chord", value: name})
	}

	for _, ch := range b {
		t.peak = max(t.peak, core.Peak(ch))
		for _, v := range ch {
			t.sumSq += v * v
		}
		t.samples += len(ch)
	}
}

func drainEvents(e *engine.Engine) []engine.Event {
	var out []engine.Event
	for {
		select {
		case ev := <-e.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func noteLabel(n int) string {
	if n < 0 {
		return dimStyle.Render("-")
	}
	return fmt.Sprintf("%s (%d)", core.NoteName(n), n)
}

func chordLabel(c chord.Info) string {
	if c.Root < 0 || c.Name == chord.NameNone {
		return chord.NameNone
	}
	return strings.TrimRight(core.NoteName(60+c.Root), "0123456789") + c.Name
}

func render(out io.Writer, e *engine.Engine, input []float64) error {
	f := e.Format()
	t := newTracker(e)
	s := newStream(e, input, f.Channels, f.BlockSize)
	s.onBlock = func(b core.Block) { t.observe(s.blocks, b) }
	for s.next() {
	}

	rows := make([][]string, 0, len(t.changes))
	for _, c := range t.changes {
		at := core.SamplesToMilliseconds(int(c.block-1)*f.BlockSize, f.SampleRate)
		rows = append(rows, []string{fmt.Sprintf("%.0fms", at), c.what, c.value})
	}

	fmt.Fprintln(out, headingStyle.Render("fxtrigger render"))
	fmt.Fprintln(out, table([]string{"Time", "Change", "Value"}, rows))

	rms := 0.0
	if t.samples > 0 {
		rms = math.Sqrt(t.sumSq / float64(t.samples))
	}
	fmt.Fprintf(out, "\n%s blocks=%d peak=%.1f dB rms=%.1f dB dropped_events=%d\n",
		dimStyle.Render("summary"), s.blocks, core.AmplitudeToDB(t.peak), core.AmplitudeToDB(rms), e.DroppedEvents())
	return nil
}
