package engine

import (
	"errors"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/cwbudde/algo-fxtrigger/analysis"
	"github.com/cwbudde/algo-fxtrigger/analysis/pitch"
	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/dsp/effectchain"
	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
	"github.com/cwbudde/algo-fxtrigger/internal/testutil"
	"github.com/cwbudde/algo-fxtrigger/preset"
	"github.com/cwbudde/algo-fxtrigger/trigger"
)

const (
	testRate  = 44100.0
	testBlock = 256
)

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	e, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func mustEffect(t *testing.T, e *Engine, kind effects.Kind) int {
	t.Helper()

	id, err := e.AddEffect(kind)
	if err != nil {
		t.Fatalf("AddEffect(%s): %v", kind, err)
	}
	return id
}

func sineBlocks(freq float64, blocks int) []core.Block {
	x := testutil.DeterministicSine(freq, testRate, 0.5, blocks*testBlock)
	return testutil.Split(testutil.BlockOf(x, 2), testBlock)
}

func dcBlock(v float64) core.Block {
	return testutil.BlockOf(testutil.DC(v, testBlock), 2)
}

func drainEvents(e *Engine) []Event {
	var out []Event
	for {
		select {
		case ev := <-e.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	f := e.Format()
	if f.SampleRate != 44100 || f.BlockSize != 256 || f.Channels != 2 {
		t.Fatalf("format got=%+v", f)
	}
	snap := e.Snapshot()
	if snap.Analysis != analysis.Silent || snap.ActiveEffect != effectchain.NoEffect || snap.Blocks != 0 {
		t.Fatalf("snapshot got=%+v", snap)
	}
	if in, out := e.Gains(); in != 1 || out != 1 {
		t.Fatalf("gains got=%g/%g", in, out)
	}
}

func TestPrepareValidation(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	for _, tc := range []struct {
		sr       float64
		bs, chans int
	}{
		{sr: 0, bs: 256, chans: 2},
		{sr: math.NaN(), bs: 256, chans: 2},
		{sr: 48000, bs: 0, chans: 2},
		{sr: 48000, bs: 256, chans: 0},
	} {
		if err := e.Prepare(tc.sr, tc.bs, tc.chans); err == nil {
			t.Fatalf("Prepare(%g,%d,%d) expected error", tc.sr, tc.bs, tc.chans)
		}
	}
	if err := e.Prepare(48000, 128, 1); err != nil {
		t.Fatal(err)
	}
	if e.Format().SampleRate != 48000 {
		t.Fatalf("format got=%+v", e.Format())
	}
}

func TestEffectControlMirror(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	a := mustEffect(t, e, effects.KindDelay)
	b := mustEffect(t, e, effects.KindReverb)

	if a != 1 || b != 2 {
		t.Fatalf("ids got=%d,%d want=1,2", a, b)
	}
	if e.ActiveEffect() != a {
		t.Fatalf("active got=%d want=%d", e.ActiveEffect(), a)
	}

	if err := e.SetParameter(a, effects.DelayFeedback, 1.5); err != nil {
		t.Fatal(err)
	}
	if got := e.Parameter(a, effects.DelayFeedback); got != 0.9 {
		t.Fatalf("feedback got=%g want=0.9", got)
	}
	if info, ok := e.ParamInfo(b, effects.ReverbWet); !ok || info.Name != "Wet" {
		t.Fatalf("param info got=%+v ok=%v", info, ok)
	}

	if err := e.SetParameter(99, 0, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown effect err=%v", err)
	}
	if err := e.SetParameter(a, 17, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown param err=%v", err)
	}
	if err := e.SetActiveEffect(42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown active err=%v", err)
	}

	if err := e.RemoveEffect(a); err != nil {
		t.Fatal(err)
	}
	if e.ActiveEffect() != effectchain.NoEffect {
		t.Fatalf("active after remove got=%d", e.ActiveEffect())
	}
	infos := e.Effects()
	if len(infos) != 1 || infos[0].ID != b {
		t.Fatalf("effects got=%+v", infos)
	}
	infos[0].Params[0] = -5
	if e.Parameter(b, 0) == -5 {
		t.Fatal("Effects returned aliased params")
	}
}

func TestCommandsApplyAtNextBlock(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	id := mustEffect(t, e, effects.KindDelay)

	b := dcBlock(0.01)
	e.Process(b)
	if got := b[0][0]; math.Abs(got-0.005) > 1e-12 {
		t.Fatalf("delay dry path got=%g want=%g", got, 0.005)
	}

	if err := e.SetEffectEnabled(id, false); err != nil {
		t.Fatal(err)
	}
	b = dcBlock(0.01)
	e.Process(b)
	if got := b[1][10]; got != 0.01 {
		t.Fatalf("bypassed got=%g want=0.01", got)
	}
	if snap := e.Snapshot(); snap.Blocks != 2 || snap.ActiveEffect != id {
		t.Fatalf("snapshot got=%+v", snap)
	}
}

func TestGains(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	if err := e.SetInputGain(20); err != nil {
		t.Fatal(err)
	}
	if err := e.SetOutputGain(-1); err != nil {
		t.Fatal(err)
	}
	if in, out := e.Gains(); in != MaxGain || out != 0 {
		t.Fatalf("gains got=%g/%g", in, out)
	}

	_ = e.SetInputGain(2)
	_ = e.SetOutputGain(0.25)
	b := dcBlock(0.04)
	e.Process(b)
	for ch := range b {
		if got := b[ch][100]; math.Abs(got-0.02) > 1e-12 {
			t.Fatalf("ch %d got=%g want=0.02", ch, got)
		}
	}
	// Input gain is applied before analysis.
	if amp := e.Snapshot().Analysis.Amplitude; math.Abs(amp-0.08) > 1e-12 {
		t.Fatalf("amplitude got=%g want=0.08", amp)
	}
}

func TestTriggerSelectsEffect(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	first := mustEffect(t, e, effects.KindDistortion)
	target := mustEffect(t, e, effects.KindChorus)
	if err := e.SetActiveEffect(effectchain.NoEffect); err != nil {
		t.Fatal(err)
	}

	tid, err := e.AddNoteTrigger(69, target)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.SetTriggerDuration(tid, 1<<30); err != nil {
		t.Fatal(err)
	}

	for _, b := range sineBlocks(440, 8) {
		e.Process(b)
	}
	if got := e.ActiveEffect(); got != target {
		t.Fatalf("active got=%d want=%d (first=%d)", got, target, first)
	}
	if snap := e.Snapshot(); math.Abs(snap.Analysis.Note-69) > 0.5 {
		t.Fatalf("note got=%g", snap.Analysis.Note)
	}

	e.Process(core.NewBlock(2, testBlock))
	if got := e.ActiveEffect(); got != effectchain.NoEffect {
		t.Fatalf("active after silence got=%d", got)
	}

	want := []Event{{EffectID: target, Active: true}, {EffectID: target, Active: false}}
	if got := drainEvents(e); !reflect.DeepEqual(got, want) {
		t.Fatalf("events got=%v want=%v", got, want)
	}
}

func TestEventsDropWhenFull(t *testing.T) {
	t.Parallel()

	e := newEngine(t, WithEventBuffer(1))
	fx := mustEffect(t, e, effects.KindFilter)
	if _, err := e.AddNoteTrigger(69, fx); err != nil {
		t.Fatal(err)
	}

	// The default 100-sample duration expires every block, so each
	// matching block emits an off and an on event.
	for _, b := range sineBlocks(440, 8) {
		e.Process(b)
	}
	if e.DroppedEvents() == 0 {
		t.Fatal("expected dropped events")
	}
	if got := len(drainEvents(e)); got != 1 {
		t.Fatalf("buffered events got=%d want=1", got)
	}
}

func TestQueueFull(t *testing.T) {
	t.Parallel()

	e := newEngine(t, WithQueueSize(2))
	_ = e.SetInputGain(1)
	_ = e.SetInputGain(1)
	if err := e.SetInputGain(3); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("err=%v want ErrQueueFull", err)
	}
	// A rejected write leaves the mirror unchanged.
	if in, _ := e.Gains(); in != 1 {
		t.Fatalf("input gain got=%g want=1", in)
	}

	e.Process(dcBlock(0))
	if err := e.SetInputGain(3); err != nil {
		t.Fatalf("after drain err=%v", err)
	}
}

func TestTriggerControl(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	fx := mustEffect(t, e, effects.KindCompressor)

	a, err := e.AddChordTrigger([]int{60, 64, 67}, fx)
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.AddMelodyTrigger([]int{62, 64}, fx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.AddChordTrigger(nil, fx); !errors.Is(err, trigger.ErrNoNotes) {
		t.Fatalf("empty chord err=%v", err)
	}

	_ = e.SetTriggerThreshold(a, 3)
	_ = e.SetTriggerEnabled(b, false)
	if err := e.RemoveTrigger(77); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown trigger err=%v", err)
	}

	list := e.Triggers()
	if len(list) != 2 || list[0].Threshold != 1 || list[1].Enabled {
		t.Fatalf("triggers got=%+v", list)
	}

	if err := e.RemoveTrigger(a); err != nil {
		t.Fatal(err)
	}
	if got := e.Triggers(); len(got) != 1 || got[0].ID != b {
		t.Fatalf("after remove got=%+v", got)
	}
}

func TestAnalyzerSettings(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	_ = e.SetNoteThreshold(5)
	_ = e.SetChordThreshold(0.3)
	_ = e.SetMelodyThreshold(-2)
	_ = e.SetWindowSize(100000)

	note, chordThr, melody, window := e.AnalyzerSettings()
	if note != 1 || chordThr != 0.3 || melody != 0 || window != analysis.MaxWindowSize {
		t.Fatalf("settings got=%g/%g/%g/%d", note, chordThr, melody, window)
	}

	// A gate of 1 silences the analysis of a 0.5 sine.
	for _, b := range sineBlocks(440, 4) {
		e.Process(b)
	}
	if got := e.Snapshot().Analysis.Note; got != analysis.None {
		t.Fatalf("gated note got=%g", got)
	}
}

func TestChordDetection(t *testing.T) {
	t.Parallel()

	e := newEngine(t, WithChordDetection(true))
	x := testutil.Mix([]float64{
		core.NoteToFrequency(60), core.NoteToFrequency(64), core.NoteToFrequency(67),
	}, testRate, 0.3, 12*testBlock)

	for _, b := range testutil.Split(testutil.BlockOf(x, 2), testBlock) {
		e.Process(b)
	}
	got := e.Snapshot().Chord
	if got.Name != "maj" || got.Root != 0 {
		t.Fatalf("chord got=%s/%d want=maj/0", got.Name, got.Root)
	}

	if err := e.SetChordDetection(false); err != nil {
		t.Fatal(err)
	}
	e.Process(dcBlock(0))
	if got := e.Snapshot().Chord; got.Name != "None" {
		t.Fatalf("disabled chord got=%+v", got)
	}
	if e.ChordDetection() {
		t.Fatal("mirror still reports detection on")
	}
}

func TestCustomChords(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	if err := e.AddCustomChord("quartal", []int{0, 5, 10}); err != nil {
		t.Fatal(err)
	}
	if err := e.AddCustomChord("", []int{0}); err == nil {
		t.Fatal("expected error for empty name")
	}

	found := false
	for _, n := range e.AvailableChords() {
		if n == "quartal" {
			found = true
		}
	}
	if !found {
		t.Fatal("custom chord not listed")
	}

	if err := e.RemoveCustomChord("quartal"); err != nil {
		t.Fatal(err)
	}
	if err := e.RemoveCustomChord("quartal"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove err=%v", err)
	}

	n := len(e.AvailableChords())
	_ = e.SetExtendedChords(false)
	if got := len(e.AvailableChords()); got >= n {
		t.Fatalf("extended off: %d names, was %d", got, n)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	t.Parallel()

	src := newEngine(t)
	d := mustEffect(t, src, effects.KindDelay)
	r := mustEffect(t, src, effects.KindReverb)
	_ = src.SetParameter(d, effects.DelayTime, 0.5)
	_ = src.SetParameter(r, effects.ReverbRoomSize, 0.9)
	_ = src.SetEffectEnabled(r, false)
	_ = src.SetActiveEffect(r)
	tid, _ := src.AddNoteTrigger(57, d)
	_ = src.SetTriggerDuration(tid, 2048)
	_, _ = src.AddChordTrigger([]int{60, 64, 67}, r)
	_ = src.SetInputGain(1.5)

	exported := src.Export()
	decoded, err := preset.Decode(preset.Encode(exported))
	if err != nil {
		t.Fatal(err)
	}

	dst := newEngine(t)
	mustEffect(t, dst, effects.KindChorus)
	if err := dst.Import(decoded); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if got := dst.Export(); !reflect.DeepEqual(got, exported) {
		t.Fatalf("got=%+v\nwant=%+v", got, exported)
	}

	// The imported state is live after the next block.
	b := dcBlock(0.01)
	dst.Process(b)
	if got := b[0][0]; math.Abs(got-0.015) > 1e-12 {
		t.Fatalf("disabled reverb with gain got=%g want=%g", got, 0.015)
	}
	if id := mustEffect(t, dst, effects.KindFilter); id != r+1 {
		t.Fatalf("id after import got=%d want=%d", id, r+1)
	}
}

func TestImportKeepsTriggerIDsMonotonic(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	last := 0
	for i := 0; i < 5; i++ {
		id, err := e.AddNoteTrigger(60+i, 1)
		if err != nil {
			t.Fatal(err)
		}
		last = id
	}

	st := e.Export()
	st.Triggers = st.Triggers[:1]
	if err := e.Import(st); err != nil {
		t.Fatalf("Import: %v", err)
	}
	id, err := e.AddNoteTrigger(70, 1)
	if err != nil {
		t.Fatal(err)
	}
	if id != last+1 {
		t.Fatalf("id after import got=%d want=%d", id, last+1)
	}
}

func TestImportRejectsInvalidState(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	keep := mustEffect(t, e, effects.KindFilter)

	bad := preset.Empty()
	bad.Effects = []effectchain.Info{{ID: 1, Kind: effects.Kind(42)}}
	if err := e.Import(bad); !errors.Is(err, effects.ErrUnknownKind) {
		t.Fatalf("err=%v", err)
	}

	dup := preset.Empty()
	dup.Effects = []effectchain.Info{{ID: 3, Kind: effects.KindDelay}, {ID: 3, Kind: effects.KindDelay}}
	if err := e.Import(dup); err == nil {
		t.Fatal("expected duplicate id error")
	}

	noNotes := preset.Empty()
	noNotes.Triggers = []trigger.Trigger{{ID: 1, Kind: trigger.KindNote}}
	if err := e.Import(noNotes); !errors.Is(err, trigger.ErrNoNotes) {
		t.Fatalf("err=%v", err)
	}

	if fx := e.Effects(); len(fx) != 1 || fx[0].ID != keep {
		t.Fatalf("failed import changed state: %+v", fx)
	}
}

func TestConcurrentControl(t *testing.T) {
	t.Parallel()

	e := newEngine(t)
	fx := mustEffect(t, e, effects.KindDelay)
	blocks := sineBlocks(330, 16)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = e.SetParameter(fx, effects.DelayMix, float64(i%10)/10)
			_ = e.SetInputGain(1)
			_ = e.Snapshot()
		}
	}()

	for i := 0; i < 200; i++ {
		b := blocks[i%len(blocks)]
		e.Process(b)
		testutil.RequireBlockFinite(t, b)
	}
	wg.Wait()

	if e.Snapshot().Blocks == 0 {
		t.Fatal("no snapshot published")
	}
}

func TestProcessDoesNotAllocate(t *testing.T) {
	e := newEngine(t, WithAnalyzerOptions(
		analysis.WithWindowSize(1024),
		analysis.WithPitchOptions(pitch.WithDirect()),
	))
	fx := mustEffect(t, e, effects.KindDelay)
	if _, err := e.AddNoteTrigger(69, fx); err != nil {
		t.Fatal(err)
	}
	blocks := sineBlocks(440, 8)
	for _, b := range blocks {
		e.Process(b)
	}

	i := 0
	allocs := testing.AllocsPerRun(20, func() {
		e.Process(blocks[i%len(blocks)])
		i++
	})
	if allocs != 0 {
		t.Fatalf("allocs=%g want 0", allocs)
	}
}
