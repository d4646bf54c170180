package effectchain

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
	"github.com/cwbudde/algo-fxtrigger/internal/testutil"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()

	return New(Context{SampleRate: 44100, Channels: 2}, nil)
}

func mustAdd(t *testing.T, p *Processor, kind effects.Kind) int {
	t.Helper()

	id, err := p.AddEffect(kind)
	if err != nil {
		t.Fatalf("AddEffect(%s): %v", kind, err)
	}

	return id
}

func TestProcessorFirstEffectBecomesActive(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)
	if p.Active() != NoEffect {
		t.Fatalf("active got=%d want=%d", p.Active(), NoEffect)
	}

	a := mustAdd(t, p, effects.KindDistortion)
	b := mustAdd(t, p, effects.KindReverb)

	if a == b {
		t.Fatalf("ids not unique: %d", a)
	}

	if b <= a {
		t.Fatalf("ids not monotonic: %d then %d", a, b)
	}

	if p.Active() != a {
		t.Fatalf("active got=%d want=%d", p.Active(), a)
	}

	if !p.Effect(b).Enabled {
		t.Fatal("new effect should be enabled")
	}
}

func TestProcessorRemoveActiveDoesNotPromote(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)
	a := mustAdd(t, p, effects.KindDelay)
	b := mustAdd(t, p, effects.KindChorus)

	if p.RemoveEffect(a) == nil {
		t.Fatal("RemoveEffect returned nil for known id")
	}

	if p.Active() != NoEffect {
		t.Fatalf("active got=%d want=%d", p.Active(), NoEffect)
	}

	if p.Len() != 1 || p.Effect(b) == nil {
		t.Fatalf("remaining effects wrong: len=%d", p.Len())
	}

	c := mustAdd(t, p, effects.KindFilter)
	if c <= b {
		t.Fatalf("id reused or decreased: %d after %d", c, b)
	}
	if p.Active() != c {
		t.Fatalf("active got=%d want=%d", p.Active(), c)
	}
}

func TestProcessorUnknownIDsAreNoOps(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)
	a := mustAdd(t, p, effects.KindCompressor)

	if p.RemoveEffect(99) != nil {
		t.Fatal("RemoveEffect(99) should return nil")
	}

	if p.SetParameter(99, 0, 1) {
		t.Fatal("SetParameter on unknown id reported success")
	}

	if p.SetEnabled(99, false) {
		t.Fatal("SetEnabled on unknown id reported success")
	}

	if got := p.Parameter(99, 0); got != 0 {
		t.Fatalf("Parameter unknown id got=%g want=0", got)
	}

	if p.SetActive(99) {
		t.Fatal("SetActive on unknown id reported success")
	}

	if p.Active() != a {
		t.Fatalf("active changed to %d", p.Active())
	}

	if !p.SetActive(NoEffect) || p.Active() != NoEffect {
		t.Fatal("SetActive(NoEffect) should clear the active effect")
	}
}

func TestProcessorParameterRoundTrip(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)

	for _, kind := range effects.Kinds() {
		id := mustAdd(t, p, kind)
		in := p.Effect(id)

		for i, info := range effects.Params(kind) {
			if got := p.Parameter(id, i); got != info.Default {
				t.Fatalf("%s/%s default got=%g want=%g", kind, info.Name, got, info.Default)
			}

			for _, v := range []float64{info.Min - 1, info.Max + 1, (info.Min + info.Max) / 3} {
				p.SetParameter(id, i, v)

				want := core.Clamp(v, info.Min, info.Max)
				if got := p.Parameter(id, i); got != want {
					t.Fatalf("%s/%s set %g: got=%g want=%g", kind, info.Name, v, got, want)
				}

				if got := in.Unit().Parameter(i); got != want {
					t.Fatalf("%s/%s unit got=%g want=%g", kind, info.Name, got, want)
				}
			}
		}

		if p.SetParameter(id, len(effects.Params(kind)), 1) {
			t.Fatalf("%s: out-of-range index accepted", kind)
		}
	}
}

func TestProcessorProcessesOnlyActive(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)
	a := mustAdd(t, p, effects.KindDelay)
	b := mustAdd(t, p, effects.KindDelay)

	blk := testutil.BlockOf(testutil.DeterministicNoise(1, 0.5, 300), 2)
	p.ProcessBlock(blk)

	if got := p.Effect(a).Unit().Delay().WriteIndex(0); got != 300 {
		t.Fatalf("active write index got=%d want=300", got)
	}

	if got := p.Effect(b).Unit().Delay().WriteIndex(0); got != 0 {
		t.Fatalf("idle write index got=%d want=0", got)
	}
}

func TestProcessorMatchesStandaloneUnit(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)
	id := mustAdd(t, p, effects.KindDistortion)
	p.SetParameter(id, effects.DistortionDrive, 0.8)

	ref, err := effects.NewUnit(effects.KindDistortion, 44100)
	if err != nil {
		t.Fatal(err)
	}
	ref.SetParameter(effects.DistortionDrive, 0.8)

	x := testutil.DeterministicSine(220, 44100, 0.7, 512)
	got := testutil.BlockOf(x, 2)
	want := testutil.BlockOf(x, 2)

	p.ProcessBlock(got)
	ref.ProcessBlock(want)

	testutil.RequireSliceNearlyEqual(t, got[0], want[0], 0)
	testutil.RequireSliceNearlyEqual(t, got[1], want[1], 0)
}

func TestProcessorDisabledOrNoActivePassesThrough(t *testing.T) {
	t.Parallel()

	x := testutil.DeterministicSine(440, 44100, 0.9, 256)

	p := newTestProcessor(t)
	blk := testutil.BlockOf(x, 2)
	p.ProcessBlock(blk)
	testutil.RequireSliceNearlyEqual(t, blk[0], x, 0)

	id := mustAdd(t, p, effects.KindDistortion)
	p.SetEnabled(id, false)
	p.ProcessBlock(blk)
	testutil.RequireSliceNearlyEqual(t, blk[0], x, 0)
}

func TestProcessorCapacity(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)
	for i := 0; i < MaxEffects; i++ {
		mustAdd(t, p, effects.KindCompressor)
	}

	_, err := p.AddEffect(effects.KindCompressor)
	if !errors.Is(err, ErrCapacity) {
		t.Fatalf("err=%v want ErrCapacity", err)
	}
}

func TestProcessorUnknownKind(t *testing.T) {
	t.Parallel()

	p := New(Context{SampleRate: 44100, Channels: 2}, NewRegistry())

	_, err := p.AddEffect(effects.KindReverb)
	if !errors.Is(err, ErrUnknownEffect) {
		t.Fatalf("err=%v want ErrUnknownEffect", err)
	}

	_, err = p.AddEffect(effects.Kind(-3))
	if !errors.Is(err, effects.ErrUnknownKind) {
		t.Fatalf("err=%v want ErrUnknownKind", err)
	}
}

func TestProcessorInsertPrebuilt(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)

	in, err := p.Build(7, effects.KindChorus)
	if err != nil {
		t.Fatal(err)
	}

	err = p.Insert(in)
	if err != nil {
		t.Fatal(err)
	}

	if p.Active() != 7 {
		t.Fatalf("active got=%d want=7", p.Active())
	}

	if err := p.Insert(in); err == nil {
		t.Fatal("expected duplicate id error")
	}

	if id := mustAdd(t, p, effects.KindChorus); id != 8 {
		t.Fatalf("next id got=%d want=8", id)
	}
}

func TestProcessorPrepareChangesContext(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)
	id := mustAdd(t, p, effects.KindDelay)

	err := p.Prepare(Context{SampleRate: 1000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}

	if got := p.Effect(id).Unit().Delay().DelaySamples(); got != 300 {
		t.Fatalf("delay samples got=%d want=300", got)
	}

	if err := p.Prepare(Context{SampleRate: 0, Channels: 1}); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestProcessorInfosCopy(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)
	id := mustAdd(t, p, effects.KindReverb)

	infos := p.Infos()
	if len(infos) != 1 || infos[0].ID != id || infos[0].Kind != effects.KindReverb {
		t.Fatalf("infos got=%+v", infos)
	}

	infos[0].Params[0] = 123
	if p.Parameter(id, 0) == 123 {
		t.Fatal("Infos shares parameter storage")
	}
}

func TestProcessorProcessBlockDoesNotAllocate(t *testing.T) {
	p := newTestProcessor(t)
	id := mustAdd(t, p, effects.KindChorus)
	blk := core.NewBlock(2, 256)

	allocs := testing.AllocsPerRun(100, func() {
		p.SetParameter(id, effects.ChorusMix, 0.4)
		p.ProcessBlock(blk)
	})
	if allocs != 0 {
		t.Fatalf("allocs=%g want 0", allocs)
	}
}

func TestProcessorIDsStartAtOne(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)
	if p.NextID() != 1 {
		t.Fatalf("next id got=%d want=1", p.NextID())
	}

	if id := mustAdd(t, p, effects.KindFilter); id != 1 {
		t.Fatalf("first id got=%d want=1", id)
	}
}

func TestProcessorClear(t *testing.T) {
	t.Parallel()

	p := newTestProcessor(t)
	mustAdd(t, p, effects.KindDelay)
	last := mustAdd(t, p, effects.KindReverb)

	p.Clear()
	if p.Len() != 0 || p.Active() != NoEffect {
		t.Fatalf("len=%d active=%d", p.Len(), p.Active())
	}

	if id := mustAdd(t, p, effects.KindFilter); id != last+1 {
		t.Fatalf("id after clear got=%d want=%d", id, last+1)
	}
}
