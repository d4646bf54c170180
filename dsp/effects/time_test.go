package effects

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/internal/testutil"
)

func TestDelayImpulseEchoes(t *testing.T) {
	t.Parallel()

	d, err := NewDelay(1000)
	if err != nil {
		t.Fatal(err)
	}
	d.SetTime(0.01)
	d.SetFeedback(0.5)
	d.SetMix(1)
	if got := d.DelaySamples(); got != 10 {
		t.Fatalf("delay samples got=%d want=10", got)
	}

	out := make([]float64, 40)
	for i := range out {
		x := 0.0
		if i == 0 {
			x = 1
		}
		out[i] = d.ProcessSample(0, x)
	}

	want := make([]float64, 40)
	want[10] = 1
	want[20] = 0.5
	want[30] = 0.25
	testutil.RequireSliceNearlyEqual(t, out, want, 1e-12)
}

func TestDelayMixBlendsDry(t *testing.T) {
	t.Parallel()

	d, err := NewDelay(1000)
	if err != nil {
		t.Fatal(err)
	}
	d.SetTime(0.01)
	d.SetFeedback(0)
	d.SetMix(0.25)

	if got := d.ProcessSample(0, 1); math.Abs(got-0.75) > 1e-12 {
		t.Fatalf("dry part got=%g want=%g", got, 0.75)
	}
	for i := 1; i < 10; i++ {
		d.ProcessSample(0, 0)
	}
	if got := d.ProcessSample(0, 0); math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("wet part got=%g want=%g", got, 0.25)
	}
}

func TestDelayTimeChangeClearsLine(t *testing.T) {
	t.Parallel()

	d, err := NewDelay(1000)
	if err != nil {
		t.Fatal(err)
	}
	d.SetMix(1)
	for i := 0; i < 500; i++ {
		d.ProcessSample(0, 1)
	}
	d.SetTime(0.05)
	if got := d.WriteIndex(0); got != 0 {
		t.Fatalf("write index got=%d want=0", got)
	}
	for i := 0; i < 50; i++ {
		if got := d.ProcessSample(0, 0); got != 0 {
			t.Fatalf("sample %d: stale audio %g", i, got)
		}
	}
}

func TestDelayTimeClamped(t *testing.T) {
	t.Parallel()

	d, err := NewDelay(1000)
	if err != nil {
		t.Fatal(err)
	}
	d.SetTime(10)
	if got := d.Time(); got != 2 {
		t.Fatalf("time got=%g want=2", got)
	}
	if got := d.DelaySamples(); got != 2000 {
		t.Fatalf("samples got=%d want=2000", got)
	}
	d.SetTime(0)
	if got := d.Time(); got != 0.01 {
		t.Fatalf("time got=%g want=0.01", got)
	}
}

func TestChorusZeroDepthIsTransparent(t *testing.T) {
	t.Parallel()

	c, err := NewChorus(44100)
	if err != nil {
		t.Fatal(err)
	}
	c.SetDepth(0)
	c.SetMix(0.7)

	x := testutil.DeterministicSine(330, 44100, 0.8, 1024)
	b := testutil.BlockOf(x, 2)
	c.ProcessBlock(b)
	testutil.RequireSliceNearlyEqual(t, b[0], x, 1e-12)
	testutil.RequireSliceNearlyEqual(t, b[1], x, 1e-12)
}

func TestChorusBufferAndDelayRange(t *testing.T) {
	t.Parallel()

	c, err := NewChorus(44100)
	if err != nil {
		t.Fatal(err)
	}
	if got := c.BufferLen(); got != 2205 {
		t.Fatalf("buffer got=%d want=2205", got)
	}
	c.SetDepth(1)
	c.SetRate(10)

	maxDelay := 0.0
	minDelay := math.Inf(1)
	for i := 0; i < 44100; i++ {
		c.ProcessSample(0)
		d := c.CurrentDelay()
		maxDelay = math.Max(maxDelay, d)
		minDelay = math.Min(minDelay, d)
	}
	if minDelay < 1 || maxDelay > 1+2205.0/2 {
		t.Fatalf("delay range [%g, %g]", minDelay, maxDelay)
	}
	if maxDelay-minDelay < 1000 {
		t.Fatalf("delay barely modulated: [%g, %g]", minDelay, maxDelay)
	}
}

func TestChorusSharesLFOAcrossChannels(t *testing.T) {
	t.Parallel()

	c, err := NewChorus(44100)
	if err != nil {
		t.Fatal(err)
	}
	x := testutil.DeterministicNoise(5, 0.5, 4096)
	b := testutil.BlockOf(x, 2)
	c.ProcessBlock(b)
	testutil.RequireSliceNearlyEqual(t, b[0], b[1], 0)
}

func TestReverbCombLengths(t *testing.T) {
	t.Parallel()

	r, err := NewReverb(44100)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		room float64
		want [8]int
	}{
		{room: 0, want: [8]int{558, 596, 638, 680, 711, 746, 779, 809}},
		{room: 0.5, want: [8]int{1675, 1789, 1915, 2041, 2134, 2239, 2338, 2428}},
		{room: 1, want: [8]int{2792, 2982, 3192, 3402, 3557, 3732, 3897, 4047}},
	}
	for _, tc := range tests {
		r.SetRoomSize(tc.room)
		if got := r.CombLengths(); got != tc.want {
			t.Fatalf("room=%g got=%v want=%v", tc.room, got, tc.want)
		}
	}
}

func TestReverbFeedbackFollowsDamping(t *testing.T) {
	t.Parallel()

	r, err := NewReverb(44100)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		damping float64
		want    float64
	}{
		{damping: 0, want: 0.6},
		{damping: 0.5, want: 0.45},
		{damping: 1, want: 0.3},
		{damping: 2, want: 0.3},
	}
	for _, tc := range tests {
		r.SetDamping(tc.damping)
		if got := r.Feedback(); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("damping=%g got=%g want=%g", tc.damping, got, tc.want)
		}
	}
}

func TestReverbFirstReflection(t *testing.T) {
	t.Parallel()

	r, err := NewReverb(44100)
	if err != nil {
		t.Fatal(err)
	}
	r.SetRoomSize(0)
	r.SetWet(1)
	r.SetDry(0)

	first := -1
	var firstValue float64
	for i := 0; i < 1000; i++ {
		x := 0.0
		if i == 0 {
			x = 1
		}
		if y := r.ProcessSample(0, x); y != 0 && first < 0 {
			first, firstValue = i, y
		}
	}
	if first != 558 {
		t.Fatalf("first reflection got=%d want=558", first)
	}
	if math.Abs(firstValue-0.125) > 1e-12 {
		t.Fatalf("first reflection value got=%g want=0.125", firstValue)
	}
}

func TestReverbDryOnly(t *testing.T) {
	t.Parallel()

	r, err := NewReverb(44100)
	if err != nil {
		t.Fatal(err)
	}
	r.SetWet(0)
	r.SetDry(1)

	x := testutil.DeterministicNoise(9, 1, 4096)
	b := testutil.BlockOf(x, 2)
	r.ProcessBlock(b)
	testutil.RequireSliceNearlyEqual(t, b[0], x, 0)
}

func TestReverbDecays(t *testing.T) {
	t.Parallel()

	r, err := NewReverb(44100)
	if err != nil {
		t.Fatal(err)
	}
	b := testutil.BlockOf(testutil.Impulse(256, 0), 2)
	r.ProcessBlock(b)

	silent := core.NewBlock(2, 44100*3)
	r.ProcessBlock(silent)
	tail := core.Block{silent[0][len(silent[0])-4410:]}
	if peak := tail.Peak(); peak > 1e-3 {
		t.Fatalf("tail peak got=%g, reverb not decaying", peak)
	}
}
