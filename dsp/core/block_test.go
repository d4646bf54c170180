package core

import (
	"math"
	"testing"
)

func TestBlockShape(t *testing.T) {
	t.Parallel()

	b := NewBlock(2, 64)
	if b.Channels() != 2 || b.Frames() != 64 || b.Samples() != 128 {
		t.Fatalf("shape=%d/%d/%d want 2/64/128", b.Channels(), b.Frames(), b.Samples())
	}
	if (Block{}).Frames() != 0 {
		t.Fatal("empty block should have zero frames")
	}
}

func TestBlockRMSAndPeak(t *testing.T) {
	t.Parallel()

	b := Block{{1, -1, 1, -1}, {0, 0, 0, 0}}
	if got, want := b.RMS(), math.Sqrt(0.5); math.Abs(got-want) > 1e-12 {
		t.Fatalf("RMS got=%g want=%g", got, want)
	}
	if got := b.Peak(); got != 1 {
		t.Fatalf("Peak got=%g want=1", got)
	}
	if got := NewBlock(2, 16).RMS(); got != 0 {
		t.Fatalf("silence RMS got=%g want=0", got)
	}
}

func TestBlockDownmix(t *testing.T) {
	t.Parallel()

	b := Block{{1, 2, 3}, {3, 2, 1}}
	dst := make([]float64, 8)
	n := b.Downmix(dst)
	if n != 3 {
		t.Fatalf("n=%d want 3", n)
	}
	for i := 0; i < n; i++ {
		if dst[i] != 2 {
			t.Fatalf("dst[%d]=%g want 2", i, dst[i])
		}
	}
}

func TestBlockScaleAndCopy(t *testing.T) {
	t.Parallel()

	b := Block{{1, 2}, {3, 4}}
	b.Scale(0.5)
	if b[0][1] != 1 || b[1][0] != 1.5 {
		t.Fatalf("unexpected scaled block: %v", b)
	}

	dst := NewBlock(2, 2)
	dst.CopyFrom(b)
	if dst[1][1] != 2 {
		t.Fatalf("copy got=%g want=2", dst[1][1])
	}

	dst.Clear()
	if dst.Peak() != 0 {
		t.Fatal("clear left samples")
	}
}

func TestLevelHelpers(t *testing.T) {
	t.Parallel()

	if RMS(nil) != 0 {
		t.Fatal("RMS(nil) should be 0")
	}
	if got := RMS([]float64{2, 2}); got != 2 {
		t.Fatalf("RMS got=%g want=2", got)
	}
	if got := Peak([]float64{0.2, -0.7, 0.5}); got != 0.7 {
		t.Fatalf("Peak got=%g want=0.7", got)
	}
}
