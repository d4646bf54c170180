package testutil

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// RequireBlockFinite fails t if any sample of b is NaN or Inf.
func RequireBlockFinite(t *testing.T, b core.Block) {
	t.Helper()
	for ch := range b {
		for i, v := range b[ch] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("ch %d index %d: non-finite value %v", ch, i, v)
			}
		}
	}
}
