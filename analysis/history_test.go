package analysis

import (
	"reflect"
	"testing"
)

func TestRingDropsOldest(t *testing.T) {
	t.Parallel()

	r := newRing(3)
	if _, ok := r.last(); ok {
		t.Fatal("empty ring reported a last entry")
	}

	for i := 1; i <= 5; i++ {
		r.push(float64(i))
	}

	if got := r.appendTo(nil); !reflect.DeepEqual(got, []float64{3, 4, 5}) {
		t.Fatalf("got=%v want=[3 4 5]", got)
	}
	if v, ok := r.last(); !ok || v != 5 {
		t.Fatalf("last got=%g,%v want=5,true", v, ok)
	}

	r.clear()
	if r.len() != 0 || len(r.appendTo(nil)) != 0 {
		t.Fatalf("clear left %d entries", r.len())
	}
}
