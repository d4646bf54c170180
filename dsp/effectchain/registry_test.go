package effectchain

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
)

func distortionFactory(ctx Context) (*effects.Unit, error) {
	return effects.NewUnit(effects.KindDistortion, ctx.SampleRate)
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	t.Run("registers and looks up factory", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()

		err := r.Register(effects.KindDistortion, distortionFactory)
		if err != nil {
			t.Fatalf("Register returned unexpected error: %v", err)
		}

		if r.Lookup(effects.KindDistortion) == nil {
			t.Fatal("Lookup returned nil for registered kind")
		}
	})

	t.Run("rejects invalid kind", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()

		err := r.Register(effects.KindCount, distortionFactory)
		if !errors.Is(err, effects.ErrUnknownKind) {
			t.Fatalf("err=%v want ErrUnknownKind", err)
		}
	})

	t.Run("rejects nil factory", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()

		err := r.Register(effects.KindChorus, nil)
		if err == nil {
			t.Fatal("expected error for nil factory")
		}
	})

	t.Run("rejects duplicate registration", func(t *testing.T) {
		t.Parallel()

		r := NewRegistry()
		_ = r.Register(effects.KindDistortion, distortionFactory)

		err := r.Register(effects.KindDistortion, distortionFactory)
		if !errors.Is(err, errDuplicateEffect) {
			t.Fatalf("err=%v want duplicate error", err)
		}
	})

	t.Run("lookup of unregistered kind is nil", func(t *testing.T) {
		t.Parallel()

		if NewRegistry().Lookup(effects.KindReverb) != nil {
			t.Fatal("expected nil factory")
		}
	})
}

func TestRegistryMustRegisterPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate MustRegister")
		}
	}()

	r := NewRegistry()
	r.MustRegister(effects.KindFilter, distortionFactory)
	r.MustRegister(effects.KindFilter, distortionFactory)
}

func TestDefaultRegistryBuildsEveryKind(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()

	kinds := r.Kinds()
	if len(kinds) != effects.KindCount {
		t.Fatalf("kinds got=%d want=%d", len(kinds), effects.KindCount)
	}

	for i, k := range kinds {
		if k != effects.Kind(i) {
			t.Fatalf("kinds[%d] got=%v want=%v", i, k, effects.Kind(i))
		}

		u, err := r.Lookup(k)(Context{SampleRate: 48000, Channels: 1})
		if err != nil {
			t.Fatalf("%s: %v", k, err)
		}

		if u.Kind() != k {
			t.Fatalf("factory for %s built %s", k, u.Kind())
		}
	}
}
