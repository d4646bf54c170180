package effectchain

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
)

// Factory builds one effect unit for the given context.
type Factory func(ctx Context) (*effects.Unit, error)

// Registry maps effect kinds to their factories.
type Registry struct {
	factories map[effects.Kind]Factory
}

var errDuplicateEffect = errors.New("duplicate effect kind")

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[effects.Kind]Factory)}
}

// Register adds a factory for the given kind.
func (r *Registry) Register(kind effects.Kind, factory Factory) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %d", effects.ErrUnknownKind, int(kind))
	}

	if factory == nil {
		return errors.New("nil factory")
	}

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("%w: %s", errDuplicateEffect, kind)
	}

	r.factories[kind] = factory

	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(kind effects.Kind, factory Factory) {
	err := r.Register(kind, factory)
	if err != nil {
		panic("effectchain registry: " + err.Error())
	}
}

// Lookup returns the factory for the given kind, or nil.
func (r *Registry) Lookup(kind effects.Kind) Factory {
	return r.factories[kind]
}

// Kinds returns the registered kinds in ascending order.
func (r *Registry) Kinds() []effects.Kind {
	out := make([]effects.Kind, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// DefaultRegistry returns a Registry pre-populated with all six built-in
// effect kinds.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, kind := range effects.Kinds() {
		r.MustRegister(kind, func(ctx Context) (*effects.Unit, error) {
			u, err := effects.NewUnit(kind, ctx.SampleRate)
			if err != nil {
				return nil, err
			}

			if ctx.Channels > 0 {
				err = u.Prepare(ctx.SampleRate, ctx.Channels)
				if err != nil {
					return nil, err
				}
			}

			return u, nil
		})
	}

	return r
}
