package effectchain

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
	"github.com/cwbudde/algo-fxtrigger/dsp/effects"
)

// MaxEffects bounds the number of instances a Processor holds. The slot
// slice is allocated once so inserts on the audio thread never grow it.
const MaxEffects = 64

// NoEffect is the active id when no effect is in the signal path.
const NoEffect = -1

var (
	// ErrUnknownEffect is returned when a kind has no registered factory.
	ErrUnknownEffect = errors.New("unknown effect")
	// ErrCapacity is returned when the processor already holds MaxEffects.
	ErrCapacity = errors.New("effect capacity reached")
)

var errDuplicateID = errors.New("duplicate effect id")

// Processor owns effect instances and routes the single active, enabled
// instance into the signal path. It is not safe for concurrent use; the
// engine confines it to the audio thread.
type Processor struct {
	ctx      Context
	registry *Registry

	instances []*Instance
	active    int
	nextID    int
}

// New creates a Processor with the given context and registry. A nil
// registry uses DefaultRegistry. Ids are assigned from 1.
func New(ctx Context, registry *Registry) *Processor {
	if registry == nil {
		registry = DefaultRegistry()
	}

	return &Processor{
		ctx:       ctx,
		registry:  registry,
		instances: make([]*Instance, 0, MaxEffects),
		active:    NoEffect,
		nextID:    1,
	}
}

// Context returns the current context.
func (p *Processor) Context() Context { return p.ctx }

// Registry returns the factory registry.
func (p *Processor) Registry() *Registry { return p.registry }

// Prepare re-prepares every instance for ctx. It allocates.
func (p *Processor) Prepare(ctx Context) error {
	for _, in := range p.instances {
		err := in.unit.Prepare(ctx.SampleRate, ctx.Channels)
		if err != nil {
			return fmt.Errorf("prepare effect %d: %w", in.ID, err)
		}
	}

	p.ctx = ctx

	return nil
}

// Build constructs an instance of kind with the given id without inserting
// it. The engine builds on the control thread and inserts on the audio one.
func (p *Processor) Build(id int, kind effects.Kind) (*Instance, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %d", effects.ErrUnknownKind, int(kind))
	}

	factory := p.registry.Lookup(kind)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEffect, kind)
	}

	unit, err := factory(p.ctx)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", kind, err)
	}

	return NewInstance(id, unit), nil
}

// AddEffect builds and inserts an instance of kind and returns its id. The
// new instance becomes active only if no effect is active yet.
func (p *Processor) AddEffect(kind effects.Kind) (int, error) {
	if len(p.instances) >= MaxEffects {
		return NoEffect, ErrCapacity
	}

	in, err := p.Build(p.nextID, kind)
	if err != nil {
		return NoEffect, err
	}

	err = p.Insert(in)
	if err != nil {
		return NoEffect, err
	}

	return in.ID, nil
}

// Insert adds a prebuilt instance. It does not allocate.
func (p *Processor) Insert(in *Instance) error {
	if len(p.instances) >= MaxEffects {
		return ErrCapacity
	}

	if p.indexOf(in.ID) >= 0 {
		return errDuplicateID
	}

	p.instances = append(p.instances, in)
	if in.ID >= p.nextID {
		p.nextID = in.ID + 1
	}

	if p.active == NoEffect {
		p.active = in.ID
	}

	return nil
}

// RemoveEffect removes the instance and returns it, or nil for unknown ids.
// Removing the active instance leaves no effect active.
func (p *Processor) RemoveEffect(id int) *Instance {
	i := p.indexOf(id)
	if i < 0 {
		return nil
	}

	in := p.instances[i]
	copy(p.instances[i:], p.instances[i+1:])
	p.instances[len(p.instances)-1] = nil
	p.instances = p.instances[:len(p.instances)-1]

	if p.active == id {
		p.active = NoEffect
	}

	return in
}

// SetEnabled toggles an instance. Unknown ids are ignored.
func (p *Processor) SetEnabled(id int, enabled bool) bool {
	in := p.Effect(id)
	if in == nil {
		return false
	}

	in.Enabled = enabled

	return true
}

// SetParameter writes a parameter of instance id. Unknown ids and indices
// are ignored.
func (p *Processor) SetParameter(id, index int, value float64) bool {
	in := p.Effect(id)
	if in == nil {
		return false
	}

	return in.SetParameter(index, value)
}

// Parameter reads a stored parameter, or 0 for unknown ids and indices.
func (p *Processor) Parameter(id, index int) float64 {
	in := p.Effect(id)
	if in == nil {
		return 0
	}

	return in.Parameter(index)
}

// SetActive selects the active instance. NoEffect clears it; other unknown
// ids are ignored.
func (p *Processor) SetActive(id int) bool {
	if id != NoEffect && p.indexOf(id) < 0 {
		return false
	}

	p.active = id

	return true
}

// Active returns the active id or NoEffect.
func (p *Processor) Active() int { return p.active }

// NextID returns the id the next AddEffect will assign.
func (p *Processor) NextID() int { return p.nextID }

// Effect returns the instance with id, or nil.
func (p *Processor) Effect(id int) *Instance {
	i := p.indexOf(id)
	if i < 0 {
		return nil
	}

	return p.instances[i]
}

// Len returns the number of instances.
func (p *Processor) Len() int { return len(p.instances) }

// Infos returns copies of every instance in insertion order.
func (p *Processor) Infos() []Info {
	out := make([]Info, len(p.instances))
	for i, in := range p.instances {
		out[i] = in.Info()
	}

	return out
}

// Clear removes every instance and leaves no effect active. The id counter
// keeps running.
func (p *Processor) Clear() {
	clear(p.instances)
	p.instances = p.instances[:0]
	p.active = NoEffect
}

// Reset clears the processing state of every instance.
func (p *Processor) Reset() {
	for _, in := range p.instances {
		in.unit.Reset()
	}
}

// ProcessBlock runs the active instance over b in place when it is enabled.
// Every other instance is left untouched.
func (p *Processor) ProcessBlock(b core.Block) {
	if p.active == NoEffect {
		return
	}

	in := p.Effect(p.active)
	if in == nil || !in.Enabled {
		return
	}

	in.unit.ProcessBlock(b)
}

func (p *Processor) indexOf(id int) int {
	for i, in := range p.instances {
		if in.ID == id {
			return i
		}
	}

	return -1
}
