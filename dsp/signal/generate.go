package signal

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-fxtrigger/dsp/core"
)

// DefaultStepSeconds is the step length ParseSequence uses when a step has
// no explicit duration.
const DefaultStepSeconds = 0.5

// fadeSeconds is the linear fade applied at both ends of each step.
const fadeSeconds = 0.005

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	cfg  core.ProcessorConfig
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured signal generator.
func NewGenerator(opts ...core.ProcessorOption) *Generator {
	return NewGeneratorWithOptions(opts)
}

// NewGeneratorWithOptions creates a configured signal generator with signal-specific options.
func NewGeneratorWithOptions(coreOpts []core.ProcessorOption, opts ...Option) *Generator {
	g := &Generator{
		cfg:  core.ApplyProcessorOptions(coreOpts...),
		seed: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator processor configuration.
func (g *Generator) Config() core.ProcessorConfig {
	return g.cfg
}

// Sine generates a sine wave.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if err := g.validate("sine", samples); err != nil {
		return nil, err
	}
	out := make([]float64, samples)
	addSine(out, freqHz, amplitude, g.cfg.SampleRate)
	return out, nil
}

// Chord sums equal-amplitude sines at the given MIDI notes.
func (g *Generator) Chord(notes []int, amplitude float64, samples int) ([]float64, error) {
	if err := g.validate("chord", samples); err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("chord needs at least one note")
	}
	out := make([]float64, samples)
	for _, n := range notes {
		addSine(out, core.NoteToFrequency(float64(n)), amplitude, g.cfg.SampleRate)
	}
	return out, nil
}

// WhiteNoise generates deterministic white noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("noise samples must be > 0: %d", samples)
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("noise amplitude must be >= 0: %f", amplitude)
	}
	out := make([]float64, samples)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out, nil
}

// Step is one entry of a note sequence. A step without notes is a rest.
type Step struct {
	Notes   []int
	Seconds float64
}

// Sequence renders steps back to back. Each sounding step is faded in and
// out over a few milliseconds.
func (g *Generator) Sequence(steps []Step, amplitude float64) ([]float64, error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("sequence needs at least one step")
	}
	if g.cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sequence sample rate must be > 0: %f", g.cfg.SampleRate)
	}

	total := 0
	lengths := make([]int, len(steps))
	for i, s := range steps {
		n := int(math.Round(s.Seconds * g.cfg.SampleRate))
		if n <= 0 {
			return nil, fmt.Errorf("sequence step %d length must be > 0: %f s", i, s.Seconds)
		}
		lengths[i] = n
		total += n
	}

	out := make([]float64, total)
	fade := int(fadeSeconds * g.cfg.SampleRate)
	pos := 0
	for i, s := range steps {
		seg := out[pos : pos+lengths[i]]
		for _, n := range s.Notes {
			addSine(seg, core.NoteToFrequency(float64(n)), amplitude, g.cfg.SampleRate)
		}
		applyFade(seg, fade)
		pos += lengths[i]
	}
	return out, nil
}

// ParseSequence reads a whitespace separated list of steps. A step is one or
// more note names joined by '+', optionally followed by ':' and a length in
// seconds. '-' is a rest. Example: "C4 E4:0.25 C4+E4+G4:1 -:0.5".
func ParseSequence(s string) ([]Step, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("sequence is empty")
	}

	steps := make([]Step, 0, len(fields))
	for _, f := range fields {
		notesPart, durPart, hasDur := strings.Cut(f, ":")
		step := Step{Seconds: DefaultStepSeconds}
		if hasDur {
			d, err := strconv.ParseFloat(durPart, 64)
			if err != nil || d <= 0 {
				return nil, fmt.Errorf("sequence step %q: invalid length %q", f, durPart)
			}
			step.Seconds = d
		}
		if notesPart != "-" {
			for _, name := range strings.Split(notesPart, "+") {
				n, err := core.ParseNoteName(name)
				if err != nil {
					return nil, fmt.Errorf("sequence step %q: %w", f, err)
				}
				step.Notes = append(step.Notes, n)
			}
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Normalize scales data to target peak amplitude and returns a new slice.
func Normalize(data []float64, targetPeak float64) ([]float64, error) {
	if targetPeak < 0 {
		return nil, fmt.Errorf("normalize target peak must be >= 0: %f", targetPeak)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("normalize input must not be empty")
	}

	maxAbs := core.Peak(data)
	out := make([]float64, len(data))
	if maxAbs == 0 || targetPeak == 0 {
		return out, nil
	}

	scale := targetPeak / maxAbs
	for i, v := range data {
		out[i] = v * scale
	}
	return out, nil
}

func (g *Generator) validate(what string, samples int) error {
	if samples <= 0 {
		return fmt.Errorf("%s samples must be > 0: %d", what, samples)
	}
	if g.cfg.SampleRate <= 0 {
		return fmt.Errorf("%s sample rate must be > 0: %f", what, g.cfg.SampleRate)
	}
	return nil
}

func addSine(dst []float64, freqHz, amplitude, sampleRate float64) {
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range dst {
		dst[i] += amplitude * math.Sin(step*float64(i))
	}
}

func applyFade(x []float64, n int) {
	if n <= 0 {
		return
	}
	n = min(n, len(x)/2)
	for i := 0; i < n; i++ {
		g := float64(i) / float64(n)
		x[i] *= g
		x[len(x)-1-i] *= g
	}
}
